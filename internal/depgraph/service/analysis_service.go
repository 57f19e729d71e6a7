package service

import (
	"context"
	"strings"

	"github.com/depscope/depscope-backend/internal/api/logging"
	"github.com/depscope/depscope-backend/internal/depgraph"
	"github.com/depscope/depscope-backend/internal/depgraph/domain"
)

// AnalysisService handles graph construction over already-fetched
// dependency data.
type AnalysisService struct{}

// NewAnalysisService creates a new AnalysisService
func NewAnalysisService() *AnalysisService {
	return &AnalysisService{}
}

// BuildGraphs groups the supplied dependencies by ecosystem and builds
// one graph per ecosystem. An empty dependency list yields an empty map,
// not an error; only a malformed repository key is rejected.
func (s *AnalysisService) BuildGraphs(ctx context.Context, repoKey string, deps []domain.Dependency) (domain.EcosystemGraphMap, error) {
	logger := logging.NewLogger(ctx)

	if !validRepoKey(repoKey) {
		return nil, domain.ErrInvalidRepo
	}

	grouped := depgraph.GroupByEcosystem(deps)
	graphs := depgraph.BuildEcosystemGraphs(repoKey, grouped)

	nodes, edges := 0, 0
	for _, g := range graphs {
		nodes += len(g.Nodes)
		edges += len(g.Edges)
	}
	logger.LogInfof("build_graphs", "repo=%s ecosystems=%d nodes=%d edges=%d", repoKey, len(graphs), nodes, edges)

	return graphs, nil
}

// validRepoKey accepts the `owner/repo` form with non-empty halves.
func validRepoKey(repoKey string) bool {
	owner, repo, ok := strings.Cut(repoKey, "/")
	if !ok {
		return false
	}
	owner = strings.TrimSpace(owner)
	repo = strings.TrimSpace(repo)
	return owner != "" && repo != "" && !strings.Contains(repo, "/")
}
