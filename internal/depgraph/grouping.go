package depgraph

import "github.com/depscope/depscope-backend/internal/depgraph/domain"

// GroupByEcosystem buckets dependencies by their ecosystem tag. Untagged
// dependencies land in their own "unknown" bucket rather than being
// dropped.
func GroupByEcosystem(deps []domain.Dependency) map[string][]domain.Dependency {
	grouped := make(map[string][]domain.Dependency)
	for _, dep := range deps {
		eco := dep.Ecosystem
		if eco == "" {
			eco = domain.EcosystemUnknown
		}
		grouped[eco] = append(grouped[eco], dep)
	}
	return grouped
}
