package depgraph

import (
	"log"
	"strings"

	"github.com/depscope/depscope-backend/internal/depgraph/domain"
)

// BuildEcosystemGraphs builds one graph per ecosystem from grouped
// dependency data. Each graph gets a single CENTER node for the analyzed
// repository; dependencies appear only when they carry at least one own
// vulnerability or at least one vulnerable transitive dependency.
func BuildEcosystemGraphs(repoKey string, grouped map[string][]domain.Dependency) domain.EcosystemGraphMap {
	graphs := make(domain.EcosystemGraphMap, len(grouped))
	for eco, deps := range grouped {
		graphs[eco] = buildGraph(repoKey, eco, deps)
	}
	return graphs
}

func buildGraph(repoKey, ecosystem string, deps []domain.Dependency) *domain.Graph {
	g := &domain.Graph{
		Nodes: []domain.GraphNode{{
			ID:        repoKey,
			Type:      domain.TypeCenter,
			Label:     centerLabel(repoKey),
			Ecosystem: ecosystem,
		}},
		Edges: []domain.GraphEdge{},
	}
	seen := map[string]bool{repoKey: true}

	for _, dep := range deps {
		if !includeDependency(dep) {
			continue
		}
		key := dep.Key()
		if seen[key] {
			log.Printf("[depgraph] duplicate dependency %s in ecosystem %s, skipping", key, ecosystem)
			continue
		}
		seen[key] = true

		g.Nodes = append(g.Nodes, domain.GraphNode{
			ID:        key,
			Type:      domain.TypePrimary,
			Label:     dep.Name,
			Version:   dep.Version,
			Ecosystem: ecosystem,
			Severity:  MaxSeverity(dep.Vulnerabilities),
			VulnCount: len(dep.Vulnerabilities),
		})
		g.Edges = append(g.Edges, domain.GraphEdge{
			Source: repoKey,
			Target: key,
			Type:   domain.TypePrimary,
		})

		if dep.Transitive != nil {
			expandTransitive(g, seen, ecosystem, key, dep.Transitive)
		}
	}
	return g
}

// expandTransitive adds the vulnerable transitive nodes of one dependency
// plus their edges. Explicit index-based edges are translated to identity
// key pairs; without explicit edges a star from the owning dependency is
// synthesized. Edges may reference nodes the inclusion policy filtered
// out; those dangling references are emitted as-is.
func expandTransitive(g *domain.Graph, seen map[string]bool, ecosystem, parentKey string, ts *domain.TransitiveSet) {
	for _, t := range ts.Nodes {
		if len(t.Vulnerabilities) == 0 || t.DependencyType == domain.TypeSelf {
			continue
		}
		tkey := t.Key()
		if seen[tkey] {
			continue
		}
		seen[tkey] = true
		g.Nodes = append(g.Nodes, domain.GraphNode{
			ID:        tkey,
			Type:      domain.TypeTransitive,
			Label:     t.Name,
			Version:   t.Version,
			Ecosystem: ecosystem,
			Severity:  MaxSeverity(t.Vulnerabilities),
			VulnCount: len(t.Vulnerabilities),
		})
	}

	if len(ts.Edges) > 0 {
		for _, e := range ts.Edges {
			if e.Source < 0 || e.Source >= len(ts.Nodes) || e.Target < 0 || e.Target >= len(ts.Nodes) {
				continue
			}
			src, dst := ts.Nodes[e.Source], ts.Nodes[e.Target]
			if src.DependencyType == domain.TypeSelf || dst.DependencyType == domain.TypeSelf {
				continue
			}
			g.Edges = append(g.Edges, domain.GraphEdge{
				Source: src.Key(),
				Target: dst.Key(),
				Type:   domain.TypeTransitive,
			})
		}
		return
	}

	for _, t := range ts.Nodes {
		if len(t.Vulnerabilities) == 0 || t.DependencyType == domain.TypeSelf {
			continue
		}
		g.Edges = append(g.Edges, domain.GraphEdge{
			Source: parentKey,
			Target: t.Key(),
			Type:   domain.TypeTransitive,
		})
	}
}

func includeDependency(dep domain.Dependency) bool {
	if len(dep.Vulnerabilities) > 0 {
		return true
	}
	if dep.Transitive == nil {
		return false
	}
	for _, t := range dep.Transitive.Nodes {
		if len(t.Vulnerabilities) > 0 {
			return true
		}
	}
	return false
}

func centerLabel(repoKey string) string {
	if i := strings.LastIndex(repoKey, "/"); i >= 0 && i+1 < len(repoKey) {
		return repoKey[i+1:]
	}
	return repoKey
}
