package domain

// Dependency node/edge classification. The values are part of the wire
// format consumed by graph renderers, so they stay uppercase.
const (
	TypeCenter     = "CENTER"
	TypePrimary    = "PRIMARY"
	TypeTransitive = "TRANSITIVE"
	TypeSelf       = "SELF"
)

// EcosystemUnknown is the bucket for dependencies without an ecosystem tag.
const EcosystemUnknown = "unknown"

// Dependency represents one scanned dependency as supplied by the
// vulnerability source, including its nested transitive closure.
type Dependency struct {
	Name            string          `json:"name"`
	Version         string          `json:"version"`
	Ecosystem       string          `json:"ecosystem,omitempty"`
	FilePath        string          `json:"file_path,omitempty"`
	DependencyType  string          `json:"dependency_type,omitempty"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities,omitempty"`
	Transitive      *TransitiveSet  `json:"transitive_dependencies,omitempty"`
}

// Key returns the identity key (`name@version`) used for node
// deduplication and addressing throughout the system.
func (d Dependency) Key() string {
	return d.Name + "@" + d.Version
}

// TransitiveSet is the nested transitive closure carried by a dependency.
// Edges, when present, index into Nodes.
type TransitiveSet struct {
	Nodes []Dependency     `json:"nodes"`
	Edges []TransitiveEdge `json:"edges,omitempty"`
}

// TransitiveEdge references Nodes of its owning TransitiveSet by index.
type TransitiveEdge struct {
	Source      int    `json:"source"`
	Target      int    `json:"target"`
	Requirement string `json:"requirement,omitempty"`
}

// Vulnerability represents one advisory attached to a dependency. Scores
// arrive as strings from the scanner; numeric severity is derived.
type Vulnerability struct {
	ID            string         `json:"id"`
	SeverityScore *SeverityScore `json:"severity_score,omitempty"`
	Affected      any            `json:"affected,omitempty"`
	References    any            `json:"references,omitempty"`
}

// SeverityScore carries the raw CVSS score strings per scale version.
type SeverityScore struct {
	CVSSv3 string `json:"cvss_v3,omitempty"`
	CVSSv4 string `json:"cvss_v4,omitempty"`
}

// GraphNode is one rendered node. ID is the identity key for dependency
// nodes and the repository key for the center node; ids are unique within
// one ecosystem's graph.
type GraphNode struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Label     string  `json:"label"`
	Version   string  `json:"version,omitempty"`
	Ecosystem string  `json:"ecosystem,omitempty"`
	Severity  float64 `json:"severity,omitempty"`
	VulnCount int     `json:"vuln_count,omitempty"`
}

// GraphEdge links two node ids within one ecosystem's graph.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Graph is one ecosystem's node/edge set.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// EcosystemGraphMap maps ecosystem name to its graph. Keys are unique,
// iteration order carries no meaning.
type EcosystemGraphMap map[string]*Graph

// AnalyzeRequest is the payload for a graph build over already-fetched
// dependency data.
type AnalyzeRequest struct {
	Repo         string       `json:"repo"`
	Dependencies []Dependency `json:"dependencies"`
}
