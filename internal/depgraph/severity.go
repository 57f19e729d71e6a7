// Package depgraph turns grouped dependency/vulnerability data into
// per-ecosystem node/edge graphs focused on actionable risk.
package depgraph

import (
	"strconv"
	"strings"

	"github.com/depscope/depscope-backend/internal/depgraph/domain"
)

// MaxSeverity returns the highest parseable CVSS score across all score
// fields of all vulnerabilities, or 0 when nothing parses. Scanner data
// carries scores as strings and is allowed to be malformed.
func MaxSeverity(vulns []domain.Vulnerability) float64 {
	max := 0.0
	for _, v := range vulns {
		if v.SeverityScore == nil {
			continue
		}
		for _, raw := range []string{v.SeverityScore.CVSSv3, v.SeverityScore.CVSSv4} {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			score, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			if score > max {
				max = score
			}
		}
	}
	return max
}
