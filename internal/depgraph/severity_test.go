package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/depscope/depscope-backend/internal/depgraph/domain"
)

func TestMaxSeverity(t *testing.T) {
	t.Run("takes maximum across all score fields", func(t *testing.T) {
		vulns := []domain.Vulnerability{
			{ID: "GHSA-1", SeverityScore: &domain.SeverityScore{CVSSv3: "6.1"}},
			{ID: "GHSA-2", SeverityScore: &domain.SeverityScore{CVSSv4: "8.3"}},
		}

		assert.Equal(t, 8.3, MaxSeverity(vulns))
	})

	t.Run("both fields on one vulnerability", func(t *testing.T) {
		vulns := []domain.Vulnerability{
			{ID: "GHSA-1", SeverityScore: &domain.SeverityScore{CVSSv3: "4.0", CVSSv4: "9.9"}},
		}

		assert.Equal(t, 9.9, MaxSeverity(vulns))
	})

	t.Run("no parseable fields yields zero", func(t *testing.T) {
		vulns := []domain.Vulnerability{
			{ID: "GHSA-1", SeverityScore: &domain.SeverityScore{CVSSv3: "high", CVSSv4: "n/a"}},
			{ID: "GHSA-2"},
		}

		assert.Equal(t, 0.0, MaxSeverity(vulns))
	})

	t.Run("empty list yields zero", func(t *testing.T) {
		assert.Equal(t, 0.0, MaxSeverity(nil))
	})

	t.Run("unparsable entries are skipped not fatal", func(t *testing.T) {
		vulns := []domain.Vulnerability{
			{ID: "GHSA-1", SeverityScore: &domain.SeverityScore{CVSSv3: "oops"}},
			{ID: "GHSA-2", SeverityScore: &domain.SeverityScore{CVSSv3: " 7.5 "}},
		}

		assert.Equal(t, 7.5, MaxSeverity(vulns))
	})
}
