package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/depscope/depscope-backend/internal/depgraph/domain"
)

func TestGroupByEcosystem(t *testing.T) {
	t.Run("buckets by ecosystem tag", func(t *testing.T) {
		deps := []domain.Dependency{
			{Name: "left-pad", Version: "1.3.0", Ecosystem: "npm"},
			{Name: "requests", Version: "2.31.0", Ecosystem: "PyPI"},
			{Name: "lodash", Version: "4.17.21", Ecosystem: "npm"},
		}

		grouped := GroupByEcosystem(deps)

		assert.Len(t, grouped, 2)
		assert.Len(t, grouped["npm"], 2)
		assert.Len(t, grouped["PyPI"], 1)
	})

	t.Run("untagged dependencies get their own bucket", func(t *testing.T) {
		deps := []domain.Dependency{
			{Name: "mystery", Version: "0.0.1"},
		}

		grouped := GroupByEcosystem(deps)

		assert.Len(t, grouped, 1)
		assert.Equal(t, "mystery", grouped[domain.EcosystemUnknown][0].Name)
	})

	t.Run("empty input yields empty map", func(t *testing.T) {
		assert.Empty(t, GroupByEcosystem(nil))
	})
}
