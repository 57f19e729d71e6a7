package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	fixplan "github.com/depscope/depscope-backend/internal/fixplan/domain"
)

func TestWithSelection_DoesNotMutateReceiver(t *testing.T) {
	orig := State{SelectedBranch: "main", SelectedEcosystem: "npm"}

	next := orig.WithSelection("develop", "pypi")

	assert.Equal(t, "main", orig.SelectedBranch)
	assert.Equal(t, "npm", orig.SelectedEcosystem)
	assert.Equal(t, "develop", next.SelectedBranch)
	assert.Equal(t, "pypi", next.SelectedEcosystem)
}

func TestWithProgress_DoesNotMutateReceiver(t *testing.T) {
	orig := State{}.WithProgress("npm", fixplan.Progress{Step: "resolving_upgrades", Percent: 10})

	next := orig.WithProgress("npm", fixplan.Progress{Step: "writing_plan", Percent: 90})
	next = next.WithProgress("pypi", fixplan.Progress{Step: "resolving_upgrades", Percent: 5})

	assert.Equal(t, "resolving_upgrades", orig.Progress["npm"].Step)
	assert.NotContains(t, orig.Progress, "pypi")
	assert.Equal(t, "writing_plan", next.Progress["npm"].Step)
	assert.Contains(t, next.Progress, "pypi")
}

func TestClone_Independent(t *testing.T) {
	orig := State{
		SelectedBranch: "main",
		Progress:       map[string]fixplan.Progress{"npm": {Percent: 50}},
	}

	clone := orig.Clone()
	clone.Progress["npm"] = fixplan.Progress{Percent: 100}

	assert.Equal(t, float64(50), orig.Progress["npm"].Percent)
}
