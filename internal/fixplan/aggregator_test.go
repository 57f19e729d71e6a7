package fixplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depscope/depscope-backend/internal/fixplan/domain"
)

func TestAggregatorPlanEvents(t *testing.T) {
	t.Run("flat global plan is stored canonically", func(t *testing.T) {
		agg := NewAggregator("octocat/hello-world/main")
		agg.Begin()

		changed := agg.Apply(domain.StreamEvent{
			Kind: domain.EventKindPlan,
			Plan: `{"executive_summary": {"overview": "one critical"}}`,
		})

		assert.True(t, changed)
		state := agg.Snapshot()
		assert.Contains(t, state.Entry.GlobalFixPlan, "executive_summary")
		assert.False(t, state.Entry.Timestamp.IsZero())
	})

	t.Run("single-ecosystem keyed payload mirrors into the global slot", func(t *testing.T) {
		agg := NewAggregator("octocat/hello-world/main")
		agg.Begin()

		agg.Apply(domain.StreamEvent{
			Kind: domain.EventKindPlan,
			Plan: `{"npm": {"executive_summary": {"overview": "ok"}}}`,
		})

		state := agg.Snapshot()
		require.Contains(t, state.Entry.EcosystemFixPlans, "npm")
		assert.Equal(t, state.Entry.EcosystemFixPlans["npm"], state.Entry.GlobalFixPlan)
		assert.False(t, state.Entry.HasMultipleEcosystems)
	})

	t.Run("multi-ecosystem keyed payload does not mirror", func(t *testing.T) {
		agg := NewAggregator("octocat/hello-world/main")
		agg.Begin()

		agg.Apply(domain.StreamEvent{
			Kind: domain.EventKindPlan,
			Plan: `{"npm": {"executive_summary": {}}, "PyPI": {"executive_summary": {}}}`,
		})

		state := agg.Snapshot()
		assert.Len(t, state.Entry.EcosystemFixPlans, 2)
		assert.True(t, state.Entry.HasMultipleEcosystems)
		assert.Empty(t, state.Entry.GlobalFixPlan)
	})

	t.Run("unparseable payload changes nothing", func(t *testing.T) {
		agg := NewAggregator("octocat/hello-world/main")
		agg.Begin()
		before := agg.Snapshot()

		changed := agg.Apply(domain.StreamEvent{Kind: domain.EventKindPlan, Plan: "not json"})

		assert.False(t, changed)
		assert.Equal(t, before.Revision, agg.Snapshot().Revision)
	})

	t.Run("identical plan twice bumps revision once", func(t *testing.T) {
		agg := NewAggregator("octocat/hello-world/main")
		agg.Begin()
		ev := domain.StreamEvent{Kind: domain.EventKindPlan, Plan: `{"executive_summary": {}}`}

		require.True(t, agg.Apply(ev))
		rev := agg.Snapshot().Revision
		assert.False(t, agg.Apply(ev))
		assert.Equal(t, rev, agg.Snapshot().Revision)
	})
}

func TestAggregatorProgressEvents(t *testing.T) {
	t.Run("updates step phase and percent for the global scope", func(t *testing.T) {
		agg := NewAggregator("octocat/hello-world/main")
		agg.Begin()

		changed := agg.Apply(domain.StreamEvent{
			Kind:    domain.EventKindProgress,
			Step:    "analyzing_dependencies",
			Message: "walking npm tree",
			Percent: 30,
		})

		assert.True(t, changed)
		p := agg.Snapshot().Progress[domain.ScopeGlobal]
		require.NotNil(t, p)
		assert.Equal(t, PhaseAnalysis, p.Phase)
		assert.Equal(t, "analyzing_dependencies", p.Step)
		assert.Equal(t, 30.0, p.Percent)
	})

	t.Run("ecosystem scope tracks independently of global", func(t *testing.T) {
		agg := NewAggregator("octocat/hello-world/main")
		agg.Begin()

		agg.Apply(domain.StreamEvent{Kind: domain.EventKindProgress, Percent: 10})
		agg.Apply(domain.StreamEvent{Kind: domain.EventKindProgress, Ecosystem: "npm", Percent: 55})

		state := agg.Snapshot()
		assert.Equal(t, 10.0, state.Progress[domain.ScopeGlobal].Percent)
		assert.Equal(t, 55.0, state.Progress["npm"].Percent)
	})

	t.Run("unknown step keeps the current phase", func(t *testing.T) {
		agg := NewAggregator("octocat/hello-world/main")
		agg.Begin()
		agg.Apply(domain.StreamEvent{Kind: domain.EventKindProgress, Step: "building_phases", Percent: 50})

		agg.Apply(domain.StreamEvent{Kind: domain.EventKindProgress, Step: "experimental_step", Percent: 60})

		p := agg.Snapshot().Progress[domain.ScopeGlobal]
		assert.Equal(t, PhasePlanning, p.Phase)
		assert.Equal(t, "experimental_step", p.Step)
	})

	t.Run("partial fragments merge into the scope's partial plan", func(t *testing.T) {
		agg := NewAggregator("octocat/hello-world/main")
		agg.Begin()

		agg.Apply(domain.StreamEvent{
			Kind:      domain.EventKindProgress,
			Ecosystem: "npm",
			Percent:   40,
			Sections: map[string]any{
				"dependency_intelligence": map[string]any{"left-pad@1.3.0": map[string]any{"action": "upgrade"}},
			},
		})

		partial := agg.Snapshot().Entry.EcosystemPartialFixPlans["npm"]
		require.NotNil(t, partial)
		assert.Contains(t, partial.DependencyIntelligence.(map[string]any), "left-pad@1.3.0")
	})

	t.Run("re-applied fragment produces one observable change not two", func(t *testing.T) {
		agg := NewAggregator("octocat/hello-world/main")
		agg.Begin()
		ev := domain.StreamEvent{
			Kind:    domain.EventKindProgress,
			Percent: 40,
			Sections: map[string]any{
				"risk_management": map[string]any{"rollback": "git revert"},
			},
		}

		require.True(t, agg.Apply(ev))
		rev := agg.Snapshot().Revision
		assert.False(t, agg.Apply(ev))
		assert.Equal(t, rev, agg.Snapshot().Revision)
	})
}

func TestAggregatorErrorEvents(t *testing.T) {
	t.Run("dependency-scoped errors accumulate without halting", func(t *testing.T) {
		agg := NewAggregator("octocat/hello-world/main")
		agg.Begin()

		agg.Apply(domain.StreamEvent{Kind: domain.EventKindError, Message: "upgrade failed for left-pad@1.3.0"})
		agg.Apply(domain.StreamEvent{Kind: domain.EventKindError, Message: "no candidate for qs@6.5.2"})

		state := agg.Snapshot()
		assert.Equal(t, domain.StatusGenerating, state.Status)
		assert.Len(t, state.Errors, 2)
		assert.Contains(t, state.Errors, "left-pad@1.3.0")
		assert.Contains(t, state.Errors, "qs@6.5.2")
	})

	t.Run("critical error halts generation under the reserved key", func(t *testing.T) {
		agg := NewAggregator("octocat/hello-world/main")
		agg.Begin()

		changed := agg.Apply(domain.StreamEvent{
			Kind:     domain.EventKindError,
			Message:  "generator backend unavailable",
			Critical: true,
		})

		assert.True(t, changed)
		state := agg.Snapshot()
		assert.Equal(t, domain.StatusIdle, state.Status)
		assert.Equal(t, "generator backend unavailable", state.Errors[domain.ScopeGlobal])
	})

	t.Run("message without a dependency token is treated as critical", func(t *testing.T) {
		agg := NewAggregator("octocat/hello-world/main")
		agg.Begin()

		agg.Apply(domain.StreamEvent{Kind: domain.EventKindError, Message: "out of memory"})

		state := agg.Snapshot()
		assert.Equal(t, domain.StatusIdle, state.Status)
		assert.Contains(t, state.Errors, domain.ScopeGlobal)
	})
}

func TestAggregatorLifecycle(t *testing.T) {
	t.Run("completion clears the generating flag and marks the plan", func(t *testing.T) {
		agg := NewAggregator("octocat/hello-world/main")
		agg.Begin()
		agg.Apply(domain.StreamEvent{Kind: domain.EventKindPlan, Plan: `{"executive_summary": {}}`})

		changed := agg.Apply(domain.StreamEvent{Kind: domain.EventKindComplete})

		assert.True(t, changed)
		state := agg.Snapshot()
		assert.Equal(t, domain.StatusIdle, state.Status)
		assert.True(t, state.Entry.IsFixPlanGenerated)
	})

	t.Run("begin replaces the cache entry wholesale", func(t *testing.T) {
		agg := NewAggregator("octocat/hello-world/main")
		agg.Begin()
		agg.Apply(domain.StreamEvent{Kind: domain.EventKindPlan, Plan: `{"npm": {"executive_summary": {}}}`})
		agg.Apply(domain.StreamEvent{Kind: domain.EventKindError, Message: "upgrade failed for left-pad@1.3.0"})

		agg.Begin()

		state := agg.Snapshot()
		assert.Empty(t, state.Entry.EcosystemFixPlans)
		assert.Empty(t, state.Entry.GlobalFixPlan)
		assert.Empty(t, state.Errors)
		assert.Equal(t, domain.StatusGenerating, state.Status)
	})

	t.Run("seeded entry is visible before any event", func(t *testing.T) {
		agg := NewAggregator("octocat/hello-world/main")
		agg.Seed(domain.CacheEntry{GlobalFixPlan: `{"executive_summary":{}}`, IsFixPlanGenerated: true})

		state := agg.Snapshot()

		assert.True(t, state.Entry.HasPlan())
		assert.Equal(t, domain.StatusIdle, state.Status)
	})
}

func TestAggregatorSnapshotIsolation(t *testing.T) {
	agg := NewAggregator("octocat/hello-world/main")
	agg.Begin()
	agg.Apply(domain.StreamEvent{
		Kind:     domain.EventKindProgress,
		Percent:  10,
		Sections: map[string]any{"metadata": map[string]any{"generator": "v2"}},
	})

	snap := agg.Snapshot()
	snap.Entry.EcosystemPartialFixPlans[domain.ScopeGlobal].Metadata.(map[string]any)["generator"] = "mutated"
	snap.Progress[domain.ScopeGlobal].Percent = 99

	fresh := agg.Snapshot()
	assert.Equal(t, "v2", fresh.Entry.EcosystemPartialFixPlans[domain.ScopeGlobal].Metadata.(map[string]any)["generator"])
	assert.Equal(t, 10.0, fresh.Progress[domain.ScopeGlobal].Percent)
}

func TestDependencyToken(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"plain identity key", "upgrade failed for left-pad@1.3.0", "left-pad@1.3.0"},
		{"no token", "backend exploded", ""},
		{"short at-token skipped", "a@b failed hard", ""},
		{"first qualifying token wins", "conflict between qs@6.5.2 and qs@6.11.0", "qs@6.5.2"},
		{"empty message", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dependencyToken(tt.message))
		})
	}
}
