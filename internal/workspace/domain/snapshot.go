package domain

import (
	branches "github.com/depscope/depscope-backend/internal/branches/domain"
	fixplan "github.com/depscope/depscope-backend/internal/fixplan/domain"
	history "github.com/depscope/depscope-backend/internal/history/domain"
)

// Snapshot is the persisted projection of a workspace session. The
// field set is a strict allow-list: branch pagination, the current
// selection, the per-ecosystem progress mirror, saved history entries
// and the fix-plan cache by repository key. Everything else is rebuilt
// fresh each session.
type Snapshot struct {
	Pagination        branches.PageState            `json:"pagination"`
	SelectedBranch    string                        `json:"selected_branch,omitempty"`
	SelectedEcosystem string                        `json:"selected_ecosystem,omitempty"`
	Progress          map[string]fixplan.Progress   `json:"progress,omitempty"`
	History           history.Log                   `json:"history,omitempty"`
	FixPlans          map[string]fixplan.CacheEntry `json:"fix_plans,omitempty"`
}
