package domain

import (
	fixplan "github.com/depscope/depscope-backend/internal/fixplan/domain"
)

// State is the live, non-persisted part of a workspace session: the
// current selection plus a per-ecosystem mirror of generation progress.
// All mutations go through reducers that return a full replacement
// value, so readers never observe a partial update.
type State struct {
	SelectedBranch    string                      `json:"selected_branch"`
	SelectedEcosystem string                      `json:"selected_ecosystem"`
	Progress          map[string]fixplan.Progress `json:"progress,omitempty"`
}

// WithSelection returns a new state with the selection replaced.
func (s State) WithSelection(branch, ecosystem string) State {
	next := s.Clone()
	next.SelectedBranch = branch
	next.SelectedEcosystem = ecosystem
	return next
}

// WithProgress returns a new state with one scope's progress replaced.
func (s State) WithProgress(scope string, p fixplan.Progress) State {
	next := s.Clone()
	if next.Progress == nil {
		next.Progress = make(map[string]fixplan.Progress)
	}
	next.Progress[scope] = p
	return next
}

// Clone returns an independent copy of the state.
func (s State) Clone() State {
	next := s
	if s.Progress != nil {
		next.Progress = make(map[string]fixplan.Progress, len(s.Progress))
		for scope, p := range s.Progress {
			next.Progress[scope] = p
		}
	}
	return next
}
