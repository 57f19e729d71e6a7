package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/depscope/depscope-backend/internal/api/logging"
	"github.com/depscope/depscope-backend/internal/branches/domain"
	historyservice "github.com/depscope/depscope-backend/internal/history/service"
)

const (
	// debounceWindow is the quiet window for repo-input validation.
	debounceWindow = 300 * time.Millisecond

	// validateTimeout bounds the background load a debounced trigger
	// fires.
	validateTimeout = 15 * time.Second
)

// BranchLister is the external branch-listing collaborator.
type BranchLister interface {
	ListBranches(ctx context.Context, owner, repo string, page int) (domain.Page, error)
}

// Paginator owns per-workspace branch pagination: page 1 served from
// the history seed cache when possible, follow-up pages always fetched
// and union-merged, one in-flight fetch at a time.
type Paginator struct {
	lister   BranchLister
	history  *historyservice.HistoryService
	debounce *Debouncer

	mu      sync.Mutex
	states  map[string]*domain.PageState
	pending map[string]bool
}

// NewPaginator creates a Paginator over the given lister and history
// seed cache.
func NewPaginator(lister BranchLister, history *historyservice.HistoryService) *Paginator {
	return &Paginator{
		lister:   lister,
		history:  history,
		debounce: NewDebouncer(debounceWindow),
		states:   make(map[string]*domain.PageState),
		pending:  make(map[string]bool),
	}
}

// FirstPage loads page 1 for the repository. Switching to a different
// repository clears the previous state before anything is fetched. A
// history seed serves the page without touching the backend unless
// force is set.
func (p *Paginator) FirstPage(ctx context.Context, workspaceID string, ref domain.RepoRef, force bool) (domain.PageState, error) {
	key := ref.Key()
	logger := logging.NewLogger(ctx)

	p.mu.Lock()
	state := p.ensureLocked(workspaceID)
	if state.LoadedRepoKey != key {
		*state = domain.PageState{Page: 1, LoadedRepoKey: key}
	}

	if !force {
		if p.pending[workspaceID] {
			snap := snapshot(state)
			p.mu.Unlock()
			return snap, nil
		}
		p.mu.Unlock()
		seed, ok, err := p.history.BranchSeed(ctx, workspaceID, ref.Owner, ref.Repo)
		p.mu.Lock()
		if err == nil && ok && state.LoadedRepoKey == key {
			state.Branches = seed
			state.Page = 1
			state.HasMore = len(seed) >= domain.PageSize
			state.TotalBranches = len(seed)
			snap := snapshot(state)
			p.mu.Unlock()
			logger.LogInfof("load_branches", "repo=%s page=1 source=cache count=%d", key, len(seed))
			return snap, nil
		}
		if err != nil {
			logger.LogWarn("load_branches", "branch seed lookup failed: "+err.Error())
		}
		// the lock was dropped for the seed lookup; another call may
		// have started a fetch in the meantime
		if p.pending[workspaceID] {
			snap := snapshot(state)
			p.mu.Unlock()
			return snap, nil
		}
	}

	p.pending[workspaceID] = true
	p.mu.Unlock()

	page, err := p.lister.ListBranches(ctx, ref.Owner, ref.Repo, 1)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[workspaceID] = false

	if state.LoadedRepoKey != key {
		// repository switched while the fetch was in flight
		return snapshot(state), nil
	}
	if err != nil {
		return snapshot(state), err
	}
	if page.Error != "" {
		return snapshot(state), fmt.Errorf("%w: %s", domain.ErrPageFailed, page.Error)
	}

	branches := page.Branches
	if page.DefaultBranch != "" && !contains(branches, page.DefaultBranch) {
		branches = append([]string{page.DefaultBranch}, branches...)
	}
	state.Branches = branches
	state.Page = 1
	state.HasMore = page.HasMore
	state.TotalBranches = pageTotal(page, branches)

	logger.LogInfof("load_branches", "repo=%s page=1 source=fetch count=%d has_more=%v", key, len(branches), state.HasMore)
	return snapshot(state), nil
}

// LoadMore fetches the next page and union-merges it into the existing
// list. It only fires when hasMore is set and no fetch is pending;
// otherwise the current state is returned untouched.
func (p *Paginator) LoadMore(ctx context.Context, workspaceID string) (domain.PageState, error) {
	p.mu.Lock()
	state := p.ensureLocked(workspaceID)
	if state.LoadedRepoKey == "" {
		p.mu.Unlock()
		return domain.PageState{}, domain.ErrNoRepoLoaded
	}
	if !state.HasMore || p.pending[workspaceID] {
		snap := snapshot(state)
		p.mu.Unlock()
		return snap, nil
	}

	key := state.LoadedRepoKey
	next := state.Page + 1
	owner, repo, _ := strings.Cut(key, "/")
	p.pending[workspaceID] = true
	p.mu.Unlock()

	page, err := p.lister.ListBranches(ctx, owner, repo, next)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[workspaceID] = false

	if state.LoadedRepoKey != key {
		return snapshot(state), nil
	}
	if err != nil {
		return snapshot(state), err
	}
	if page.Error != "" {
		return snapshot(state), fmt.Errorf("%w: %s", domain.ErrPageFailed, page.Error)
	}

	state.Branches = unionBranches(state.Branches, page.Branches)
	state.Page = next
	state.HasMore = page.HasMore
	state.TotalBranches = pageTotal(page, state.Branches)

	logging.NewLogger(ctx).LogInfof("load_branches", "repo=%s page=%d count=%d has_more=%v", key, next, len(state.Branches), state.HasMore)
	return snapshot(state), nil
}

// State returns the current pagination snapshot for a workspace.
func (p *Paginator) State(workspaceID string) domain.PageState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return snapshot(p.ensureLocked(workspaceID))
}

// Restore replaces a workspace's pagination state wholesale, used when
// importing a persisted snapshot.
func (p *Paginator) Restore(workspaceID string, state domain.PageState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	restored := state
	restored.Branches = append([]string(nil), state.Branches...)
	p.states[workspaceID] = &restored
}

// Validate schedules a first-page load after the debounce quiet window.
// Rapid repeated inputs for the same workspace collapse into one fetch.
func (p *Paginator) Validate(workspaceID string, ref domain.RepoRef) {
	p.debounce.Trigger(workspaceID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
		defer cancel()
		if _, err := p.FirstPage(ctx, workspaceID, ref, false); err != nil {
			log.Printf("[branches] debounced load for %s failed: %v", ref.Key(), err)
		}
	})
}

// Close cancels pending debounced triggers.
func (p *Paginator) Close() {
	p.debounce.Stop()
}

func (p *Paginator) ensureLocked(workspaceID string) *domain.PageState {
	if state, ok := p.states[workspaceID]; ok {
		return state
	}
	state := &domain.PageState{Page: 1}
	p.states[workspaceID] = state
	return state
}

func snapshot(state *domain.PageState) domain.PageState {
	snap := *state
	snap.Branches = append([]string(nil), state.Branches...)
	return snap
}

// unionBranches appends genuinely new names while preserving the
// existing order.
func unionBranches(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, name := range existing {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		merged = append(merged, name)
	}
	for _, name := range incoming {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		merged = append(merged, name)
	}
	return merged
}

func pageTotal(page domain.Page, branches []string) int {
	if page.Total > 0 {
		return page.Total
	}
	return len(branches)
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}
