package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/depscope/depscope-backend/internal/api/logging"
	branchesdomain "github.com/depscope/depscope-backend/internal/branches/domain"
	branchesservice "github.com/depscope/depscope-backend/internal/branches/service"
	fixplandomain "github.com/depscope/depscope-backend/internal/fixplan/domain"
	fixplanrepo "github.com/depscope/depscope-backend/internal/fixplan/repository"
	fixplanservice "github.com/depscope/depscope-backend/internal/fixplan/service"
	historydomain "github.com/depscope/depscope-backend/internal/history/domain"
	historyservice "github.com/depscope/depscope-backend/internal/history/service"
	"github.com/depscope/depscope-backend/internal/workspace/domain"
	"github.com/depscope/depscope-backend/internal/workspace/repository"
)

// WorkspaceService composes the persisted session snapshot from its
// owning stores and applies imported snapshots back. Live selection
// state is held here and mutated only through the domain reducers.
type WorkspaceService struct {
	repo       *repository.SnapshotRepository
	history    *historyservice.HistoryService
	plans      *fixplanrepo.PlanRepository
	paginator  *branchesservice.Paginator
	generation *fixplanservice.GenerationService

	mu     sync.Mutex
	states map[string]domain.State
}

// NewWorkspaceService creates a new WorkspaceService. generation may be
// nil; the progress mirror is then left as last restored.
func NewWorkspaceService(
	repo *repository.SnapshotRepository,
	history *historyservice.HistoryService,
	plans *fixplanrepo.PlanRepository,
	paginator *branchesservice.Paginator,
	generation *fixplanservice.GenerationService,
) *WorkspaceService {
	return &WorkspaceService{
		repo:       repo,
		history:    history,
		plans:      plans,
		paginator:  paginator,
		generation: generation,
		states:     make(map[string]domain.State),
	}
}

// State returns the live selection state for a workspace.
func (s *WorkspaceService) State(workspaceID string) domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[workspaceID].Clone()
}

// SetSelection replaces the selected branch and ecosystem.
func (s *WorkspaceService) SetSelection(workspaceID, branch, ecosystem string) domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.states[workspaceID].WithSelection(branch, ecosystem)
	s.states[workspaceID] = next
	return next.Clone()
}

// BuildSnapshot composes the allow-listed snapshot from the live state
// and the owning stores, persists it and returns it.
func (s *WorkspaceService) BuildSnapshot(ctx context.Context, workspaceID string) (domain.Snapshot, error) {
	pagination := s.paginator.State(workspaceID)
	s.refreshProgressMirror(ctx, workspaceID, pagination)

	state := s.State(workspaceID)
	hlog, err := s.history.Log(ctx, workspaceID)
	if err != nil {
		return domain.Snapshot{}, err
	}

	snap := domain.Snapshot{
		Pagination:        pagination,
		SelectedBranch:    state.SelectedBranch,
		SelectedEcosystem: state.SelectedEcosystem,
		Progress:          state.Progress,
		History:           hlog,
		FixPlans:          make(map[string]fixplandomain.CacheEntry),
	}

	for _, key := range collectPlanKeys(hlog, pagination, state.SelectedBranch) {
		entry, err := s.plans.Get(ctx, key)
		if errors.Is(err, fixplandomain.ErrPlanNotFound) {
			continue
		}
		if err != nil {
			return domain.Snapshot{}, err
		}
		snap.FixPlans[key.String()] = *entry
	}

	if err := s.repo.Save(ctx, workspaceID, snap); err != nil {
		return domain.Snapshot{}, err
	}
	logging.NewLogger(ctx).LogInfof("build_snapshot", "workspace=%s history=%d plans=%d",
		workspaceID, hlog.Total(), len(snap.FixPlans))
	return snap, nil
}

// RestoreSnapshot applies an imported snapshot to every owning store
// and persists it as the workspace's current snapshot.
func (s *WorkspaceService) RestoreSnapshot(ctx context.Context, workspaceID string, snap domain.Snapshot) error {
	s.paginator.Restore(workspaceID, snap.Pagination)

	s.mu.Lock()
	state := domain.State{}.WithSelection(snap.SelectedBranch, snap.SelectedEcosystem)
	for scope, p := range snap.Progress {
		state = state.WithProgress(scope, p)
	}
	s.states[workspaceID] = state
	s.mu.Unlock()

	if snap.History != nil {
		if err := s.history.Replace(ctx, workspaceID, snap.History); err != nil {
			return err
		}
	}
	for key, entry := range snap.FixPlans {
		pk, err := parsePlanKey(key)
		if err != nil {
			log.Printf("[workspace] skipping plan entry with malformed key %q: %v", key, err)
			continue
		}
		if err := s.plans.Save(ctx, pk, entry); err != nil {
			return err
		}
	}

	if err := s.repo.Save(ctx, workspaceID, snap); err != nil {
		return err
	}
	logging.NewLogger(ctx).LogInfof("restore_snapshot", "workspace=%s history=%d plans=%d",
		workspaceID, snap.History.Total(), len(snap.FixPlans))
	return nil
}

// refreshProgressMirror pulls the latest per-ecosystem progress for the
// loaded repository context into the live state.
func (s *WorkspaceService) refreshProgressMirror(ctx context.Context, workspaceID string, pagination branchesdomain.PageState) {
	if s.generation == nil {
		return
	}
	owner, repoName, ok := strings.Cut(pagination.LoadedRepoKey, "/")
	if !ok {
		return
	}
	s.mu.Lock()
	branch := s.states[workspaceID].SelectedBranch
	s.mu.Unlock()

	key := fixplandomain.PlanKey{Owner: owner, Repo: repoName, Branch: branch}
	genState, err := s.generation.State(ctx, key)
	if err != nil || len(genState.Progress) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.states[workspaceID]
	for scope, p := range genState.Progress {
		if p != nil {
			state = state.WithProgress(scope, *p)
		}
	}
	s.states[workspaceID] = state
}

// collectPlanKeys lists every repository context the workspace knows: a
// key per saved history entry plus the loaded repo with the selected
// branch.
func collectPlanKeys(hlog historydomain.Log, pagination branchesdomain.PageState, selectedBranch string) []fixplandomain.PlanKey {
	seen := make(map[string]struct{})
	var keys []fixplandomain.PlanKey
	add := func(key fixplandomain.PlanKey) {
		if fixplanservice.ValidatePlanKey(key) != nil {
			return
		}
		if _, ok := seen[key.String()]; ok {
			return
		}
		seen[key.String()] = struct{}{}
		keys = append(keys, key)
	}

	for _, items := range hlog {
		for _, item := range items {
			add(fixplandomain.PlanKey{Owner: item.Username, Repo: item.Repo, Branch: item.Branch})
		}
	}
	if owner, repoName, ok := strings.Cut(pagination.LoadedRepoKey, "/"); ok {
		add(fixplandomain.PlanKey{Owner: owner, Repo: repoName, Branch: selectedBranch})
	}
	return keys
}

func parsePlanKey(key string) (fixplandomain.PlanKey, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 {
		return fixplandomain.PlanKey{}, fixplandomain.ErrInvalidPlanKey
	}
	pk := fixplandomain.PlanKey{Owner: parts[0], Repo: parts[1], Branch: parts[2]}
	if err := fixplanservice.ValidatePlanKey(pk); err != nil {
		return fixplandomain.PlanKey{}, err
	}
	return pk, nil
}
