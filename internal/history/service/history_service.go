package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/depscope/depscope-backend/internal/api/logging"
	"github.com/depscope/depscope-backend/internal/history/domain"
	"github.com/depscope/depscope-backend/internal/history/repository"
)

// defaultBranchNames are the conventional default branches preferred by
// the branch-seed lookup.
var defaultBranchNames = []string{"main", "master", "develop", "trunk"}

// HistoryService owns the saved-analysis log: TTL lookups, capacity
// enforcement and the branch-independent seed cache.
type HistoryService struct {
	repo *repository.HistoryRepository
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(repo *repository.HistoryRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

// Log returns the full history document for a workspace.
func (s *HistoryService) Log(ctx context.Context, workspaceID string) (domain.Log, error) {
	return s.repo.Get(ctx, workspaceID)
}

// Lookup returns the freshest saved analysis for the exact repository
// context. Misses are normal control flow: stale entries, forced
// refreshes and absent keys all report ok=false without error.
func (s *HistoryService) Lookup(ctx context.Context, workspaceID, username, repo, branch string, forceRefresh bool) (*domain.HistoryItem, bool, error) {
	if forceRefresh {
		return nil, false, nil
	}
	log, err := s.repo.Get(ctx, workspaceID)
	if err != nil {
		return nil, false, err
	}

	var newest *domain.HistoryItem
	for _, date := range log.Dates() {
		for _, it := range log[date] {
			if !it.Matches(username, repo, branch) {
				continue
			}
			if newest == nil || it.CachedAt.After(newest.CachedAt) {
				found := it
				newest = &found
			}
		}
	}
	if newest == nil || !newest.Fresh(time.Now()) {
		return nil, false, nil
	}
	return newest, true, nil
}

// Save appends a new analysis to today's bucket. Saves are rejected at
// capacity and for a duplicate repository context within the same date
// bucket; nothing is ever evicted to make room.
func (s *HistoryService) Save(ctx context.Context, workspaceID string, item domain.HistoryItem) (*domain.HistoryItem, error) {
	log, err := s.repo.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if log.Total() >= domain.MaxEntries {
		return nil, domain.ErrLogFull
	}

	if item.CachedAt.IsZero() {
		item.CachedAt = time.Now().UTC()
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	date := item.CachedAt.UTC().Format(domain.DateLayout)

	for _, it := range log[date] {
		if it.Matches(item.Username, item.Repo, item.Branch) {
			return nil, domain.ErrDuplicateEntry
		}
	}

	log[date] = append([]domain.HistoryItem{item}, log[date]...)
	if err := s.repo.Save(ctx, workspaceID, log); err != nil {
		return nil, err
	}
	logging.NewLogger(ctx).LogInfof("save_history", "workspace=%s repo=%s/%s branch=%s total=%d",
		workspaceID, item.Username, item.Repo, item.Branch, log.Total())
	return &item, nil
}

// BranchSeed returns a saved branch list for owner+repo regardless of
// branch, preferring entries recorded under a conventional default
// branch. Used to seed pagination before the first page fetch.
func (s *HistoryService) BranchSeed(ctx context.Context, workspaceID, username, repo string) ([]string, bool, error) {
	log, err := s.repo.Get(ctx, workspaceID)
	if err != nil {
		return nil, false, err
	}

	var first *domain.HistoryItem
	for _, date := range log.Dates() {
		for _, it := range log[date] {
			if it.Username != username || it.Repo != repo || len(it.Branches) == 0 {
				continue
			}
			if isDefaultBranch(it.Branch) {
				return append([]string(nil), it.Branches...), true, nil
			}
			if first == nil {
				found := it
				first = &found
			}
		}
	}
	if first == nil {
		return nil, false, nil
	}
	return append([]string(nil), first.Branches...), true, nil
}

// UpdateBranches replaces the branch list of every saved entry for the
// repository context. The branch list is the only mutable field of a
// saved item.
func (s *HistoryService) UpdateBranches(ctx context.Context, workspaceID, username, repo, branch string, branches []string) error {
	log, err := s.repo.Get(ctx, workspaceID)
	if err != nil {
		return err
	}

	changed := false
	for date, items := range log {
		for i, it := range items {
			if it.Matches(username, repo, branch) {
				items[i].Branches = append([]string(nil), branches...)
				changed = true
			}
		}
		log[date] = items
	}
	if !changed {
		return nil
	}
	return s.repo.Save(ctx, workspaceID, log)
}

// Replace writes a whole log document, used when importing a persisted
// snapshot.
func (s *HistoryService) Replace(ctx context.Context, workspaceID string, log domain.Log) error {
	return s.repo.Save(ctx, workspaceID, log)
}

// Workspaces lists every workspace with saved history.
func (s *HistoryService) Workspaces(ctx context.Context) ([]string, error) {
	return s.repo.Workspaces(ctx)
}

// Reset deletes the workspace's whole history document.
func (s *HistoryService) Reset(ctx context.Context, workspaceID string) error {
	if err := s.repo.Reset(ctx, workspaceID); err != nil {
		return err
	}
	logging.NewLogger(ctx).LogInfof("reset_history", "workspace=%s", workspaceID)
	return nil
}

func isDefaultBranch(name string) bool {
	for _, d := range defaultBranchNames {
		if name == d {
			return true
		}
	}
	return false
}
