package cronjob

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depscope/depscope-backend/internal/branches/domain"
	historydomain "github.com/depscope/depscope-backend/internal/history/domain"
	historyrepo "github.com/depscope/depscope-backend/internal/history/repository"
	historyservice "github.com/depscope/depscope-backend/internal/history/service"
)

type recordingLister struct {
	mu    sync.Mutex
	calls []string
	pages map[string]domain.Page
}

func (l *recordingLister) ListBranches(ctx context.Context, owner, repo string, page int) (domain.Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := owner + "/" + repo
	l.calls = append(l.calls, key)
	return l.pages[key], nil
}

func (l *recordingLister) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func setupRefresher(t *testing.T, lister *recordingLister) (*Scheduler, *historyservice.HistoryService) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	history := historyservice.NewHistoryService(historyrepo.NewHistoryRepository(client))
	return NewScheduler(history, lister), history
}

func TestRefreshAll_UpdatesBranchLists(t *testing.T) {
	lister := &recordingLister{pages: map[string]domain.Page{
		"octocat/hello-world": {Branches: []string{"develop", "feature-a"}, DefaultBranch: "main"},
	}}
	scheduler, history := setupRefresher(t, lister)
	ctx := context.Background()

	saved, err := history.Save(ctx, "ws-1", historydomain.HistoryItem{
		Username: "octocat",
		Repo:     "hello-world",
		Branch:   "main",
		Branches: []string{"main"},
	})
	require.NoError(t, err)

	scheduler.RefreshAll()

	item, hit, err := history.Lookup(ctx, "ws-1", "octocat", "hello-world", "main", false)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []string{"main", "develop", "feature-a"}, item.Branches)
	assert.Equal(t, saved.ID, item.ID)
	assert.True(t, saved.CachedAt.Equal(item.CachedAt))
}

func TestRefreshAll_FetchesEachRepoOnce(t *testing.T) {
	lister := &recordingLister{pages: map[string]domain.Page{
		"octocat/hello-world": {Branches: []string{"main", "develop"}, DefaultBranch: "main"},
	}}
	scheduler, history := setupRefresher(t, lister)
	ctx := context.Background()

	// two entries for the same repository on different branches
	_, err := history.Save(ctx, "ws-1", historydomain.HistoryItem{
		Username: "octocat", Repo: "hello-world", Branch: "main", Branches: []string{"main"},
	})
	require.NoError(t, err)
	_, err = history.Save(ctx, "ws-1", historydomain.HistoryItem{
		Username: "octocat", Repo: "hello-world", Branch: "develop", Branches: []string{"develop"},
	})
	require.NoError(t, err)

	scheduler.RefreshAll()

	assert.Equal(t, 1, lister.callCount())

	for _, branch := range []string{"main", "develop"} {
		item, hit, err := history.Lookup(ctx, "ws-1", "octocat", "hello-world", branch, false)
		require.NoError(t, err)
		require.True(t, hit, "entry for %s should still be cached", branch)
		assert.Equal(t, []string{"main", "develop"}, item.Branches)
	}
}

func TestRefreshAll_CoversAllWorkspaces(t *testing.T) {
	lister := &recordingLister{pages: map[string]domain.Page{
		"octocat/hello-world": {Branches: []string{"main", "release"}, DefaultBranch: "main"},
		"torvalds/linux":      {Branches: []string{"master"}, DefaultBranch: "master"},
	}}
	scheduler, history := setupRefresher(t, lister)
	ctx := context.Background()

	_, err := history.Save(ctx, "ws-a", historydomain.HistoryItem{
		Username: "octocat", Repo: "hello-world", Branch: "main", Branches: []string{"main"},
	})
	require.NoError(t, err)
	_, err = history.Save(ctx, "ws-b", historydomain.HistoryItem{
		Username: "torvalds", Repo: "linux", Branch: "master", Branches: []string{"master"},
	})
	require.NoError(t, err)

	scheduler.RefreshAll()

	item, hit, err := history.Lookup(ctx, "ws-a", "octocat", "hello-world", "main", false)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []string{"main", "release"}, item.Branches)

	item, hit, err = history.Lookup(ctx, "ws-b", "torvalds", "linux", "master", false)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []string{"master"}, item.Branches)
}
