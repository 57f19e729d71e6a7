package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	branchesdomain "github.com/depscope/depscope-backend/internal/branches/domain"
	branchesservice "github.com/depscope/depscope-backend/internal/branches/service"
	fixplandomain "github.com/depscope/depscope-backend/internal/fixplan/domain"
	fixplanrepo "github.com/depscope/depscope-backend/internal/fixplan/repository"
	fixplanservice "github.com/depscope/depscope-backend/internal/fixplan/service"
	fixplanstream "github.com/depscope/depscope-backend/internal/fixplan/stream"
	historydomain "github.com/depscope/depscope-backend/internal/history/domain"
	historyrepo "github.com/depscope/depscope-backend/internal/history/repository"
	historyservice "github.com/depscope/depscope-backend/internal/history/service"
	workspacerepo "github.com/depscope/depscope-backend/internal/workspace/repository"
)

const wsID = "test-workspace"

type stubLister struct{}

func (stubLister) ListBranches(ctx context.Context, owner, repo string, page int) (branchesdomain.Page, error) {
	return branchesdomain.Page{Branches: []string{"main", "develop"}, DefaultBranch: "main"}, nil
}

type stubSource struct {
	mu sync.Mutex
	ch chan fixplandomain.StreamEvent
}

func (s *stubSource) Subscribe(ctx context.Context, req fixplanstream.Request) (<-chan fixplandomain.StreamEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ch = make(chan fixplandomain.StreamEvent, 16)
	return s.ch, nil
}

func (s *stubSource) send(ev fixplandomain.StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ch <- ev
}

type stack struct {
	history   *historyservice.HistoryService
	plans     *fixplanrepo.PlanRepository
	paginator *branchesservice.Paginator
	snapshots *workspacerepo.SnapshotRepository
	source    *stubSource
	gen       *fixplanservice.GenerationService
	workspace *WorkspaceService
}

func newStack(t *testing.T) *stack {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	history := historyservice.NewHistoryService(historyrepo.NewHistoryRepository(client))
	plans := fixplanrepo.NewPlanRepository(client)
	paginator := branchesservice.NewPaginator(stubLister{}, history)
	t.Cleanup(paginator.Close)
	snapshots := workspacerepo.NewSnapshotRepository(client)
	source := &stubSource{}
	gen := fixplanservice.NewGenerationService(source, plans, nil)
	t.Cleanup(gen.Shutdown)

	return &stack{
		history:   history,
		plans:     plans,
		paginator: paginator,
		snapshots: snapshots,
		source:    source,
		gen:       gen,
		workspace: NewWorkspaceService(snapshots, history, plans, paginator, gen),
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	src := newStack(t)
	ctx := context.Background()

	// populate the owning stores
	_, err := src.history.Save(ctx, wsID, historydomain.HistoryItem{
		Username: "octocat",
		Repo:     "hello-world",
		Branch:   "main",
		Branches: []string{"main", "develop"},
	})
	require.NoError(t, err)

	_, err = src.paginator.FirstPage(ctx, wsID, branchesdomain.RepoRef{Owner: "octocat", Repo: "hello-world"}, false)
	require.NoError(t, err)

	src.workspace.SetSelection(wsID, "main", "npm")

	planKey := fixplandomain.PlanKey{Owner: "octocat", Repo: "hello-world", Branch: "main"}
	_, started, err := src.gen.Generate(ctx, planKey, false)
	require.NoError(t, err)
	require.True(t, started)

	src.source.send(fixplandomain.StreamEvent{
		Kind:      fixplandomain.EventKindProgress,
		Ecosystem: "npm",
		Step:      "resolving_upgrades",
		Percent:   40,
	})
	src.source.send(fixplandomain.StreamEvent{
		Kind: fixplandomain.EventKindPlan,
		Plan: `{"summary":{"total_vulnerabilities":1}}`,
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, err := src.gen.State(ctx, planKey)
		require.NoError(t, err)
		if st.Entry.GlobalFixPlan != "" && st.Progress["npm"] != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	snap, err := src.workspace.BuildSnapshot(ctx, wsID)
	require.NoError(t, err)

	assert.Equal(t, []string{"main", "develop"}, snap.Pagination.Branches)
	assert.Equal(t, "octocat/hello-world", snap.Pagination.LoadedRepoKey)
	assert.Equal(t, "main", snap.SelectedBranch)
	assert.Equal(t, "npm", snap.SelectedEcosystem)
	require.Contains(t, snap.Progress, "npm")
	assert.Equal(t, "resolving_upgrades", snap.Progress["npm"].Step)
	assert.Equal(t, 1, snap.History.Total())
	require.Contains(t, snap.FixPlans, "octocat/hello-world/main")
	assert.Equal(t, `{"summary":{"total_vulnerabilities":1}}`, snap.FixPlans["octocat/hello-world/main"].GlobalFixPlan)

	// import into a completely fresh stack
	dst := newStack(t)
	require.NoError(t, dst.workspace.RestoreSnapshot(ctx, wsID, snap))

	restoredPag := dst.paginator.State(wsID)
	assert.Equal(t, snap.Pagination, restoredPag)

	restoredState := dst.workspace.State(wsID)
	assert.Equal(t, "main", restoredState.SelectedBranch)
	assert.Equal(t, "npm", restoredState.SelectedEcosystem)
	assert.Equal(t, "resolving_upgrades", restoredState.Progress["npm"].Step)

	restoredLog, err := dst.history.Log(ctx, wsID)
	require.NoError(t, err)
	assert.Equal(t, snap.History, restoredLog)

	entry, err := dst.plans.Get(ctx, planKey)
	require.NoError(t, err)
	assert.Equal(t, `{"summary":{"total_vulnerabilities":1}}`, entry.GlobalFixPlan)

	persisted, err := dst.snapshots.Get(ctx, wsID)
	require.NoError(t, err)
	assert.Equal(t, snap.SelectedBranch, persisted.SelectedBranch)
	assert.Equal(t, snap.Pagination, persisted.Pagination)
}

func TestRestoreSnapshot_SkipsMalformedPlanKeys(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	snap, err := st.workspace.BuildSnapshot(ctx, wsID)
	require.NoError(t, err)
	snap.FixPlans = map[string]fixplandomain.CacheEntry{
		"not-a-plan-key": {GlobalFixPlan: "{}", Timestamp: time.Now()},
	}

	require.NoError(t, st.workspace.RestoreSnapshot(ctx, wsID, snap))
}

func TestBuildSnapshot_EmptyWorkspace(t *testing.T) {
	st := newStack(t)

	snap, err := st.workspace.BuildSnapshot(context.Background(), wsID)
	require.NoError(t, err)
	assert.Empty(t, snap.Pagination.Branches)
	assert.Equal(t, 0, snap.History.Total())
	assert.Empty(t, snap.FixPlans)
}
