package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depscope/depscope-backend/internal/workspace/domain"
)

func setupSnapshotRepo(t *testing.T) *SnapshotRepository {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewSnapshotRepository(client)
}

func TestSnapshotRepository_GetMissing(t *testing.T) {
	repo := setupSnapshotRepo(t)

	_, err := repo.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestSnapshotRepository_SaveAndGet(t *testing.T) {
	repo := setupSnapshotRepo(t)
	ctx := context.Background()

	snap := domain.Snapshot{
		SelectedBranch:    "main",
		SelectedEcosystem: "npm",
	}
	snap.Pagination.Branches = []string{"main", "develop"}
	snap.Pagination.LoadedRepoKey = "octocat/hello-world"
	require.NoError(t, repo.Save(ctx, "ws-1", snap))

	got, err := repo.Get(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, "main", got.SelectedBranch)
	assert.Equal(t, []string{"main", "develop"}, got.Pagination.Branches)
	assert.Equal(t, "octocat/hello-world", got.Pagination.LoadedRepoKey)
}

func TestSnapshotRepository_Delete(t *testing.T) {
	repo := setupSnapshotRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "ws-1", domain.Snapshot{SelectedBranch: "main"}))
	require.NoError(t, repo.Delete(ctx, "ws-1"))

	_, err := repo.Get(ctx, "ws-1")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}
