package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/depscope/depscope-backend/internal/workspace/domain"
)

const snapshotKeyPrefix = "depscope:snapshot:"

// SnapshotRepository stores one serialized snapshot per workspace in
// Redis.
type SnapshotRepository struct {
	client *redis.Client
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(client *redis.Client) *SnapshotRepository {
	return &SnapshotRepository{client: client}
}

// Get loads the persisted snapshot for a workspace.
func (r *SnapshotRepository) Get(ctx context.Context, workspaceID string) (*domain.Snapshot, error) {
	data, err := r.client.Get(ctx, snapshotKey(workspaceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Save persists the snapshot for a workspace.
func (r *SnapshotRepository) Save(ctx context.Context, workspaceID string, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := r.client.Set(ctx, snapshotKey(workspaceID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Delete removes the persisted snapshot for a workspace.
func (r *SnapshotRepository) Delete(ctx context.Context, workspaceID string) error {
	if err := r.client.Del(ctx, snapshotKey(workspaceID)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func snapshotKey(workspaceID string) string {
	return snapshotKeyPrefix + workspaceID
}
