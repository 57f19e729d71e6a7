package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/depscope/depscope-backend/internal/history/domain"
)

const (
	historyKeyPrefix = "depscope:history:"
	workspaceSetKey  = "depscope:history:workspaces"
)

// HistoryRepository stores each workspace's history log as a single
// JSON document in Redis.
type HistoryRepository struct {
	client *redis.Client
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(client *redis.Client) *HistoryRepository {
	return &HistoryRepository{client: client}
}

// Get loads the workspace log. A missing document is an empty log, not
// an error.
func (r *HistoryRepository) Get(ctx context.Context, workspaceID string) (domain.Log, error) {
	data, err := r.client.Get(ctx, historyKey(workspaceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewLog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history log: %w", err)
	}

	var log domain.Log
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history log: %w", err)
	}
	if log == nil {
		log = domain.NewLog()
	}
	return log, nil
}

// Save writes the whole workspace log back and tracks the workspace id
// for enumeration.
func (r *HistoryRepository) Save(ctx context.Context, workspaceID string, log domain.Log) error {
	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal history log: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, historyKey(workspaceID), data, 0)
	pipe.SAdd(ctx, workspaceSetKey, workspaceID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save history log: %w", err)
	}
	return nil
}

// Reset deletes the workspace log.
func (r *HistoryRepository) Reset(ctx context.Context, workspaceID string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, historyKey(workspaceID))
	pipe.SRem(ctx, workspaceSetKey, workspaceID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to reset history log: %w", err)
	}
	return nil
}

// Workspaces lists every workspace id with a saved log.
func (r *HistoryRepository) Workspaces(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, workspaceSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return ids, nil
}

func historyKey(workspaceID string) string {
	return historyKeyPrefix + workspaceID
}
