package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/depscope/depscope-backend/internal/fixplan/domain"
)

// Key prefix for cached plan entries: depscope:plan:{owner/repo/branch}.
// Entries carry no TTL: a cached plan lives until an explicit reset or a
// regeneration overwrites it.
const planKeyPrefix = "depscope:plan:"

// PlanRepository handles Redis operations for cached fix-plan entries
type PlanRepository struct {
	client *redis.Client
}

// NewPlanRepository creates a new PlanRepository
func NewPlanRepository(client *redis.Client) *PlanRepository {
	return &PlanRepository{client: client}
}

// Get retrieves the cached entry for a repository context
func (r *PlanRepository) Get(ctx context.Context, key domain.PlanKey) (*domain.CacheEntry, error) {
	data, err := r.client.Get(ctx, r.planKey(key)).Result()
	if err == redis.Nil {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan entry: %w", err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan entry: %w", err)
	}
	return &entry, nil
}

// Save stores the cached entry for a repository context, overwriting any
// previous value wholesale
func (r *PlanRepository) Save(ctx context.Context, key domain.PlanKey, entry domain.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal plan entry: %w", err)
	}
	if err := r.client.Set(ctx, r.planKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save plan entry: %w", err)
	}
	return nil
}

// Delete removes the cached entry for a repository context
func (r *PlanRepository) Delete(ctx context.Context, key domain.PlanKey) error {
	if err := r.client.Del(ctx, r.planKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete plan entry: %w", err)
	}
	return nil
}

func (r *PlanRepository) planKey(key domain.PlanKey) string {
	return planKeyPrefix + key.String()
}
