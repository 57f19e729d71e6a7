package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/depscope/depscope-backend/internal/fixplan/domain"
)

// ArchiveRepository persists completed fix plans in PostgreSQL for
// durable read-back after the cache is reset
type ArchiveRepository struct {
	db *pgxpool.Pool
}

// NewArchiveRepository creates a new ArchiveRepository
func NewArchiveRepository(db *pgxpool.Pool) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// ArchivedPlan is one archived generation result.
type ArchivedPlan struct {
	ID                    string                     `json:"id"`
	RepoKey               string                     `json:"repo_key"`
	GlobalPlan            json.RawMessage            `json:"global_plan,omitempty"`
	EcosystemPlans        map[string]json.RawMessage `json:"ecosystem_plans,omitempty"`
	HasMultipleEcosystems bool                       `json:"has_multiple_ecosystems"`
	CompletedAt           time.Time                  `json:"completed_at"`
	UpdatedAt             time.Time                  `json:"updated_at"`
}

// EnsureSchema creates the archive table when it does not exist yet.
func (r *ArchiveRepository) EnsureSchema(ctx context.Context) error {
	const q = `
create table if not exists fix_plan_archive (
	id uuid primary key,
	repo_key text not null unique,
	global_plan jsonb,
	ecosystem_plans jsonb,
	has_multiple_ecosystems boolean not null default false,
	completed_at timestamptz not null default now(),
	updated_at timestamptz not null default now()
);
`
	if _, err := r.db.Exec(ctx, q); err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}
	return nil
}

// Upsert archives a completed entry, replacing any previous archive for
// the same repository context
func (r *ArchiveRepository) Upsert(ctx context.Context, key domain.PlanKey, entry domain.CacheEntry) error {
	var global any
	if entry.GlobalFixPlan != "" {
		global = json.RawMessage(entry.GlobalFixPlan)
	}

	var plans any
	if len(entry.EcosystemFixPlans) > 0 {
		m := make(map[string]json.RawMessage, len(entry.EcosystemFixPlans))
		for eco, text := range entry.EcosystemFixPlans {
			m[eco] = json.RawMessage(text)
		}
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal ecosystem plans: %w", err)
		}
		plans = data
	}

	const q = `
insert into fix_plan_archive (id, repo_key, global_plan, ecosystem_plans, has_multiple_ecosystems, completed_at, updated_at)
values ($1, $2, $3, $4, $5, $6, now())
on conflict (repo_key) do update set
	global_plan = excluded.global_plan,
	ecosystem_plans = excluded.ecosystem_plans,
	has_multiple_ecosystems = excluded.has_multiple_ecosystems,
	completed_at = excluded.completed_at,
	updated_at = now();
`
	completedAt := entry.Timestamp
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	_, err := r.db.Exec(ctx, q, uuid.New().String(), key.String(), global, plans, entry.HasMultipleEcosystems, completedAt)
	if err != nil {
		return fmt.Errorf("archive plan: %w", err)
	}
	return nil
}

// GetByRepoKey retrieves the archived plan for a repository context
func (r *ArchiveRepository) GetByRepoKey(ctx context.Context, key domain.PlanKey) (*ArchivedPlan, error) {
	const q = `
select id, repo_key, global_plan, ecosystem_plans, has_multiple_ecosystems, completed_at, updated_at
from fix_plan_archive
where repo_key = $1;
`
	var (
		p         ArchivedPlan
		global    []byte
		plansJSON []byte
	)
	err := r.db.QueryRow(ctx, q, key.String()).
		Scan(&p.ID, &p.RepoKey, &global, &plansJSON, &p.HasMultipleEcosystems, &p.CompletedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get archived plan: %w", err)
	}

	if len(global) > 0 {
		p.GlobalPlan = json.RawMessage(global)
	}
	if len(plansJSON) > 0 {
		if err := json.Unmarshal(plansJSON, &p.EcosystemPlans); err != nil {
			return nil, fmt.Errorf("unmarshal ecosystem plans: %w", err)
		}
	}
	return &p, nil
}
