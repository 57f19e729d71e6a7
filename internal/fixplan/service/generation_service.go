package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/depscope/depscope-backend/internal/api/logging"
	"github.com/depscope/depscope-backend/internal/fixplan"
	"github.com/depscope/depscope-backend/internal/fixplan/domain"
	"github.com/depscope/depscope-backend/internal/fixplan/repository"
	"github.com/depscope/depscope-backend/internal/fixplan/stream"
)

const persistTimeout = 5 * time.Second

// GenerationService owns the plan-generation lifecycle per repository
// context: at most one live subscription per context, cached plans
// short-circuiting new requests, and late events after a teardown
// dropped by generation id.
type GenerationService struct {
	source  stream.Source
	plans   *repository.PlanRepository
	archive *repository.ArchiveRepository

	mu       sync.Mutex
	sessions map[string]*session
}

// session is the live state for one repository context. genID changes on
// every (re)subscription; events carrying a stale id are ignored.
type session struct {
	key    domain.PlanKey
	agg    *fixplan.Aggregator
	cancel context.CancelFunc
	genID  string
}

// NewGenerationService creates a new GenerationService. archive may be
// nil when no durable store is configured.
func NewGenerationService(source stream.Source, plans *repository.PlanRepository, archive *repository.ArchiveRepository) *GenerationService {
	return &GenerationService{
		source:   source,
		plans:    plans,
		archive:  archive,
		sessions: make(map[string]*session),
	}
}

// Generate starts plan generation for key. While a generation is running
// the call is a no-op unless force is set; with a non-empty cached plan
// and no force flag the cached state is surfaced without streaming. The
// returned bool reports whether a new stream was actually started.
func (s *GenerationService) Generate(ctx context.Context, key domain.PlanKey, force bool) (domain.State, bool, error) {
	if err := ValidatePlanKey(key); err != nil {
		return domain.State{}, false, err
	}
	logger := logging.NewLogger(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.ensureSessionLocked(ctx, key)
	if sess.agg.Generating() && !force {
		return sess.agg.Snapshot(), false, nil
	}
	if !force && sess.agg.Entry().HasPlan() {
		logger.LogInfof("generate_plan", "serving cached plan for %s", key)
		return sess.agg.Snapshot(), false, nil
	}

	// tear down any active subscription before opening the next
	if sess.cancel != nil {
		sess.cancel()
		sess.cancel = nil
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	events, err := s.source.Subscribe(streamCtx, stream.Request{
		Owner:  key.Owner,
		Repo:   key.Repo,
		Branch: key.Branch,
		Force:  force,
	})
	if err != nil {
		cancel()
		logger.LogError("generate_plan", err)
		return sess.agg.Snapshot(), false, fmt.Errorf("subscribe plan stream: %w", err)
	}

	genID := uuid.New().String()
	sess.genID = genID
	sess.cancel = cancel
	sess.agg.Begin()
	logger.LogInfof("generate_plan", "started generation %s for %s force=%v", genID, key, force)

	go s.consume(key, genID, events)
	return sess.agg.Snapshot(), true, nil
}

// State returns the current aggregate view for key, seeding a session
// from the plan cache when none is live.
func (s *GenerationService) State(ctx context.Context, key domain.PlanKey) (domain.State, error) {
	if err := ValidatePlanKey(key); err != nil {
		return domain.State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureSessionLocked(ctx, key).agg.Snapshot(), nil
}

// Cancel closes any open subscription for key without touching the
// cached plan. Events already in flight are dropped by generation id.
func (s *GenerationService) Cancel(ctx context.Context, key domain.PlanKey) error {
	if err := ValidatePlanKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key.String()]
	if !ok {
		return nil
	}
	if sess.cancel != nil {
		sess.cancel()
		sess.cancel = nil
	}
	sess.genID = ""
	sess.agg.Stop()
	return nil
}

// Reset tears down the session and deletes the cached plan entry. The
// only path that removes a cache entry.
func (s *GenerationService) Reset(ctx context.Context, key domain.PlanKey) error {
	if err := ValidatePlanKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	if sess, ok := s.sessions[key.String()]; ok {
		if sess.cancel != nil {
			sess.cancel()
		}
		delete(s.sessions, key.String())
	}
	s.mu.Unlock()

	return s.plans.Delete(ctx, key)
}

// Archived returns the durable archive record for key, ErrPlanNotFound
// when no archive exists or no archive store is configured.
func (s *GenerationService) Archived(ctx context.Context, key domain.PlanKey) (*repository.ArchivedPlan, error) {
	if err := ValidatePlanKey(key); err != nil {
		return nil, err
	}
	if s.archive == nil {
		return nil, domain.ErrPlanNotFound
	}
	return s.archive.GetByRepoKey(ctx, key)
}

// Shutdown closes every open subscription.
func (s *GenerationService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.cancel != nil {
			sess.cancel()
			sess.cancel = nil
		}
		sess.genID = ""
		sess.agg.Stop()
	}
}

// ensureSessionLocked returns the session for key, creating it and
// seeding it from the plan cache on first touch. Callers hold s.mu.
func (s *GenerationService) ensureSessionLocked(ctx context.Context, key domain.PlanKey) *session {
	sk := key.String()
	if sess, ok := s.sessions[sk]; ok {
		return sess
	}
	sess := &session{key: key, agg: fixplan.NewAggregator(sk)}
	entry, err := s.plans.Get(ctx, key)
	switch {
	case err == nil:
		sess.agg.Seed(*entry)
	case !errors.Is(err, domain.ErrPlanNotFound):
		logging.NewLogger(ctx).LogError("load_plan_cache", err)
	}
	s.sessions[sk] = sess
	return sess
}

// consume applies one subscription's events in arrival order, then
// finalizes the session when the stream ends.
func (s *GenerationService) consume(key domain.PlanKey, genID string, events <-chan domain.StreamEvent) {
	for ev := range events {
		s.applyEvent(key, genID, ev)
	}
	s.finish(key, genID)
}

func (s *GenerationService) applyEvent(key domain.PlanKey, genID string, ev domain.StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key.String()]
	if !ok || sess.genID != genID {
		// late event for a closed subscription
		return
	}

	if !sess.agg.Apply(ev) {
		return
	}

	// a critical error halts the generation, so close the stream too
	if ev.Kind == domain.EventKindError && !sess.agg.Generating() && sess.cancel != nil {
		sess.cancel()
		sess.cancel = nil
	}

	s.persistLocked(sess)
}

func (s *GenerationService) finish(key domain.PlanKey, genID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key.String()]
	if !ok || sess.genID != genID {
		return
	}
	if sess.cancel != nil {
		sess.cancel()
		sess.cancel = nil
	}
	// a stream that ends without a completion event leaves idle state
	sess.agg.Stop()
	s.persistLocked(sess)

	entry := sess.agg.Entry()
	if entry.IsFixPlanGenerated && s.archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.archive.Upsert(ctx, key, entry); err != nil {
			log.Printf("[fixplan] failed to archive plan for %s: %v", key, err)
		}
	}
}

// persistLocked writes the session's entry to the plan cache. Nothing is
// written before the first plan byte arrives. Callers hold s.mu.
func (s *GenerationService) persistLocked(sess *session) {
	entry := sess.agg.Entry()
	if entry.Timestamp.IsZero() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.plans.Save(ctx, sess.key, entry); err != nil {
		log.Printf("[fixplan] failed to persist plan for %s: %v", sess.key, err)
	}
}

// ValidatePlanKey rejects malformed repository identifiers before any
// stream is started.
func ValidatePlanKey(key domain.PlanKey) error {
	for _, part := range []string{key.Owner, key.Repo, key.Branch} {
		if strings.TrimSpace(part) == "" || strings.Contains(part, "/") {
			return domain.ErrInvalidPlanKey
		}
	}
	return nil
}
