// Package stream connects to the external plan generator and turns its
// SSE frames into typed events.
package stream

import (
	"context"

	"github.com/depscope/depscope-backend/internal/fixplan/domain"
)

// Request identifies the generation to stream.
type Request struct {
	Owner  string
	Repo   string
	Branch string
	Force  bool
}

// Source opens plan-generation event streams. The returned channel is
// closed when the stream ends or ctx is cancelled; retry and backoff are
// the caller's transport concern, not the source's.
type Source interface {
	Subscribe(ctx context.Context, req Request) (<-chan domain.StreamEvent, error)
}
