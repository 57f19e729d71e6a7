package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StreamEvents re-streams aggregator updates for a repository context
// using Server-Sent Events (SSE)
func (h *Handler) StreamEvents(c *gin.Context) {
	key := planKey(c)

	state, err := h.generation.State(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid repository identifier"})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	// Send the current snapshot first
	initialData, _ := json.Marshal(state)
	fmt.Fprintf(c.Writer, "event: state\ndata: %s\n\n", string(initialData))
	flusher.Flush()

	ctx := c.Request.Context()

	// Keep-alive pings
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	// Poll for aggregator changes
	pollTicker := time.NewTicker(1 * time.Second)
	defer pollTicker.Stop()

	lastRevision := state.Revision

	for {
		select {
		case <-ctx.Done():
			// Client disconnected
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case <-pollTicker.C:
			current, err := h.generation.State(ctx, key)
			if err != nil {
				continue
			}
			if current.Revision == lastRevision {
				continue
			}
			lastRevision = current.Revision

			eventData, _ := json.Marshal(current)
			fmt.Fprintf(c.Writer, "event: update\ndata: %s\n\n", string(eventData))
			flusher.Flush()
		}
	}
}
