package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/depscope/depscope-backend/internal/fixplan/domain"
)

// Client streams generator events over SSE.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a generator stream client. The underlying HTTP
// client carries no timeout; streams are bounded by the subscribe
// context instead.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 0},
	}
}

// Subscribe opens the event stream for one repository context.
func (c *Client) Subscribe(ctx context.Context, req Request) (<-chan domain.StreamEvent, error) {
	reqURL := fmt.Sprintf("%s/plans/%s/%s/%s/stream",
		c.baseURL,
		url.PathEscape(req.Owner),
		url.PathEscape(req.Repo),
		url.PathEscape(req.Branch),
	)
	if req.Force {
		reqURL += "?force=true"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generator request failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("generator returned status %d", resp.StatusCode)
	}

	events := make(chan domain.StreamEvent, 16)
	go c.readLoop(ctx, resp.Body, events)
	return events, nil
}

// readLoop parses `event:`/`data:` frames until the body ends or ctx is
// cancelled, then closes the event channel.
func (c *Client) readLoop(ctx context.Context, body io.ReadCloser, events chan<- domain.StreamEvent) {
	defer close(events)
	defer body.Close()

	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var eventName string
	var data strings.Builder

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := sc.Text()
		switch {
		case line == "":
			if ev, ok := parseEvent(eventName, data.String()); ok {
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
			eventName = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		log.Printf("[stream] read error: %v", err)
	}
}

// wireEvent is the generator's data payload. Plan stays raw because the
// generator may send it as an object or as an encoded string.
type wireEvent struct {
	Ecosystem string          `json:"ecosystem,omitempty"`
	Plan      json.RawMessage `json:"plan,omitempty"`
	Step      string          `json:"step,omitempty"`
	Message   string          `json:"message,omitempty"`
	Percent   float64         `json:"percent,omitempty"`
	Sections  map[string]any  `json:"sections,omitempty"`
	Critical  bool            `json:"critical,omitempty"`
}

func parseEvent(name, data string) (domain.StreamEvent, bool) {
	var kind domain.EventKind
	switch name {
	case "plan":
		kind = domain.EventKindPlan
	case "progress":
		kind = domain.EventKindProgress
	case "error":
		kind = domain.EventKindError
	case "complete", "done":
		kind = domain.EventKindComplete
	default:
		return domain.StreamEvent{}, false
	}

	var w wireEvent
	if data != "" {
		if err := json.Unmarshal([]byte(data), &w); err != nil {
			log.Printf("[stream] dropping malformed %s event: %v", name, err)
			return domain.StreamEvent{}, false
		}
	}

	return domain.StreamEvent{
		Kind:      kind,
		Ecosystem: w.Ecosystem,
		Plan:      planText(w.Plan),
		Step:      w.Step,
		Message:   w.Message,
		Percent:   w.Percent,
		Sections:  w.Sections,
		Critical:  w.Critical,
	}, true
}

// planText unwraps the transport encoding of the plan field: a JSON
// string becomes its value, anything else stays raw text for the
// payload decoder.
func planText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
