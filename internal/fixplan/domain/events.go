package domain

// EventKind names the four generator event kinds.
type EventKind string

const (
	EventKindPlan     EventKind = "plan"
	EventKindProgress EventKind = "progress"
	EventKindError    EventKind = "error"
	EventKindComplete EventKind = "complete"
)

// StreamEvent is one parsed event from the plan-generation stream.
// Ecosystem scopes the event; empty means global. Plan carries the raw
// plan payload text for plan events, already unwrapped from transport
// encoding but possibly still fenced or double-encoded.
type StreamEvent struct {
	Kind      EventKind      `json:"kind"`
	Ecosystem string         `json:"ecosystem,omitempty"`
	Plan      string         `json:"plan,omitempty"`
	Step      string         `json:"step,omitempty"`
	Message   string         `json:"message,omitempty"`
	Percent   float64        `json:"percent,omitempty"`
	Sections  map[string]any `json:"sections,omitempty"`
	Critical  bool           `json:"critical,omitempty"`
}
