package domain

import (
	"sort"
	"time"

	depgraph "github.com/depscope/depscope-backend/internal/depgraph/domain"
)

const (
	// EntryTTL is how long a saved analysis counts as fresh. Stale
	// entries are misses, never served and never auto-deleted.
	EntryTTL = 72 * time.Hour

	// MaxEntries caps the log size across all date buckets. Capacity
	// is enforced by rejecting new saves, not by eviction.
	MaxEntries = 10
)

// DateLayout is the bucket key format for the history log.
const DateLayout = "2006-01-02"

// HistoryItem is one saved analysis snapshot. Only the branch list may
// change after the item is saved.
type HistoryItem struct {
	ID           string                     `json:"id"`
	Username     string                     `json:"username"`
	Repo         string                     `json:"repo"`
	Branch       string                     `json:"branch"`
	GraphData    depgraph.EcosystemGraphMap `json:"graph_data,omitempty"`
	Dependencies []depgraph.Dependency      `json:"dependencies,omitempty"`
	Branches     []string                   `json:"branches,omitempty"`
	CachedAt     time.Time                  `json:"cached_at"`
}

// Matches reports whether the item belongs to the given repository
// context.
func (it HistoryItem) Matches(username, repo, branch string) bool {
	return it.Username == username && it.Repo == repo && it.Branch == branch
}

// Fresh reports whether the item is within the TTL as of now.
func (it HistoryItem) Fresh(now time.Time) bool {
	return now.Sub(it.CachedAt) <= EntryTTL
}

// Log is the history document for one workspace: date bucket
// (YYYY-MM-DD) to items, most recent first within each bucket.
type Log map[string][]HistoryItem

// NewLog returns an empty history log.
func NewLog() Log {
	return Log{}
}

// Total counts items across all buckets.
func (l Log) Total() int {
	n := 0
	for _, items := range l {
		n += len(items)
	}
	return n
}

// Dates returns the bucket keys, newest first. ISO dates sort
// lexicographically, so plain string order is chronological.
func (l Log) Dates() []string {
	dates := make([]string, 0, len(l))
	for d := range l {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] > dates[j] })
	return dates
}
