package domain

import "errors"

var (
	// ErrLogFull means the log has reached MaxEntries. The save is
	// rejected; nothing is evicted.
	ErrLogFull = errors.New("history log is full")

	// ErrDuplicateEntry means the same owner, repo and branch is
	// already saved under the same date bucket.
	ErrDuplicateEntry = errors.New("history entry already saved today")
)
