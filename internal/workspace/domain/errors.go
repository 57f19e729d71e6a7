package domain

import "errors"

// ErrSnapshotNotFound means no snapshot has been persisted for the
// workspace yet.
var ErrSnapshotNotFound = errors.New("workspace snapshot not found")
