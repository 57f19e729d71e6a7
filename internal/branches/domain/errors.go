package domain

import "errors"

var (
	// ErrInvalidRepoURL means the input could not be parsed into an
	// owner/repo pair.
	ErrInvalidRepoURL = errors.New("invalid repository URL")

	// ErrRepoNotFound means the listing backend does not know the
	// repository.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrNoRepoLoaded means a follow-up page was requested before any
	// first page.
	ErrNoRepoLoaded = errors.New("no repository loaded")

	// ErrPageFailed wraps a terminal in-band failure reported by the
	// listing collaborator for one page request.
	ErrPageFailed = errors.New("branch page request failed")
)
