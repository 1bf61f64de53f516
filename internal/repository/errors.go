package repository

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateWebsite  = errors.New("website already tracked for this owner")
	ErrDuplicatePage     = errors.New("page already recorded for this snapshot")
	ErrSnapshotTerminal  = errors.New("snapshot is in a terminal state")
	ErrInvalidTransition = errors.New("invalid snapshot state transition")
	ErrLeaseLost         = errors.New("scan lease is held by another process")

	ErrCrawlTimeout      = errors.New("page load timed out")
	ErrNavigationFailed  = errors.New("navigation failed")
	ErrContentRestricted = errors.New("content is restricted or requires authentication")
	ErrExtractionFailed  = errors.New("extraction failed")
)

// HTTPStatusError reports a main-document status of 400 or above. It
// matches ErrContentRestricted with errors.Is.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: received status code %d", ErrContentRestricted, e.StatusCode)
}

func (e *HTTPStatusError) Unwrap() error {
	return ErrContentRestricted
}
