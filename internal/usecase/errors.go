package usecase

import "errors"

var (
	ErrWebsiteNotFound    = errors.New("website not found")
	ErrWebsiteExists      = errors.New("website is already tracked")
	ErrWebsiteInactive    = errors.New("website has been deactivated")
	ErrSnapshotNotFound   = errors.New("snapshot not found")
	ErrComparisonNotFound = errors.New("comparison not found")
	ErrInvalidURL         = errors.New("URL must be an absolute http or https URL")
	ErrInvalidRole        = errors.New("role must be primary, competitor or reference")

	// Diff-input rejections.
	ErrSnapshotNotCompleted    = errors.New("snapshot has not completed")
	ErrSnapshotWebsiteMismatch = errors.New("snapshot does not belong to the website")

	ErrShuttingDown = errors.New("service is shutting down")
	ErrTaskExists   = errors.New("scan is already running")
)
