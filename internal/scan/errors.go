package scan

import "errors"

var (
	// ErrJobNotFound indicates the requested job ID does not exist.
	ErrJobNotFound = errors.New("scan: job not found")
	// ErrNoRows is returned when an import carries nothing to screen.
	ErrNoRows = errors.New("scan: import has no rows")
	// ErrInvalidJob marks a queue payload that can never be processed.
	ErrInvalidJob = errors.New("scan: invalid job payload")
)
