package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a storage uniqueness constraint was violated
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrContentTooShort indicates the candidate body is below the minimum length
	ErrContentTooShort = errors.New("content too short")

	// ErrBelowThreshold indicates the candidate scored under the acceptance threshold
	ErrBelowThreshold = errors.New("quality score below threshold")

	// ErrSlugExhausted indicates slug allocation ran out of attempts
	ErrSlugExhausted = errors.New("slug allocation attempts exhausted")

	// ErrNoProgress indicates a scheduled run produced zero new items and zero queue progress
	ErrNoProgress = errors.New("run made no progress")
)
