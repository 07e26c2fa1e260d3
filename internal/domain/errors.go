package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrContentTooShort is returned when announcement text is too short to analyze.
	ErrContentTooShort = errors.New("content too short to analyze")

	// ErrInvalidPromptType is returned for prompt types outside the known set.
	ErrInvalidPromptType = errors.New("invalid prompt type")

	// ErrInvalidWeight is returned when a prompt version weight is outside 0-100.
	ErrInvalidWeight = errors.New("weight must be between 0 and 100")

	// ErrInvalidFeedback is returned for unknown feedback types or ratings outside 1-5.
	ErrInvalidFeedback = errors.New("invalid match feedback")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)
