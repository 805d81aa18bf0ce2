package core

import "errors"

// Sentinel errors for the ingestion and retrieval pipeline. Callers classify
// failures with errors.Is; wrapped detail stays out of user-facing responses.
var (
	// ErrValidation marks bad input shape or type. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrExtractionFailed marks a text-extraction failure on an otherwise
	// valid payload.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrTransient marks a dependency error expected to resolve on retry
	// without caller intervention (model overload, malformed model reply).
	ErrTransient = errors.New("transient dependency failure")

	// ErrMetadataFailed marks metadata extraction exhausting its retry
	// budget or failing hard.
	ErrMetadataFailed = errors.New("metadata extraction failed")

	// ErrStorageFailed marks an object-store or database failure.
	ErrStorageFailed = errors.New("storage failed")

	// ErrNotFound marks a lookup for a document that does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrForbidden marks an ownership or role mismatch on a scoped
	// operation. No partial mutation occurs.
	ErrForbidden = errors.New("forbidden")
)
