package models

import "errors"

// Error taxonomy for the ingestion and answering paths. Callers wrap these
// with fmt.Errorf("%w: ...") and the HTTP boundary maps them to responses
// with errors.Is.
var (
	// ErrValidation marks malformed or missing input at a service boundary.
	ErrValidation = errors.New("validation failed")

	// ErrExtraction marks a text derivation failure during upload. Nothing
	// is persisted when it occurs.
	ErrExtraction = errors.New("text extraction failed")

	// ErrRetrieval marks a vector index query failure while answering.
	ErrRetrieval = errors.New("vector index query failed")

	// ErrGeneration marks a completion call failure. Distinct from the
	// no-matches sentinel answer, which is not an error.
	ErrGeneration = errors.New("answer generation failed")

	// ErrNotFound marks a missing document or corpus.
	ErrNotFound = errors.New("not found")
)
