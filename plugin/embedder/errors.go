package embedder

import "errors"

var (
	// ErrEmptyInput is returned when a blank text is submitted for embedding.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidEmbedding is returned when a returned vector fails shape or
	// sanity validation.
	ErrInvalidEmbedding = errors.New("invalid embedding")

	// ErrExhaustedRetries is returned when a whole image batch failed after
	// retrying and splitting.
	ErrExhaustedRetries = errors.New("embedding retries exhausted")
)
