package domain

import "errors"

var (
	// ErrInvalidQuery signals an empty or oversized query string.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidCursor signals a cursor that is not a non-negative decimal offset.
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrStoreUnavailable signals a document store failure.
	ErrStoreUnavailable = errors.New("document store unavailable")
)
