package domain

import "errors"

var (
	// ErrEmptyQuery is returned for a query that is empty after
	// normalization. The embedder is never contacted in that case.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrEmbeddingUnavailable wraps a failed embedding call at query
	// time. Terminal for the request; no degraded result is returned.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrIndexUnavailable wraps a failed vector index operation.
	ErrIndexUnavailable = errors.New("vector index unavailable")
)
