package domain

import "errors"

var (
	// ErrNotIndexed signals that no record is stored under the requested id.
	ErrNotIndexed = errors.New("not indexed")
	// ErrInvalidKind signals an unknown entity kind.
	ErrInvalidKind = errors.New("invalid entity kind")
	// ErrInvalidDocument signals a document that cannot be indexed (e.g. missing id).
	ErrInvalidDocument = errors.New("invalid document")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrBackendUnavailable signals that the vector store could not be reached.
	ErrBackendUnavailable = errors.New("vector store unavailable")
)
