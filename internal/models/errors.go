package models

import "errors"

var (
	// ErrNotFound is returned when a directory, file or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig is returned for configuration values that cannot work,
	// such as a chunk overlap that is not smaller than the chunk size.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrEmbeddingBackend wraps failures of the embedding provider.
	ErrEmbeddingBackend = errors.New("embedding backend error")

	// ErrVectorStore wraps persistence failures of the vector store.
	ErrVectorStore = errors.New("vector store error")
)
