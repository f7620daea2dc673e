package vectorstore

import (
	"context"
	"fmt"

	"resume-assist/internal/models"
)

// QueryEmbedder embeds search text. It must be the embedder used at ingestion.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Index answers text queries against a Store.
type Index struct {
	store    Store
	embedder QueryEmbedder
}

func NewIndex(store Store, embedder QueryEmbedder) *Index {
	return &Index{store: store, embedder: embedder}
}

// Query returns up to topK chunks most similar to text. topK larger than the
// store is clamped and an empty store yields no results.
func (i *Index) Query(ctx context.Context, text string, topK int) ([]models.QueryResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be > 0, got %d", models.ErrInvalidConfig, topK)
	}
	n, err := i.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	vector, err := i.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	return i.store.QueryEmbedding(ctx, vector, min(topK, n))
}

func (i *Index) Store() Store {
	return i.store
}
