// Package vectorstore defines the storage capability used by ingestion and
// retrieval and selects a backend from configuration.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"resume-assist/internal/badgerstore"
	"resume-assist/internal/chromemdb"
	"resume-assist/internal/config"
	"resume-assist/internal/db"
	"resume-assist/internal/models"
)

// Store persists (id, vector, text, metadata) tuples. Upsert replaces
// records with an existing id. QueryEmbedding returns at most topK results
// ordered by descending similarity and never fails on an empty store.
type Store interface {
	Upsert(ctx context.Context, records []models.StoredVector) error
	QueryEmbedding(ctx context.Context, vector []float32, topK int) ([]models.QueryResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// Snapshotter is implemented by stores that can export and import their content.
type Snapshotter interface {
	Export(ctx context.Context, path string) error
	Import(ctx context.Context, path string) error
}

var (
	_ Store       = (*chromemdb.VectorDBManager)(nil)
	_ Snapshotter = (*chromemdb.VectorDBManager)(nil)
	_ Store       = (*badgerstore.Store)(nil)
	_ Store       = (*db.VectorStore)(nil)
)

// Open creates the backend named in cfg.VectorStore. embed is handed to
// chromem for documents that arrive without a vector and may be nil.
func Open(ctx context.Context, cfg *config.Config, embed chromem.EmbeddingFunc) (Store, error) {
	vs := &cfg.VectorStore
	log.Debug().Str("backend", vs.Backend).Str("collection", vs.Collection).Msg("Opening vector store")

	switch vs.Backend {
	case config.BackendChromem:
		store, err := chromemdb.NewVectorDBManager(vs, embed)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendBadger:
		store, err := badgerstore.Open(vs)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendPgvector:
		bunDB, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		store, err := db.NewVectorStore(bunDB, vs.Collection)
		if err != nil {
			bunDB.Close()
			return nil, err
		}
		if err := store.InitDB(ctx); err != nil {
			bunDB.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown vector store backend %q", models.ErrInvalidConfig, vs.Backend)
	}
}
