package chromemdb

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"resume-assist/internal/config"
	"resume-assist/internal/models"
)

// VectorDBManager stores chunk vectors in a single chromem-go collection.
type VectorDBManager struct {
	mu            sync.RWMutex
	db            *chromem.DB
	collection    *chromem.Collection
	embed         chromem.EmbeddingFunc
	name          string
	dbPath        string
	compress      bool
	encryptionKey string
	snapshotPath  string
}

// NewVectorDBManager opens (or creates) the configured collection. embed is
// only used by chromem when a document arrives without a vector and may be nil.
func NewVectorDBManager(cfg *config.VectorStoreConfig, embed chromem.EmbeddingFunc) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create database: %w", models.ErrVectorStore, err)
		}
	}

	snapshot := cfg.SnapshotPath
	if snapshot == "" {
		snapshot = filepath.Join(cfg.Path, cfg.Collection+".chromem")
	}

	m := &VectorDBManager{
		db:            db,
		embed:         embed,
		name:          cfg.Collection,
		dbPath:        cfg.Path,
		compress:      cfg.Compress,
		encryptionKey: cfg.EncryptionKey,
		snapshotPath:  snapshot,
	}
	if _, err := m.getOrCreateCollection(); err != nil {
		return nil, err
	}
	log.Debug().Str("collection", m.name).Bool("in_memory", cfg.InMemory).Int("count", m.collection.Count()).Msg("Opened chromem collection")
	return m, nil
}

func (m *VectorDBManager) getOrCreateCollection() (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(m.name, nil, m.embed)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create/get collection: %w", models.ErrVectorStore, err)
	}
	m.collection = c
	return c, nil
}

// Upsert adds records, replacing any with the same id.
func (m *VectorDBManager) Upsert(ctx context.Context, records []models.StoredVector) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Text,
			Metadata:  r.Metadata,
			Embedding: r.Vector,
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: failed to add documents: %w", models.ErrVectorStore, err)
	}
	return nil
}

// QueryEmbedding returns up to topK nearest records by cosine similarity.
func (m *VectorDBManager) QueryEmbedding(ctx context.Context, vector []float32, topK int) ([]models.QueryResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := min(topK, m.collection.Count())
	if n <= 0 {
		return nil, nil
	}
	results, err := m.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query by similarity: %w", models.ErrVectorStore, err)
	}

	out := make([]models.QueryResult, len(results))
	for i, r := range results {
		meta := models.ChunkMetadataFromMap(r.Metadata)
		if meta.ID == "" {
			meta.ID = r.ID
		}
		out[i] = models.QueryResult{
			Chunk: models.Chunk{Content: r.Content, Metadata: meta},
			Score: r.Similarity,
		}
	}
	return out, nil
}

func (m *VectorDBManager) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collection.Count(), nil
}

// Clear drops the collection and recreates it empty.
func (m *VectorDBManager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.db.DeleteCollection(m.name); err != nil {
		return fmt.Errorf("%w: failed to drop collection: %w", models.ErrVectorStore, err)
	}
	_, err := m.getOrCreateCollection()
	return err
}

// Close is a no-op; chromem persists on every write.
func (m *VectorDBManager) Close() error {
	return nil
}

// Export writes the collection to path, or to the configured snapshot path
// when path is empty. A configured encryption key encrypts the file.
func (m *VectorDBManager) Export(ctx context.Context, path string) error {
	if path == "" {
		path = m.snapshotPath
	}
	log.Debug().Str("collection", m.name).Str("file", path).Bool("compress", m.compress).Bool("encrypted", m.encryptionKey != "").Msg("Exporting collection")

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.db.ExportToFile(path, m.compress, m.encryptionKey, m.name); err != nil {
		return fmt.Errorf("%w: failed to export database: %w", models.ErrVectorStore, err)
	}
	return nil
}

// Import replaces the collection with the one in a file written by Export.
// The file is read once into a scratch database first, so a bad file leaves
// the collection untouched. On a persistent store the old documents are
// removed from disk before the snapshot is written.
func (m *VectorDBManager) Import(ctx context.Context, path string) error {
	if path == "" {
		path = m.snapshotPath
	}
	log.Debug().Str("collection", m.name).Str("file", path).Msg("Importing collection")

	scratch := chromem.NewDB()
	if err := scratch.ImportFromFile(path, m.encryptionKey, m.name); err != nil {
		return fmt.Errorf("%w: failed to import database: %w", models.ErrVectorStore, err)
	}
	if scratch.GetCollection(m.name, m.embed) == nil {
		return fmt.Errorf("%w: collection %q not present in %s", models.ErrNotFound, m.name, path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.db.DeleteCollection(m.name); err != nil {
		return fmt.Errorf("%w: failed to drop collection: %w", models.ErrVectorStore, err)
	}
	if err := m.db.ImportFromFile(path, m.encryptionKey, m.name); err != nil {
		return fmt.Errorf("%w: failed to import database: %w", models.ErrVectorStore, err)
	}
	c := m.db.GetCollection(m.name, m.embed)
	if c == nil {
		return fmt.Errorf("%w: collection %q not present in %s", models.ErrNotFound, m.name, path)
	}
	m.collection = c
	return nil
}
