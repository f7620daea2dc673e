// Package badgerstore keeps chunk vectors in an embedded BadgerDB and ranks
// them by brute-force cosine similarity.
package badgerstore

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/rs/zerolog/log"
	"github.com/viant/vec/search"
	"github.com/vmihailenco/msgpack/v5"

	"resume-assist/internal/config"
	"resume-assist/internal/models"
)

// record is the msgpack value stored under prefix+id.
type record struct {
	ID       string            `msgpack:"id"`
	Vector   []float32         `msgpack:"vector"`
	Text     string            `msgpack:"text"`
	Metadata map[string]string `msgpack:"metadata"`
}

type badgerLogger struct{}

var _ badger.Logger = badgerLogger{}

func (badgerLogger) Errorf(msg string, items ...any) {
	log.Error().Str("component", "badger").Msgf(msg, items...)
}

func (badgerLogger) Warningf(msg string, items ...any) {
	log.Warn().Str("component", "badger").Msgf(msg, items...)
}

func (badgerLogger) Infof(msg string, items ...any) {
	log.Debug().Str("component", "badger").Msgf(msg, items...)
}

func (badgerLogger) Debugf(msg string, items ...any) {
	log.Trace().Str("component", "badger").Msgf(msg, items...)
}

type Store struct {
	db     *badger.DB
	prefix []byte
}

// Open opens the database at cfg.Path, creating the directory if needed.
// Records of the collection live under the key prefix "<collection>:".
func Open(cfg *config.VectorStoreConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %w", models.ErrVectorStore, cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = badgerLogger{}
	opts.Compression = options.None
	if cfg.Compress {
		opts.Compression = options.ZSTD
	}
	if cfg.EncryptionKey != "" {
		opts.EncryptionKey = []byte(cfg.EncryptionKey)
		opts.IndexCacheSize = 16 << 20
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger: %w", models.ErrVectorStore, err)
	}
	return &Store{db: db, prefix: []byte(cfg.Collection + ":")}, nil
}

func (s *Store) key(id string) []byte {
	return append(slices.Clone(s.prefix), id...)
}

// Upsert writes all records in one batch. Existing ids are overwritten.
func (s *Store) Upsert(ctx context.Context, records []models.StoredVector) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		val, err := msgpack.Marshal(&record{ID: r.ID, Vector: r.Vector, Text: r.Text, Metadata: r.Metadata})
		if err != nil {
			return fmt.Errorf("%w: encode %s: %w", models.ErrVectorStore, r.ID, err)
		}
		if err := wb.Set(s.key(r.ID), val); err != nil {
			return fmt.Errorf("%w: write %s: %w", models.ErrVectorStore, r.ID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %w", models.ErrVectorStore, err)
	}
	return nil
}

// QueryEmbedding scans every record of the collection and returns the topK
// most similar. Ties keep key order.
func (s *Store) QueryEmbedding(ctx context.Context, vector []float32, topK int) ([]models.QueryResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	query := search.Float32s(vector)
	qmag := query.Magnitude()
	var results []models.QueryResult
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec record
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("%w: decode %s: %w", models.ErrVectorStore, it.Item().Key(), err)
			}
			meta := models.ChunkMetadataFromMap(rec.Metadata)
			if meta.ID == "" {
				meta.ID = rec.ID
			}
			score, err := cosine(query, qmag, rec.Vector)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", models.ErrVectorStore, rec.ID, err)
			}
			results = append(results, models.QueryResult{
				Chunk: models.Chunk{Content: rec.Text, Metadata: meta},
				Score: score,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b models.QueryResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count: %w", models.ErrVectorStore, err)
	}
	return n, nil
}

// Clear removes every record of the collection.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.db.DropPrefix(s.prefix); err != nil {
		return fmt.Errorf("%w: drop prefix: %w", models.ErrVectorStore, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// cosine is 1 - cosine distance. A zero vector scores 0.
func cosine(query search.Float32s, qmag float32, v []float32) (float32, error) {
	if len(query) != len(v) {
		return 0, fmt.Errorf("dimension mismatch: query has %d, stored vector has %d", len(query), len(v))
	}
	vmag := search.Float32s(v).Magnitude()
	if qmag == 0 || vmag == 0 {
		return 0, nil
	}
	return 1 - query.CosineDistanceWithMagnitude(v, qmag, vmag), nil
}
