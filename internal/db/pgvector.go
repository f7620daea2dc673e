package db

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"resume-assist/internal/models"
)

// Document is one chunk vector. Rows of several collections share the table.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	Collection    string          `bun:"collection,pk"`
	ID            string          `bun:"id,pk"`
	Content       string          `bun:"content,notnull"`
	Source        string          `bun:"source,notnull"`
	Page          *int            `bun:"page"`
	StartIndex    int             `bun:"start_index,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	Score         float32         `bun:"score,scanonly"`
}

// VectorStore keeps chunk vectors in Postgres with the pgvector extension.
type VectorStore struct {
	db         *bun.DB
	collection string
}

func NewVectorStore(db *bun.DB, collection string) (*VectorStore, error) {
	if db.Dialect().Name() != dialect.PG {
		return nil, fmt.Errorf("%w: pgvector needs a postgres driver", models.ErrInvalidConfig)
	}
	return &VectorStore{db: db, collection: collection}, nil
}

// InitDB enables the vector extension and creates the documents table.
func (s *VectorStore) InitDB(ctx context.Context) error {
	if _, err := s.db.NewRaw("CREATE EXTENSION IF NOT EXISTS vector").Exec(ctx); err != nil {
		return fmt.Errorf("%w: create extension: %w", models.ErrVectorStore, err)
	}
	if _, err := s.db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("%w: create table: %w", models.ErrVectorStore, err)
	}
	return nil
}

func (s *VectorStore) rows(records []models.StoredVector) []Document {
	// postgres rejects an upsert touching the same key twice
	pos := make(map[string]int, len(records))
	rows := make([]Document, 0, len(records))
	for _, r := range records {
		meta := models.ChunkMetadataFromMap(r.Metadata)
		row := Document{
			Collection: s.collection,
			ID:         r.ID,
			Content:    r.Text,
			Source:     meta.Source,
			Page:       meta.Page,
			StartIndex: meta.StartIndex,
			Embedding:  pgvector.NewVector(r.Vector),
		}
		if i, ok := pos[r.ID]; ok {
			rows[i] = row
			continue
		}
		pos[r.ID] = len(rows)
		rows = append(rows, row)
	}
	return rows
}

func (s *VectorStore) upsertQuery(rows *[]Document) *bun.InsertQuery {
	return s.db.NewInsert().
		Model(rows).
		On("CONFLICT (collection, id) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("source = EXCLUDED.source").
		Set("page = EXCLUDED.page").
		Set("start_index = EXCLUDED.start_index").
		Set("embedding = EXCLUDED.embedding")
}

func (s *VectorStore) Upsert(ctx context.Context, records []models.StoredVector) error {
	if len(records) == 0 {
		return nil
	}
	rows := s.rows(records)
	if _, err := s.upsertQuery(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("%w: upsert: %w", models.ErrVectorStore, err)
	}
	log.Debug().Str("collection", s.collection).Int("rows", len(rows)).Msg("Upserted vectors")
	return nil
}

func (s *VectorStore) searchQuery(dst *[]Document, vector []float32, topK int) *bun.SelectQuery {
	embedding := pgvector.NewVector(vector)
	return s.db.NewSelect().
		Model(dst).
		Column("id", "content", "source", "page", "start_index").
		ColumnExpr("1 - (d.embedding <=> ?) AS score", embedding).
		Where("d.collection = ?", s.collection).
		OrderExpr("d.embedding <=> ?", embedding).
		Limit(topK)
}

// QueryEmbedding ranks by cosine distance; Score is 1 - distance.
func (s *VectorStore) QueryEmbedding(ctx context.Context, vector []float32, topK int) ([]models.QueryResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	var docs []Document
	if err := s.searchQuery(&docs, vector, topK).Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: search: %w", models.ErrVectorStore, err)
	}

	out := make([]models.QueryResult, len(docs))
	for i, d := range docs {
		out[i] = models.QueryResult{
			Chunk: models.Chunk{
				Content: d.Content,
				Metadata: models.ChunkMetadata{
					Source:     d.Source,
					Page:       d.Page,
					StartIndex: d.StartIndex,
					ID:         d.ID,
				},
			},
			Score: d.Score,
		}
	}
	return out, nil
}

func (s *VectorStore) Count(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*Document)(nil)).Where("collection = ?", s.collection).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %w", models.ErrVectorStore, err)
	}
	return n, nil
}

func (s *VectorStore) clearQuery() *bun.DeleteQuery {
	return s.db.NewDelete().Model((*Document)(nil)).Where("collection = ?", s.collection)
}

// Clear deletes every row of the collection.
func (s *VectorStore) Clear(ctx context.Context) error {
	if _, err := s.clearQuery().Exec(ctx); err != nil {
		return fmt.Errorf("%w: clear: %w", models.ErrVectorStore, err)
	}
	return nil
}

func (s *VectorStore) Close() error {
	return s.db.Close()
}
