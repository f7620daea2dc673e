// Package ingest composes loader, chunker, embedder and vector store into a
// re-runnable batch ingestion.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"

	"resume-assist/internal/models"
	"resume-assist/internal/vectorstore"
)

var (
	ErrLoaderRequired   = errors.New("loader is required")
	ErrSplitterRequired = errors.New("splitter is required")
	ErrEmbedderRequired = errors.New("embedder is required")
	ErrStoreRequired    = errors.New("vector store is required")
)

const DefaultBatchSize = 32

type DocumentLoader interface {
	Load(ctx context.Context, dir string, filters []string) ([]models.RawDocument, []models.Diagnostic, error)
}

type Splitter interface {
	Split(documents []models.RawDocument) ([]models.Chunk, error)
}

// Embedder returns one vector per text, in input order.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Report summarises one ingestion run.
type Report struct {
	RunID       string
	Documents   int
	Chunks      int
	Upserted    int
	Diagnostics []models.Diagnostic
	Duration    time.Duration
}

type Pipeline struct {
	loader    DocumentLoader
	splitter  Splitter
	embedder  Embedder
	store     vectorstore.Store
	pool      *ants.Pool
	batchSize int
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many embedding batches run at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many chunk texts go into one embedding call.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: batch size must be > 0, got %d", models.ErrInvalidConfig, size)
		}
		p.batchSize = size
		return nil
	}
}

func NewPipeline(loader DocumentLoader, splitter Splitter, embedder Embedder, store vectorstore.Store, opts ...Option) (*Pipeline, error) {
	switch {
	case loader == nil:
		return nil, ErrLoaderRequired
	case splitter == nil:
		return nil, ErrSplitterRequired
	case embedder == nil:
		return nil, ErrEmbedderRequired
	case store == nil:
		return nil, ErrStoreRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		loader:    loader,
		splitter:  splitter,
		embedder:  embedder,
		store:     store,
		pool:      pool,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}
	return p, nil
}

// Release stops the worker pool. The store is left open.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Prepare loads and chunks dir without touching the embedder or the store.
func (p *Pipeline) Prepare(ctx context.Context, dir string, filters []string) ([]models.RawDocument, []models.Chunk, []models.Diagnostic, error) {
	return Prepare(ctx, p.loader, p.splitter, dir, filters)
}

// Prepare runs the load and split stages alone, as used by dry runs.
func Prepare(ctx context.Context, loader DocumentLoader, splitter Splitter, dir string, filters []string) ([]models.RawDocument, []models.Chunk, []models.Diagnostic, error) {
	docs, diags, err := loader.Load(ctx, dir, filters)
	if err != nil {
		return nil, nil, nil, err
	}
	chunks, err := splitter.Split(docs)
	if err != nil {
		return nil, nil, diags, err
	}
	return docs, chunks, diags, nil
}

// Ingest runs load, split, embed and upsert. Every chunk is embedded before
// anything is written, so an embedding failure leaves the store as it was.
// Running it twice on an unchanged directory writes the same ids.
func (p *Pipeline) Ingest(ctx context.Context, dir string, filters []string) (*Report, error) {
	return p.run(ctx, dir, filters, false)
}

// Replace is Ingest on an emptied store. The store is cleared only after
// every embedding succeeded, so a failed run leaves it unchanged.
func (p *Pipeline) Replace(ctx context.Context, dir string, filters []string) (*Report, error) {
	return p.run(ctx, dir, filters, true)
}

func (p *Pipeline) run(ctx context.Context, dir string, filters []string, replace bool) (*Report, error) {
	started := time.Now()
	report := &Report{RunID: uuid.NewString()}
	logger := log.With().Str("run_id", report.RunID).Str("dir", dir).Logger()

	docs, chunks, diags, err := p.Prepare(ctx, dir, filters)
	report.Diagnostics = diags
	if err != nil {
		return report, err
	}
	report.Documents = len(docs)
	report.Chunks = len(chunks)
	logger.Debug().Int("documents", len(docs)).Int("chunks", len(chunks)).Int("diagnostics", len(diags)).Msg("Prepared chunks")

	chunks = Dedupe(chunks)
	if len(chunks) == 0 {
		if replace {
			if err := p.Reset(ctx); err != nil {
				return report, err
			}
		}
		report.Duration = time.Since(started)
		logger.Info().Msg("Nothing to ingest")
		return report, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := p.embed(ctx, texts)
	if err != nil {
		return report, err
	}

	records := make([]models.StoredVector, len(chunks))
	for i, c := range chunks {
		records[i] = models.StoredVector{
			ID:       c.Metadata.ID,
			Vector:   vectors[i],
			Text:     c.Content,
			Metadata: c.Metadata.Map(),
		}
	}
	if replace {
		if err := p.Reset(ctx); err != nil {
			return report, err
		}
	}
	if err := p.store.Upsert(ctx, records); err != nil {
		return report, err
	}
	report.Upserted = len(records)
	report.Duration = time.Since(started)

	logger.Info().
		Int("documents", report.Documents).
		Int("chunks", report.Chunks).
		Int("upserted", report.Upserted).
		Int("diagnostics", len(report.Diagnostics)).
		Dur("duration", report.Duration).
		Msg("Ingestion finished")
	return report, nil
}

// Reset deletes everything in the store.
func (p *Pipeline) Reset(ctx context.Context) error {
	if err := p.store.Clear(ctx); err != nil {
		return err
	}
	log.Info().Msg("Vector store cleared")
	return nil
}

// embed splits texts into batches and runs them on the pool. Results are
// placed by index. The first failure cancels the remaining batches.
func (p *Pipeline) embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][]float32, len(texts))
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			out, err := p.embedder.EmbedDocuments(ctx, texts[start:end])
			if err == nil && len(out) != end-start {
				err = fmt.Errorf("expected %d vectors, received %d", end-start, len(out))
			}
			if err != nil {
				fail(err)
				return
			}
			copy(vectors[start:end], out)
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		if errors.Is(firstErr, models.ErrEmbeddingBackend) || errors.Is(firstErr, context.Canceled) || errors.Is(firstErr, context.DeadlineExceeded) {
			return nil, firstErr
		}
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingBackend, firstErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vectors, nil
}
