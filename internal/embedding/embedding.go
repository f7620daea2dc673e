// Package embedding adapts langchaingo embedding providers to the ingestion
// pipeline: retries, result shape checks and error classification.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"golang.org/x/time/rate"

	"resume-assist/internal/config"
	"resume-assist/internal/models"
)

// Service wraps a provider. Every error it returns wraps models.ErrEmbeddingBackend,
// except context cancellation which is returned as is.
type Service struct {
	provider   embeddings.Embedder
	maxRetries int
	retryDelay time.Duration
	limiter    *rate.Limiter
	queries    *lru.Cache[string, []float32]

	mu        sync.Mutex
	dimension int
}

var _ embeddings.Embedder = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithRetry retries a failed provider call up to maxRetries extra times,
// doubling delay after each attempt.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(s *Service) {
		if maxRetries >= 0 {
			s.maxRetries = maxRetries
		}
		if delay > 0 {
			s.retryDelay = delay
		}
	}
}

// WithRateLimit allows at most perSecond provider calls per second, with
// bursts of up to burst calls. Retries count against the limit too.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Service) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

// WithQueryCache keeps the last size query embeddings in memory.
func WithQueryCache(size int) Option {
	return func(s *Service) {
		if size <= 0 {
			return
		}
		cache, err := lru.New[string, []float32](size)
		if err == nil {
			s.queries = cache
		}
	}
}

func NewService(provider embeddings.Embedder, opts ...Option) *Service {
	s := &Service{
		provider:   provider,
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceFromConfig builds the provider named in cfg and wraps it.
func NewServiceFromConfig(ctx context.Context, cfg *config.LLMConfig) (*Service, error) {
	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewService(provider,
		WithRetry(cfg.MaxRetries, time.Duration(cfg.RetryDelay)),
		WithRateLimit(cfg.RateLimit, 1),
		WithQueryCache(cfg.QueryCache),
	), nil
}

// Dimension returns the vector length seen so far, or 0 before the first call.
func (s *Service) Dimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dimension
}

// EmbedDocuments returns one vector per text, in input order.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var vectors [][]float32
	err := s.retry(ctx, func() error {
		var err error
		vectors, err = s.provider.EmbedDocuments(ctx, texts)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d vectors, received %d", models.ErrEmbeddingBackend, len(texts), len(vectors))
	}
	for _, v := range vectors {
		if err := s.checkDimension(v); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

// EmbedQuery embeds a single search text with the same provider used for documents.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if s.queries != nil {
		if v, ok := s.queries.Get(text); ok {
			return v, nil
		}
	}
	var vector []float32
	err := s.retry(ctx, func() error {
		var err error
		vector, err = s.provider.EmbedQuery(ctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := s.checkDimension(vector); err != nil {
		return nil, err
	}
	if s.queries != nil {
		s.queries.Add(text, vector)
	}
	return vector, nil
}

func (s *Service) checkDimension(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", models.ErrEmbeddingBackend)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		s.dimension = len(v)
		return nil
	}
	if len(v) != s.dimension {
		return fmt.Errorf("%w: dimension changed from %d to %d", models.ErrEmbeddingBackend, s.dimension, len(v))
	}
	return nil
}

// retry runs op with exponential backoff. Context errors stop immediately.
func (s *Service) retry(ctx context.Context, op func() error) error {
	delay := s.retryDelay
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		lastErr = op()
		if lastErr == nil {
			if attempt > 0 {
				log.Debug().Int("attempt", attempt+1).Msg("Embedding succeeded after retry")
			}
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		log.Warn().Err(lastErr).Int("attempt", attempt+1).Int("max_attempts", s.maxRetries+1).Msg("Embedding failed")
		if attempt == s.maxRetries {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return fmt.Errorf("%w: %w", models.ErrEmbeddingBackend, lastErr)
}
