// Package mock provides a deterministic embedder for tests.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync/atomic"
)

// DefaultDimension is the vector length of the default behaviour.
const DefaultDimension = 16

// Embedder satisfies langchaingo's embeddings.Embedder. The same text
// always yields the same unit vector. It is safe for concurrent use as long
// as the hook fields are set before the first call.
type Embedder struct {
	// EmbedDocumentsFunc replaces the default behaviour when set.
	EmbedDocumentsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQueryFunc replaces the default behaviour when set.
	EmbedQueryFunc func(ctx context.Context, text string) ([]float32, error)

	Dimension int

	calls atomic.Int64
}

func New() *Embedder {
	return &Embedder{Dimension: DefaultDimension}
}

func (m *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	if m.EmbedDocumentsFunc != nil {
		return m.EmbedDocumentsFunc(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = Vector(text, m.dimension())
	}
	return out, nil
}

func (m *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.EmbedQueryFunc != nil {
		return m.EmbedQueryFunc(ctx, text)
	}
	return Vector(text, m.dimension()), nil
}

// Calls returns how many embed calls were made.
func (m *Embedder) Calls() int {
	return int(m.calls.Load())
}

func (m *Embedder) dimension() int {
	if m.Dimension <= 0 {
		return DefaultDimension
	}
	return m.Dimension
}

// Vector derives a unit vector from an FNV hash of text.
func Vector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	v := make([]float32, dim)
	var sum float64
	for i := range v {
		seed = seed*1664525 + 1013904223
		v[i] = float32(seed%1000)/1000.0 + 0.001
		sum += float64(v[i]) * float64(v[i])
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
