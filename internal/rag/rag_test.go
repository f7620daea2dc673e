package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"resume-assist/internal/config"
	"resume-assist/internal/embedding/mock"
	"resume-assist/internal/models"
	"resume-assist/internal/vectorstore"
)

type fakeLLM struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, part := range messages[0].Parts {
		if text, ok := part.(llms.TextContent); ok {
			f.prompt += text.Text
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.reply, f.err
}

func newIndex(t *testing.T, texts map[string]string) *vectorstore.Index {
	t.Helper()
	ctx := context.Background()
	cfg := config.Default()
	cfg.VectorStore.InMemory = true
	store, err := vectorstore.Open(ctx, cfg, nil)
	require.NoError(t, err)

	var records []models.StoredVector
	for id, text := range texts {
		source, _, _ := strings.Cut(id, ":")
		meta := models.ChunkMetadata{Source: source, Page: models.IntPtr(1), ID: id}
		records = append(records, models.StoredVector{
			ID:       id,
			Vector:   mock.Vector(text, mock.DefaultDimension),
			Text:     text,
			Metadata: meta.Map(),
		})
	}
	require.NoError(t, store.Upsert(ctx, records))
	return vectorstore.NewIndex(store, mock.New())
}

func TestRetrieveUsesDefaultTopK(t *testing.T) {
	index := newIndex(t, map[string]string{
		"cv.pdf:1:0":     "five years of Go",
		"cv.pdf:1:1":     "led a platform team",
		"letter.pdf:1:0": "dear hiring manager",
	})
	r := NewRAG(index, &fakeLLM{}, 2)

	results, err := r.Retrieve(context.Background(), "five years of Go", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "cv.pdf:1:0", results[0].Chunk.Metadata.ID)
}

func TestAnswer(t *testing.T) {
	index := newIndex(t, map[string]string{
		"cv.pdf:1:0":     "five years of Go",
		"letter.pdf:1:0": "dear hiring manager",
	})
	llm := &fakeLLM{reply: "<think>\nhmm\n</think>\nFive years."}
	r := NewRAG(index, llm, 5)

	resp, err := r.Answer(context.Background(), "How much Go experience?", 0)
	require.NoError(t, err)

	assert.Equal(t, "How much Go experience?", resp.Query)
	assert.Equal(t, "Five years.", resp.Content)
	assert.Contains(t, resp.Source, "cv.pdf")
	assert.Contains(t, resp.Source, "letter.pdf")
	assert.Contains(t, llm.prompt, "[cv.pdf page 1]\nfive years of Go")
	assert.Contains(t, llm.prompt, "Question: How much Go experience?")
}

func TestAnswerEmptyIndex(t *testing.T) {
	r := NewRAG(newIndex(t, nil), &fakeLLM{reply: "x"}, 3)

	_, err := r.Answer(context.Background(), "anything", 0)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAnswerLLMError(t *testing.T) {
	index := newIndex(t, map[string]string{"cv.pdf:1:0": "text"})
	r := NewRAG(index, &fakeLLM{err: errors.New("model overloaded")}, 3)

	_, err := r.Answer(context.Background(), "q", 0)
	assert.ErrorContains(t, err, "model overloaded")
}

func TestBuildContext(t *testing.T) {
	results := []models.QueryResult{
		{Chunk: models.Chunk{Content: "one", Metadata: models.ChunkMetadata{Source: "a.txt"}}},
		{Chunk: models.Chunk{Content: "two", Metadata: models.ChunkMetadata{Source: "b.pdf", Page: models.IntPtr(3)}}},
		{Chunk: models.Chunk{Content: "three", Metadata: models.ChunkMetadata{Source: "a.txt"}}},
	}

	text, sources := BuildContext(results)
	assert.Equal(t, "[a.txt]\none"+models.ContextSeparator+"[b.pdf page 3]\ntwo"+models.ContextSeparator+"[a.txt]\nthree", text)
	assert.Equal(t, []string{"a.txt", "b.pdf"}, sources)
}
