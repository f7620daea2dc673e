package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"resume-assist/internal/llmservice"
	"resume-assist/internal/models"
	"resume-assist/internal/vectorstore"
)

var thinkTag = regexp.MustCompile(models.ThinkTag)

// RAG answers questions from chunks retrieved out of the index.
type RAG struct {
	index *vectorstore.Index
	llm   llms.Model
	topK  int
}

func NewRAG(index *vectorstore.Index, llm llms.Model, topK int) *RAG {
	return &RAG{index: index, llm: llm, topK: topK}
}

// Retrieve returns the k most similar chunks; k <= 0 uses the configured top_k.
func (r *RAG) Retrieve(ctx context.Context, text string, k int) ([]models.QueryResult, error) {
	if k <= 0 {
		k = r.topK
	}
	return r.index.Query(ctx, text, k)
}

// BuildContext joins the chunk texts, each prefixed with its source tag, and
// returns the distinct sources in rank order.
func BuildContext(results []models.QueryResult) (string, []string) {
	var sb strings.Builder
	var sources []string
	seen := map[string]bool{}
	for i, res := range results {
		if i > 0 {
			sb.WriteString(models.ContextSeparator)
		}
		meta := res.Chunk.Metadata
		fmt.Fprintf(&sb, "[%s]\n%s", sourceTag(meta), res.Chunk.Content)
		if !seen[meta.Source] {
			seen[meta.Source] = true
			sources = append(sources, meta.Source)
		}
	}
	return sb.String(), sources
}

func sourceTag(meta models.ChunkMetadata) string {
	if meta.Page == nil {
		return meta.Source
	}
	return fmt.Sprintf("%s page %d", meta.Source, *meta.Page)
}

// Answer retrieves context for question and asks the chat model.
func (r *RAG) Answer(ctx context.Context, question string, k int) (*models.PromptResponse, error) {
	results, err := r.Retrieve(ctx, question, k)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no indexed documents to answer from", models.ErrNotFound)
	}

	contextText, sources := BuildContext(results)
	prompt := fmt.Sprintf(models.AnswerPromptTemplate, contextText, question)
	log.Debug().Int("chunks", len(results)).Strs("sources", sources).Msg("Asking chat model")

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	resp, err := llmservice.GenerateContent(ctx, r.llm, messages)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("generate answer: empty response")
	}

	return &models.PromptResponse{
		Query:   question,
		Source:  strings.Join(sources, ", "),
		Content: strings.TrimSpace(thinkTag.ReplaceAllString(resp.Choices[0].Content, "")),
	}, nil
}
