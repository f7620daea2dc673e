// Package chunker splits raw documents into overlapping windows and gives
// every window an id derived from its provenance and position, so that
// re-ingesting unchanged content reproduces the same ids.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/textsplitter"

	"resume-assist/internal/config"
	"resume-assist/internal/models"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// window is a piece of a document and its rune offset in the parent.
type window struct {
	text  string
	start int
}

// Splitter turns documents into chunks. It is stateless between calls.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	strategy     string
	recursive    textsplitter.RecursiveCharacter
}

// New returns a Splitter for the given window size and overlap, counted in
// characters. strategy is config.SplitterRecursive or config.SplitterFixed.
func New(chunkSize, chunkOverlap int, strategy string) (*Splitter, error) {
	if err := config.ValidateChunking(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}
	s := &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		strategy:     strategy,
	}
	switch strategy {
	case config.SplitterRecursive:
		s.recursive = textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		)
	case config.SplitterFixed:
	default:
		return nil, fmt.Errorf("%w: unknown splitter %q", models.ErrInvalidConfig, strategy)
	}
	return s, nil
}

// NewFromConfig builds a Splitter from the rag section of the config.
func NewFromConfig(cfg *config.RAGConfig) (*Splitter, error) {
	return New(cfg.ChunkSize, cfg.ChunkOverlap, cfg.Splitter)
}

// Split chunks every document in order and assigns ids with AssignIDs.
// Documents with empty content produce no chunks.
func (s *Splitter) Split(documents []models.RawDocument) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for _, doc := range documents {
		windows, err := s.windows(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", doc.Metadata.Source, err)
		}
		for _, w := range windows {
			chunks = append(chunks, models.Chunk{
				Content: w.text,
				Metadata: models.ChunkMetadata{
					Source:     doc.Metadata.Source,
					Page:       doc.Metadata.Page,
					StartIndex: w.start,
				},
			})
		}
	}
	AssignIDs(chunks)
	log.Debug().Int("documents", len(documents)).Int("chunks", len(chunks)).Str("splitter", s.strategy).Msg("Split documents")
	return chunks, nil
}

func (s *Splitter) windows(content string) ([]window, error) {
	if content == "" {
		return nil, nil
	}
	if s.strategy == config.SplitterFixed {
		return fixedWindows(content, s.chunkSize, s.chunkOverlap), nil
	}
	pieces, err := s.recursive.SplitText(content)
	if err != nil {
		return nil, err
	}
	return locate(content, pieces, s.chunkOverlap), nil
}

// fixedWindows cuts content every chunkSize-overlap runes. The last window
// is the first one reaching the end of the content.
func fixedWindows(content string, chunkSize, overlap int) []window {
	runes := []rune(content)
	n := len(runes)
	if n == 0 {
		return nil
	}
	stride := chunkSize - overlap
	var out []window
	for start := 0; ; start += stride {
		end := min(start+chunkSize, n)
		out = append(out, window{text: string(runes[start:end]), start: start})
		if end >= n {
			break
		}
	}
	return out
}

// locate recovers the rune offset of each piece in content. Pieces come in
// document order, so each search starts where the previous piece's overlap
// begins and never before the previous start.
func locate(content string, pieces []string, overlap int) []window {
	out := make([]window, 0, len(pieces))
	from, prev := 0, 0
	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		idx := strings.Index(content[from:], piece)
		if idx >= 0 {
			idx += from
		} else if idx = strings.Index(content, piece); idx < 0 {
			// the splitter rewrote whitespace; fall back to the search position
			idx = from
		}
		idx = max(idx, prev)
		prev = idx
		out = append(out, window{text: piece, start: utf8.RuneCountInString(content[:idx])})

		next := min(idx+len(piece), len(content))
		for i := 0; i < overlap && next > idx+1; i++ {
			_, size := utf8.DecodeLastRuneInString(content[:next])
			next -= size
		}
		if next <= idx {
			_, size := utf8.DecodeRuneInString(content[idx:])
			next = idx + max(size, 1)
		}
		from = min(next, len(content))
	}
	return out
}
