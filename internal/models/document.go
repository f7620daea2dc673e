package models

import (
	"strconv"
)

// NullPage is how a missing page number is rendered inside chunk ids.
const NullPage = "None"

// metadata keys shared by every vector store backend
const (
	MetaSource     = "source"
	MetaPage       = "page"
	MetaStartIndex = "start_index"
	MetaID         = "id"
)

// RawDocument is the text of one source file, or of one page of a paginated file.
type RawDocument struct {
	Content  string
	Metadata DocumentMetadata
}

// DocumentMetadata records where a RawDocument came from.
type DocumentMetadata struct {
	Source string `json:"source"`
	Page   *int   `json:"page"`
}

// PageString renders the page number, or NullPage when the document has no pages.
func (m DocumentMetadata) PageString() string {
	if m.Page == nil {
		return NullPage
	}
	return strconv.Itoa(*m.Page)
}

// Chunk is a bounded window of a RawDocument.
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkMetadata carries the parent's provenance plus the chunk position and id.
type ChunkMetadata struct {
	Source     string `json:"source"`
	Page       *int   `json:"page"`
	StartIndex int    `json:"start_index"`
	ID         string `json:"id"`
}

// Map flattens the metadata into string pairs. A nil page is omitted.
func (m ChunkMetadata) Map() map[string]string {
	out := map[string]string{
		MetaSource:     m.Source,
		MetaStartIndex: strconv.Itoa(m.StartIndex),
		MetaID:         m.ID,
	}
	if m.Page != nil {
		out[MetaPage] = strconv.Itoa(*m.Page)
	}
	return out
}

// ChunkMetadataFromMap is the inverse of ChunkMetadata.Map. Unparseable numbers are ignored.
func ChunkMetadataFromMap(meta map[string]string) ChunkMetadata {
	m := ChunkMetadata{
		Source: meta[MetaSource],
		ID:     meta[MetaID],
	}
	if v, ok := meta[MetaPage]; ok {
		if page, err := strconv.Atoi(v); err == nil {
			m.Page = &page
		}
	}
	if v, err := strconv.Atoi(meta[MetaStartIndex]); err == nil {
		m.StartIndex = v
	}
	return m
}

// StoredVector is the unit persisted by a vector store. ID equals the chunk id.
type StoredVector struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// QueryResult is one ranked hit from a nearest-neighbour query.
type QueryResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

// Diagnostic is a non-fatal problem met while loading a file.
type Diagnostic struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (d Diagnostic) String() string {
	if d.Err == nil {
		return d.Path
	}
	return d.Path + ": " + d.Err.Error()
}

// PromptResponse is the answer of a retrieval augmented question.
type PromptResponse struct {
	Query   string
	Source  string
	Content string
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
