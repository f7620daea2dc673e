package chunker

import (
	"strconv"

	"resume-assist/internal/models"
)

type pageKey struct {
	source string
	page   string
}

// ChunkID renders the id of the ordinal-th chunk of a source page.
func ChunkID(source, page string, ordinal int) string {
	return source + ":" + page + ":" + strconv.Itoa(ordinal)
}

// AssignIDs sets Metadata.ID on every chunk in iteration order. The ordinal
// starts at 0 and increments while consecutive chunks share the same
// (source, page); it resets to 0 whenever that key changes. A nil page is
// rendered as models.NullPage.
func AssignIDs(chunks []models.Chunk) {
	var (
		last    pageKey
		ordinal int
	)
	for i := range chunks {
		meta := &chunks[i].Metadata
		key := pageKey{
			source: meta.Source,
			page:   models.DocumentMetadata{Source: meta.Source, Page: meta.Page}.PageString(),
		}
		if i > 0 && key == last {
			ordinal++
		} else {
			ordinal = 0
		}
		meta.ID = ChunkID(key.source, key.page, ordinal)
		last = key
	}
}
