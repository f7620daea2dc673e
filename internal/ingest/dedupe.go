package ingest

import "resume-assist/internal/models"

// Dedupe collapses chunks sharing an id. The survivor keeps the position of
// the first occurrence and the content of the last.
func Dedupe(chunks []models.Chunk) []models.Chunk {
	pos := make(map[string]int, len(chunks))
	out := make([]models.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if i, ok := pos[c.Metadata.ID]; ok {
			out[i] = c
			continue
		}
		pos[c.Metadata.ID] = len(out)
		out = append(out, c)
	}
	return out
}
