package parser

import (
	"strings"

	"github.com/tmc/langchaingo/schema"

	"resume-assist/internal/models"
)

// fromLoaded converts langchaingo documents of a non-paginated file.
func fromLoaded(filePath string, loaded []schema.Document) []models.RawDocument {
	var docs []models.RawDocument
	for _, d := range loaded {
		if strings.TrimSpace(d.PageContent) == "" {
			continue
		}
		docs = append(docs, newDocument(filePath, d.PageContent, nil))
	}
	return docs
}
