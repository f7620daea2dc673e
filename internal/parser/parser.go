package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/xuri/excelize/v2"

	"resume-assist/internal/models"
)

// ErrUnsupportedFormat is returned for file extensions without a parser.
var ErrUnsupportedFormat = errors.New("unsupported file format")

type parseFunc func(ctx context.Context, filePath string) ([]models.RawDocument, error)

var parsers = map[string]parseFunc{
	".pdf":      parsePDF,
	".docx":     parseDOCX,
	".pptx":     parsePPTX,
	".xlsx":     parseXLSX,
	".xlsm":     parseWorkbook,
	".xltx":     parseWorkbook,
	".xltm":     parseWorkbook,
	".txt":      parseText,
	".md":       parseMarkdown,
	".markdown": parseMarkdown,
	".html":     parseHTML,
	".htm":      parseHTML,
}

// SupportedExtensions lists the extensions ParseFile understands, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(parsers))
	for ext := range parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsSupported reports whether the file extension has a parser.
func IsSupported(filePath string) bool {
	_, ok := parsers[strings.ToLower(filepath.Ext(filePath))]
	return ok
}

// ParseFile reads one file into raw documents: one per page for paginated
// formats (pdf pages, slides, sheets) and one otherwise. Blank pages are dropped.
func ParseFile(ctx context.Context, filePath string) ([]models.RawDocument, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	parse, ok := parsers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return parse(ctx, filePath)
}

func newDocument(source, content string, page *int) models.RawDocument {
	return models.RawDocument{
		Content:  content,
		Metadata: models.DocumentMetadata{Source: source, Page: page},
	}
}

func parsePDF(_ context.Context, filePath string) ([]models.RawDocument, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var docs []models.RawDocument
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		docs = append(docs, newDocument(filePath, pageText, models.IntPtr(i)))
	}
	return docs, nil
}

func parseDOCX(_ context.Context, filePath string) ([]models.RawDocument, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	// GetContent returns the raw word/document.xml body
	content, err := extractXMLText(r.Editable().GetContent(), "t", "p")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	return []models.RawDocument{newDocument(filePath, content, nil)}, nil
}

func parseXLSX(_ context.Context, filePath string) ([]models.RawDocument, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var docs []models.RawDocument
	for sheetNum, sheet := range f.Sheets {
		rows := make([][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			if row == nil {
				continue
			}
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
		if text := sheetText(sheet.Name, rows); text != "" {
			docs = append(docs, newDocument(filePath, text, models.IntPtr(sheetNum+1)))
		}
	}
	return docs, nil
}

// parseWorkbook handles the macro-enabled and template workbook variants.
func parseWorkbook(_ context.Context, filePath string) ([]models.RawDocument, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []models.RawDocument
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheetName, err)
		}
		if text := sheetText(sheetName, rows); text != "" {
			docs = append(docs, newDocument(filePath, text, models.IntPtr(sheetNum+1)))
		}
	}
	return docs, nil
}

// sheetText renders rows as tab separated lines under a sheet heading.
// A sheet without any non-empty cell renders as "".
func sheetText(name string, rows [][]string) string {
	var text strings.Builder
	hasContent := false
	text.WriteString(fmt.Sprintf("## Sheet: %s\n", name))
	for _, row := range rows {
		line := strings.TrimRight(strings.Join(row, "\t"), "\t ")
		if line == "" {
			continue
		}
		hasContent = true
		text.WriteString(line)
		text.WriteString("\n")
	}
	if !hasContent {
		return ""
	}
	return strings.TrimSpace(text.String())
}

func parseText(ctx context.Context, filePath string) ([]models.RawDocument, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	loaded, err := documentloaders.NewText(f).Load(ctx)
	if err != nil {
		return nil, err
	}
	return fromLoaded(filePath, loaded), nil
}

func parseHTML(ctx context.Context, filePath string) ([]models.RawDocument, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	loaded, err := documentloaders.NewHTML(f).Load(ctx)
	if err != nil {
		return nil, err
	}
	return fromLoaded(filePath, loaded), nil
}
