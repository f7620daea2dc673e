package parser

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestParseText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", "hello world\nsecond line")

	docs, err := ParseFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "hello world\nsecond line", docs[0].Content)
	assert.Equal(t, path, docs[0].Metadata.Source)
	assert.Nil(t, docs[0].Metadata.Page)
}

func TestParseTextBlank(t *testing.T) {
	path := writeFile(t, t.TempDir(), "blank.txt", "  \n\t")

	docs, err := ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestParseMarkdown(t *testing.T) {
	src := "# Resume\n\nSome *bold* text with `code`.\n\n- one\n- two\n\n```\nfmt.Println()\n```\n"
	path := writeFile(t, t.TempDir(), "cv.md", src)

	docs, err := ParseFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	content := docs[0].Content
	assert.Contains(t, content, "Resume\n\nSome bold text with code.")
	assert.Contains(t, content, "one\ntwo")
	assert.Contains(t, content, "fmt.Println()")
	assert.NotContains(t, content, "#")
	assert.NotContains(t, content, "*")
}

func TestParseHTML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "page.html", "<html><body><h1>Skills</h1><p>Go and SQL</p></body></html>")

	docs, err := ParseFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "Skills")
	assert.Contains(t, docs[0].Content, "Go and SQL")
	assert.NotContains(t, docs[0].Content, "<p>")
}

func TestParsePPTXOrdersSlides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.pptx")
	slide := func(text string) string {
		return `<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` +
			text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	}
	writeZip(t, path, map[string]string{
		"ppt/slides/slide10.xml":           slide("tenth"),
		"ppt/slides/slide2.xml":            slide("second"),
		"ppt/slides/_rels/slide2.xml.rels": "<Relationships/>",
		"ppt/slides/slide3.xml":            slide(" "),
		"ppt/presentation.xml":             "<p:presentation/>",
	})

	docs, err := ParseFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "second", docs[0].Content)
	assert.Equal(t, 2, *docs[0].Metadata.Page)
	assert.Equal(t, "tenth", docs[1].Content)
	assert.Equal(t, 10, *docs[1].Metadata.Page)
}

func TestParseDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cv.docx")
	body := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="w"><w:body>` +
		`<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t xml:space="preserve">Backend </w:t></w:r><w:r><w:t>engineer</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	writeZip(t, path, map[string]string{
		"word/document.xml":            body,
		"word/_rels/document.xml.rels": `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"[Content_Types].xml":          `<Types/>`,
	})

	docs, err := ParseFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Jane Doe\nBackend engineer", docs[0].Content)
	assert.Nil(t, docs[0].Metadata.Page)
}

func TestParseXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills.xlsx")
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Skills")
	require.NoError(t, err)
	row := sheet.AddRow()
	row.AddCell().Value = "Go"
	row.AddCell().Value = "5y"
	_, err = file.AddSheet("Empty")
	require.NoError(t, err)
	require.NoError(t, file.Save(path))

	docs, err := ParseFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "## Sheet: Skills\nGo\t5y", docs[0].Content)
	assert.Equal(t, 1, *docs[0].Metadata.Page)
}

func TestParseWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsm")
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "role"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "jane"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	docs, err := ParseFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "## Sheet: Sheet1\nname\trole\njane", docs[0].Content)
}

func TestParseUnsupported(t *testing.T) {
	path := writeFile(t, t.TempDir(), "image.png", "not really")

	_, err := ParseFile(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, IsSupported(path))
}

func TestParseCorruptPDF(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.pdf", "%PDF-garbage")

	_, err := ParseFile(context.Background(), path)
	assert.Error(t, err)
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()
	assert.Contains(t, exts, ".pdf")
	assert.Contains(t, exts, ".txt")
	assert.IsIncreasing(t, exts)
}

func TestExtractXMLTextRejectsMalformed(t *testing.T) {
	_, err := extractXMLText("<a:p><a:t>open", "t", "p")
	assert.Error(t, err)
}
