package parser

import (
	"context"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"resume-assist/internal/models"
)

func parseMarkdown(_ context.Context, filePath string) ([]models.RawDocument, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	content, err := markdownToText(data)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, nil
	}
	return []models.RawDocument{newDocument(filePath, content, nil)}, nil
}

// markdownToText strips markdown syntax and keeps the readable text, one
// blank line between paragraphs and headings.
func markdownToText(src []byte) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
			return ast.WalkContinue, nil
		case *ast.AutoLink:
			if entering {
				b.Write(node.Label(src))
			}
			return ast.WalkContinue, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(src))
				}
				endBlock(&b, "\n\n")
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}

		if !entering && n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
			switch n.Kind() {
			case ast.KindParagraph, ast.KindHeading, ast.KindBlockquote, ast.KindList:
				endBlock(&b, "\n\n")
			default:
				endBlock(&b, "\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}

// endBlock pads the builder so it ends with at least sep.
func endBlock(b *strings.Builder, sep string) {
	s := b.String()
	if s == "" {
		return
	}
	for !strings.HasSuffix(s, sep) {
		b.WriteByte('\n')
		s += "\n"
	}
}
