package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-assist/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadMissingDirectory(t *testing.T) {
	_, _, err := New().Load(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLoadFileInsteadOfDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, "x")

	_, _, err := New().Load(context.Background(), path, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLoadSkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha")
	writeFile(t, filepath.Join(dir, "broken.pdf"), "%PDF-not-a-pdf")
	writeFile(t, filepath.Join(dir, "nested", "b.md"), "# beta")

	docs, diagnostics, err := New().Load(context.Background(), dir, nil)
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, filepath.Join(dir, "a.txt"), docs[0].Metadata.Source)
	assert.Equal(t, "alpha", docs[0].Content)
	assert.Equal(t, filepath.Join(dir, "nested", "b.md"), docs[1].Metadata.Source)
	assert.Equal(t, "beta", docs[1].Content)

	require.Len(t, diagnostics, 1)
	assert.Equal(t, filepath.Join(dir, "broken.pdf"), diagnostics[0].Path)
	assert.Error(t, diagnostics[0].Err)
}

func TestLoadReportsUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha")
	writeFile(t, filepath.Join(dir, "photo.png"), "png")

	docs, diagnostics, err := New().Load(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, filepath.Join(dir, "photo.png"), diagnostics[0].Path)
}

func TestLoadAppliesFilters(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha")
	writeFile(t, filepath.Join(dir, "b.md"), "beta")
	writeFile(t, filepath.Join(dir, "deep", "c.txt"), "gamma")
	writeFile(t, filepath.Join(dir, "photo.png"), "png")

	docs, diagnostics, err := New().Load(context.Background(), dir, []string{"**/*.txt"})
	require.NoError(t, err)
	assert.Empty(t, diagnostics)
	require.Len(t, docs, 2)
	assert.Equal(t, "alpha", docs[0].Content)
	assert.Equal(t, "gamma", docs[1].Content)
}

func TestLoadSkipsHiddenEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha")
	writeFile(t, filepath.Join(dir, ".cache", "b.txt"), "beta")
	writeFile(t, filepath.Join(dir, ".secret.txt"), "gamma")

	docs, _, err := New().Load(context.Background(), dir, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "alpha", docs[0].Content)
}

func TestLoadBadFilter(t *testing.T) {
	_, _, err := New().Load(context.Background(), t.TempDir(), []string{"[a-"})
	assert.ErrorIs(t, err, models.ErrInvalidConfig)
}

func TestLoadIsRestartable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha")
	l := New()

	first, _, err := l.Load(context.Background(), dir, nil)
	require.NoError(t, err)
	writeFile(t, filepath.Join(dir, "b.txt"), "beta")
	second, _, err := l.Load(context.Background(), dir, nil)
	require.NoError(t, err)

	assert.Len(t, first, 1)
	assert.Len(t, second, 2)
}

func TestLoadWithCustomParser(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha")
	writeFile(t, filepath.Join(dir, "b.txt"), "beta")

	l := New(WithParser(func(_ context.Context, p string) ([]models.RawDocument, error) {
		if filepath.Base(p) == "b.txt" {
			return nil, errors.New("permission denied")
		}
		return []models.RawDocument{{Content: "parsed", Metadata: models.DocumentMetadata{Source: p}}}, nil
	}))

	docs, diagnostics, err := l.Load(context.Background(), dir, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Len(t, diagnostics, 1)
	assert.EqualError(t, diagnostics[0].Err, "permission denied")
}

func TestMatches(t *testing.T) {
	tests := []struct {
		rel      string
		patterns []string
		want     bool
	}{
		{"a.txt", nil, true},
		{"a.txt", []string{"*.txt"}, true},
		{"x/y/a.txt", []string{"*.txt"}, true},
		{"x/y/a.txt", []string{"**/*.txt"}, true},
		{"x/y/a.txt", []string{"**/y/*.txt"}, true},
		{"x/y/a.txt", []string{"x/*.txt"}, false},
		{"x/a.txt", []string{"x/*.txt"}, true},
		{"a.pdf", []string{"*.txt", "*.md"}, false},
		{"a.md", []string{"*.txt", "*.md"}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Matches(tt.rel, tt.patterns), "%s %v", tt.rel, tt.patterns)
	}
}

func TestLoadRecoversParserPanic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha")

	l := New(WithParser(func(context.Context, string) ([]models.RawDocument, error) {
		panic("malformed xref")
	}))

	docs, diagnostics, err := l.Load(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
	require.Len(t, diagnostics, 1)
	assert.Contains(t, diagnostics[0].Err.Error(), "malformed xref")
}
