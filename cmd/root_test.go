package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-assist/internal/models"
)

func writeConfig(t *testing.T, backend string) (string, string) {
	t.Helper()
	root := t.TempDir()
	data := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(data, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(data, "cv.txt"), []byte(strings.Repeat("go ", 600)), 0644))

	cfg := fmt.Sprintf(`rag:
  data_dir: %s
  chunk_size: 500
  chunk_overlap: 100
  splitter: fixed
vector_store:
  backend: %s
  path: %s
  collection: docs
database:
  driver: sqlite
  dsn: file:%s
`, data, backend, filepath.Join(root, "store"), filepath.Join(root, "app.db"))
	path := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path, root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestIngestDryRun(t *testing.T) {
	cfgPath, root := writeConfig(t, "chromem")

	out, err := run(t, "--config", cfgPath, "ingest", "--dry-run")
	require.NoError(t, err)

	source := filepath.Join(root, "data", "cv.txt")
	// 1800 runes, size 500, overlap 100: ceil(1700/400) = 5 chunks
	for i := 0; i < 5; i++ {
		assert.Contains(t, out, fmt.Sprintf("%s:None:%d", source, i))
	}
	assert.NotContains(t, out, source+":None:5")
}

func TestIngestDryRunMissingDir(t *testing.T) {
	cfgPath, root := writeConfig(t, "chromem")

	_, err := run(t, "--config", cfgPath, "ingest", filepath.Join(root, "nope"), "--dry-run")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestResetExportImport(t *testing.T) {
	cfgPath, root := writeConfig(t, "chromem")
	snapshot := filepath.Join(root, "snapshots", "docs.chromem")

	out, err := run(t, "--config", cfgPath, "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared collection docs")

	_, err = run(t, "--config", cfgPath, "export", snapshot)
	require.NoError(t, err)
	assert.FileExists(t, snapshot)

	out, err = run(t, "--config", cfgPath, "import", snapshot)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 0 vectors")
}

func TestExportUnsupportedBackend(t *testing.T) {
	cfgPath, root := writeConfig(t, "badger")

	_, err := run(t, "--config", cfgPath, "export", filepath.Join(root, "x.snap"))
	assert.ErrorIs(t, err, models.ErrInvalidConfig)
}

func TestMigrateSqlite(t *testing.T) {
	cfgPath, _ := writeConfig(t, "chromem")

	out, err := run(t, "--config", cfgPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema ready")
}

func TestMissingConfig(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "reset")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInvalidLogLevel(t *testing.T) {
	cfgPath, _ := writeConfig(t, "chromem")

	_, err := run(t, "--log-level", "loud", "--config", cfgPath, "reset")
	assert.Error(t, err)
}
