package tree

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexjbarnes/remsync/internal/remarkable"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testIndex(t *testing.T, records ...*remarkable.Record) *remarkable.Index {
	t.Helper()

	idx, err := remarkable.NewIndex(records)
	require.NoError(t, err)

	return idx
}

func folder(id, name, parent string) *remarkable.Record {
	return &remarkable.Record{ID: id, VisibleName: name, Parent: parent, Type: "CollectionType"}
}

func document(id, name, parent string) *remarkable.Record {
	return &remarkable.Record{ID: id, VisibleName: name, Parent: parent, Type: "DocumentType"}
}

// seedFiles writes the given relative path to content mapping under a
// fresh temp dir and returns the dir.
func seedFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	return dir
}
