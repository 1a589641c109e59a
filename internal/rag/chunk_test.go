package rag

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDocs(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestSplitFixed(t *testing.T) {
	t.Run("Exact windows with short tail", func(t *testing.T) {
		chunks := SplitFixed("catalog", "catalog.md", "abcdefghij", 4)

		require.Len(t, chunks, 3)
		assert.Equal(t, "catalog::chunk0", chunks[0].ID)
		assert.Equal(t, "abcd", chunks[0].Text)
		assert.Equal(t, "efgh", chunks[1].Text)
		assert.Equal(t, "ij", chunks[2].Text)
		assert.Equal(t, "catalog::chunk2", chunks[2].ID)
		assert.Equal(t, "catalog.md", chunks[2].Source)
	})

	t.Run("Counts characters not bytes", func(t *testing.T) {
		chunks := SplitFixed("menu", "menu.md", "café crème", 5)

		require.Len(t, chunks, 2)
		assert.Equal(t, "café ", chunks[0].Text)
		assert.Equal(t, "crème", chunks[1].Text)
	})

	t.Run("Empty text", func(t *testing.T) {
		assert.Empty(t, SplitFixed("x", "x.md", "", 10))
	})
}

func TestLoad(t *testing.T) {
	t.Run("Chunks every matching document", func(t *testing.T) {
		dir := writeDocs(t, map[string]string{
			"product_policy.md":     strings.Repeat("p", 650),
			"marketing_calendar.md": "Summer Beverages 1997: 1997-06-01 to 1997-06-30",
			"ignored.csv":           "a,b,c",
		})

		chunks, err := Load(dir, 300, []string{".md"})

		require.NoError(t, err)
		assert.Equal(t, []string{
			"marketing_calendar::chunk0",
			"product_policy::chunk0",
			"product_policy::chunk1",
			"product_policy::chunk2",
		}, IDs(chunks))
		assert.Len(t, chunks[3].Text, 50)
		for _, c := range chunks {
			assert.Zero(t, c.Score)
		}
		assert.Equal(t, "product_policy", chunks[1].Namespace())
	})

	t.Run("Empty directory is fatal", func(t *testing.T) {
		_, err := Load(t.TempDir(), 300, []string{".md"})

		assert.ErrorIs(t, err, ErrNoChunks)
	})

	t.Run("Missing directory", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "docs"), 300, []string{".md"})

		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Non-positive chunk size", func(t *testing.T) {
		_, err := Load(t.TempDir(), 0, []string{".md"})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "must be positive")
	})
}
