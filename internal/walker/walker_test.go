package walker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestList(t *testing.T) {
	t.Run("Filters by extension and sorts by name", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "product_policy.md"), "policy")
		writeFile(t, filepath.Join(dir, "catalog.MD"), "catalog")
		writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
		writeFile(t, filepath.Join(dir, "nested", "deep.md"), "not descended")

		files, err := List(dir, []string{".md"})

		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "catalog.MD", files[0].Name)
		assert.Equal(t, "product_policy.md", files[1].Name)
		assert.Equal(t, filepath.Join(dir, "catalog.MD"), files[0].Path)
		assert.Equal(t, int64(len("catalog")), files[0].Size)
	})

	t.Run("Extensions without dot", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.txt"), "a")
		writeFile(t, filepath.Join(dir, "b.md"), "b")

		files, err := List(dir, []string{"txt", "md"})

		require.NoError(t, err)
		assert.Len(t, files, 2)
	})

	t.Run("Missing directory", func(t *testing.T) {
		_, err := List(filepath.Join(t.TempDir(), "missing"), []string{".md"})

		assert.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Oversized document fails the listing", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "catalog.md"), "catalog")
		writeFile(t, filepath.Join(dir, "huge.md"), strings.Repeat("x", MaxFileSize+1))
		writeFile(t, filepath.Join(dir, "huge.txt"), strings.Repeat("x", MaxFileSize+1))

		_, err := List(dir, []string{".md"})

		assert.ErrorIs(t, err, ErrTooLarge)
		assert.Contains(t, err.Error(), "huge.md")
	})

	t.Run("Oversized files with other extensions are ignored", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "catalog.md"), "catalog")
		writeFile(t, filepath.Join(dir, "dump.txt"), strings.Repeat("x", MaxFileSize+1))

		files, err := List(dir, []string{".md"})

		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("Empty directory", func(t *testing.T) {
		files, err := List(t.TempDir(), []string{".md"})

		require.NoError(t, err)
		assert.Empty(t, files)
	})
}
