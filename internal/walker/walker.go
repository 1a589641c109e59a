package walker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileInfo holds metadata about a discovered document file.
type FileInfo struct {
	Path string
	Name string
	Size int64
}

// MaxFileSize is the largest document List accepts (4 MB).
const MaxFileSize = 4 << 20

// ErrTooLarge is wrapped when a matching document exceeds MaxFileSize.
var ErrTooLarge = errors.New("document too large")

// List returns the regular files directly inside dir whose extension is in
// exts, sorted by name. Extensions are compared case-insensitively and may be
// given with or without the leading dot. Sub-directories are not descended.
// A matching file over MaxFileSize fails the whole listing.
func List(dir string, exts []string) ([]FileInfo, error) {
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[normalizeExt(e)] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read document directory: %w", err)
	}

	var files []FileInfo
	for _, d := range entries {
		if d.IsDir() || !d.Type().IsRegular() {
			continue
		}
		if !allowed[normalizeExt(filepath.Ext(d.Name()))] {
			continue
		}

		info, err := d.Info()
		if err != nil {
			return nil, fmt.Errorf("stat document %s: %w", d.Name(), err)
		}
		if info.Size() > MaxFileSize {
			return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, d.Name(), info.Size(), MaxFileSize)
		}

		files = append(files, FileInfo{
			Path: filepath.Join(dir, d.Name()),
			Name: d.Name(),
			Size: info.Size(),
		})
	}

	// os.ReadDir already sorts, but callers depend on it.
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
