package rag

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"retailcopilot/internal/walker"
)

// ErrNoChunks is returned when a document directory yields nothing to index.
var ErrNoChunks = errors.New("no document chunks loaded")

// Chunk is a fixed-width slice of a source document. Score is only set on
// values returned by a Retriever.
type Chunk struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

// Namespace returns the document part of the chunk id ("catalog" for
// "catalog::chunk0").
func (c Chunk) Namespace() string {
	ns, _, _ := strings.Cut(c.ID, "::")
	return ns
}

// Load reads every document in dir with one of exts and splits each into
// chunkSize-character chunks. Chunk i of file "name.md" has id "name::chunk<i>".
func Load(dir string, chunkSize int, exts []string) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	files, err := walker.List(dir, exts)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	for _, f := range files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		base := strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
		chunks = append(chunks, SplitFixed(base, f.Name, string(data), chunkSize)...)
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w from %s", ErrNoChunks, dir)
	}
	return chunks, nil
}

// SplitFixed cuts text into windows of size characters. The last window may be
// shorter. Empty text yields no chunks.
func SplitFixed(base, source, text string, size int) []Chunk {
	runes := []rune(text)
	chunks := make([]Chunk, 0, (len(runes)+size-1)/size)
	for i, start := 0, 0; start < len(runes); i, start = i+1, start+size {
		end := min(start+size, len(runes))
		chunks = append(chunks, Chunk{
			ID:     fmt.Sprintf("%s::chunk%d", base, i),
			Source: source,
			Text:   string(runes[start:end]),
		})
	}
	return chunks
}
