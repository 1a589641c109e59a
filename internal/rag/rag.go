// Package rag loads document chunks and ranks them against free-text queries.
package rag

import "context"

// DefaultTopK is the number of chunks returned when callers pass k <= 0.
const DefaultTopK = 5

// Retriever ranks chunks by relevance to a query. Implementations are built
// once and must be safe for concurrent use.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Chunk, error)
}

// IDs returns the chunk ids in order.
func IDs(chunks []Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}
