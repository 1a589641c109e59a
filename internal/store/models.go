package store

// Chunk is a retrievable document chunk mirrored into the vector store. Key is
// the chunk's public id ("catalog::chunk0").
type Chunk struct {
	ID      int64
	Key     string
	Source  string
	Content string
}

// SearchResult is a chunk with its vector distance to the query.
type SearchResult struct {
	Chunk    Chunk
	Distance float64
}
