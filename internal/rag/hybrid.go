package rag

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"retailcopilot/internal/store"
)

const embedBatchSize = 32

// Embedder turns texts into dense vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// IndexVectors mirrors chunks into st with their embeddings. It runs once at
// startup, before any Retrieve call.
func IndexVectors(ctx context.Context, st store.Store, emb Embedder, chunks []Chunk) error {
	for i := 0; i < len(chunks); i += embedBatchSize {
		batch := chunks[i:min(i+embedBatchSize, len(chunks))]

		texts := make([]string, len(batch))
		rows := make([]store.Chunk, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
			rows[j] = store.Chunk{Key: c.ID, Source: c.Source, Content: c.Text}
		}

		vecs, err := emb.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", i, i+len(batch)-1, err)
		}
		ids, err := st.InsertChunks(ctx, rows)
		if err != nil {
			return fmt.Errorf("store chunks: %w", err)
		}
		if err := st.InsertEmbeddings(ctx, ids, vecs); err != nil {
			return fmt.Errorf("store embeddings: %w", err)
		}
	}
	return nil
}

// Hybrid merges lexical TF-IDF matches with vector similarity matches.
type Hybrid struct {
	lexical *TFIDF
	vectors store.Store
	emb     Embedder
	byID    map[string]Chunk
	log     *zap.Logger
}

var _ Retriever = (*Hybrid)(nil)

// NewHybrid wraps a fitted TF-IDF index and a populated vector store.
func NewHybrid(lexical *TFIDF, vectors store.Store, emb Embedder, log *zap.Logger) *Hybrid {
	if log == nil {
		log = zap.NewNop()
	}
	byID := make(map[string]Chunk, lexical.Len())
	for _, c := range lexical.Chunks() {
		byID[c.ID] = c
	}
	return &Hybrid{lexical: lexical, vectors: vectors, emb: emb, byID: byID, log: log}
}

// Retrieve merges TF-IDF matches with vector matches, deduplicated by chunk
// id, ordered by descending score and capped at k. Vector scores are
// 1/(1+distance); a chunk found by both keeps its lexical score. Equal scores
// keep lexical before vector order. When the query cannot be embedded the
// lexical results stand alone.
func (h *Hybrid) Retrieve(ctx context.Context, query string, k int) ([]Chunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	lexical, err := h.lexical.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}

	vecResults, err := h.vectorSearch(ctx, query, k)
	if err != nil {
		h.log.Warn("vector search failed, using lexical results only", zap.Error(err))
		vecResults = nil
	}

	seen := make(map[string]bool, k)
	merged := make([]Chunk, 0, k)
	for _, c := range lexical {
		if c.Score <= 0 || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		merged = append(merged, c)
	}
	for _, r := range vecResults {
		if seen[r.Chunk.Key] {
			continue
		}
		c, ok := h.byID[r.Chunk.Key]
		if !ok {
			continue
		}
		seen[c.ID] = true
		c.Score = 1 / (1 + r.Distance)
		merged = append(merged, c)
	}
	// Top up with zero-score lexical hits so callers still get k chunks.
	for _, c := range lexical {
		if !seen[c.ID] {
			seen[c.ID] = true
			merged = append(merged, c)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

func (h *Hybrid) vectorSearch(ctx context.Context, query string, k int) ([]store.SearchResult, error) {
	vecs, err := h.emb.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	return h.vectors.Search(ctx, vecs[0], k)
}
