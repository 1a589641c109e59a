package rag

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern matches words of two or more letters, digits or underscores.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

type term struct {
	idx int
	w   float64
}

// sparse is a vector stored as terms sorted by index, so dot products sum in
// a fixed order and scores are bit-for-bit reproducible.
type sparse []term

func (a sparse) dot(b sparse) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].idx == b[j].idx:
			sum += a[i].w * b[j].w
			i++
			j++
		case a[i].idx < b[j].idx:
			i++
		default:
			j++
		}
	}
	return sum
}

func (a sparse) normalize() {
	var norm float64
	for _, t := range a {
		norm += t.w * t.w
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range a {
		a[i].w /= norm
	}
}

// TFIDF is an in-memory term-weighted index over a fixed chunk set. It is
// read-only after NewTFIDF returns.
type TFIDF struct {
	chunks []Chunk
	vocab  map[string]int
	idf    []float64
	rows   []sparse
}

var _ Retriever = (*TFIDF)(nil)

// NewTFIDF fits the index: raw term counts, smoothed idf
// ln((1+n)/(1+df))+1, English stop words removed, L2-normalised rows.
func NewTFIDF(chunks []Chunk) (*TFIDF, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("fit tfidf: %w", ErrNoChunks)
	}

	counts := make([]map[string]int, len(chunks))
	df := make(map[string]int)
	for i, c := range chunks {
		counts[i] = termCounts(c.Text)
		for t := range counts[i] {
			df[t]++
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	idx := &TFIDF{
		chunks: make([]Chunk, len(chunks)),
		vocab:  make(map[string]int, len(terms)),
		idf:    make([]float64, len(terms)),
		rows:   make([]sparse, len(chunks)),
	}
	copy(idx.chunks, chunks)

	n := float64(len(chunks))
	for i, t := range terms {
		idx.vocab[t] = i
		idx.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	for i := range chunks {
		idx.rows[i] = idx.weigh(counts[i])
		idx.chunks[i].Score = 0
	}
	return idx, nil
}

// Chunks returns a copy of the indexed chunks in load order.
func (t *TFIDF) Chunks() []Chunk {
	out := make([]Chunk, len(t.chunks))
	copy(out, t.chunks)
	return out
}

// Len returns the number of indexed chunks.
func (t *TFIDF) Len() int { return len(t.chunks) }

// Retrieve returns the k best-scoring chunks. Ties keep load order.
func (t *TFIDF) Retrieve(ctx context.Context, query string, k int) ([]Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = DefaultTopK
	}
	k = min(k, len(t.chunks))

	q := t.weigh(termCounts(query))
	order := make([]int, len(t.chunks))
	scores := make([]float64, len(t.chunks))
	for i, row := range t.rows {
		order[i] = i
		scores[i] = row.dot(q)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	out := make([]Chunk, k)
	for i := 0; i < k; i++ {
		c := t.chunks[order[i]]
		c.Score = scores[order[i]]
		out[i] = c
	}
	return out, nil
}

// weigh projects term counts into the fitted space. Unknown terms are dropped.
func (t *TFIDF) weigh(counts map[string]int) sparse {
	v := make(sparse, 0, len(counts))
	for word, n := range counts {
		i, ok := t.vocab[word]
		if !ok {
			continue
		}
		v = append(v, term{idx: i, w: float64(n) * t.idf[i]})
	}
	sort.Slice(v, func(a, b int) bool { return v[a].idx < v[b].idx })
	v.normalize()
	return v
}

func termCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if stopWords[tok] {
			continue
		}
		counts[tok]++
	}
	return counts
}
