package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// Store persists chunks with their embeddings and answers nearest-neighbour
// queries.
type Store interface {
	// InsertChunks inserts chunks and returns their row IDs in order.
	InsertChunks(ctx context.Context, chunks []Chunk) ([]int64, error)
	// InsertEmbeddings stores embeddings keyed by chunk row ID.
	InsertEmbeddings(ctx context.Context, chunkIDs []int64, embeddings [][]float32) error
	// Search finds the top-k chunks closest to the query embedding.
	Search(ctx context.Context, queryEmbedding []float32, k int) ([]SearchResult, error)
	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements Store backed by SQLite + sqlite-vec.
type SQLiteStore struct {
	db *sql.DB

	mu   sync.Mutex
	dims int
}

var _ Store = (*SQLiteStore)(nil)

// Open creates or opens a database at path and initializes the schema. Use
// ":memory:" for a process-lifetime index.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Every connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) InsertChunks(ctx context.Context, chunks []Chunk) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO chunks (key, source, content) VALUES (?, ?, ?)")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(chunks))
	for _, c := range chunks {
		res, err := stmt.ExecContext(ctx, c.Key, c.Source, c.Content)
		if err != nil {
			return nil, fmt.Errorf("insert chunk %s: %w", c.Key, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *SQLiteStore) InsertEmbeddings(ctx context.Context, chunkIDs []int64, embeddings [][]float32) error {
	if len(chunkIDs) != len(embeddings) {
		return fmt.Errorf("mismatched chunk IDs (%d) and embeddings (%d)", len(chunkIDs), len(embeddings))
	}
	if len(embeddings) == 0 {
		return nil
	}
	if err := s.ensureVectors(ctx, len(embeddings[0])); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, cid := range chunkIDs {
		blob, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			return fmt.Errorf("serialize embedding for chunk %d: %w", cid, err)
		}
		if _, err := stmt.ExecContext(ctx, cid, blob); err != nil {
			return fmt.Errorf("insert embedding for chunk %d: %w", cid, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ensureVectors(ctx context.Context, dims int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dims == 0 {
		if err := initVectors(ctx, s.db, dims); err != nil {
			return fmt.Errorf("create vector table: %w", err)
		}
		s.dims = dims
		return nil
	}
	if s.dims != dims {
		return fmt.Errorf("embedding width %d does not match index width %d", dims, s.dims)
	}
	return nil
}

func (s *SQLiteStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]SearchResult, error) {
	s.mu.Lock()
	dims := s.dims
	s.mu.Unlock()
	if dims == 0 {
		return nil, nil
	}

	blob, err := sqlite_vec.SerializeFloat32(queryEmbedding)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.chunk_id, v.distance, c.key, c.source, c.content
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, blob, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Chunk.ID, &r.Distance, &r.Chunk.Key, &r.Chunk.Source, &r.Chunk.Content); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
