package store

import (
	"context"
	"database/sql"
	"fmt"
)

const ddl = `
CREATE TABLE IF NOT EXISTS chunks (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    key     TEXT NOT NULL UNIQUE,
    source  TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL
);
`

// vecDDL is created lazily because the embedding width is only known once the
// first batch comes back from the embedder.
const vecDDL = `CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    chunk_id INTEGER PRIMARY KEY,
    embedding float[%d]
);`

// Init creates the schema tables if they don't exist.
func Init(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}

func initVectors(ctx context.Context, db *sql.DB, dims int) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(vecDDL, dims))
	return err
}
