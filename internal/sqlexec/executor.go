// Package sqlexec runs read queries against the retail SQLite database and
// reports every failure as data instead of an error.
package sqlexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultRowLimit caps result rows when callers pass a non-positive limit.
const DefaultRowLimit = 1000

const timeLayout = "2006-01-02 15:04:05"

// Column is one column of a table as reported by PRAGMA table_info.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema maps table names to their columns.
type Schema map[string][]Column

// String renders the schema one table per line, tables sorted by name:
//
//	"Order Details"(OrderID INTEGER, ProductID INTEGER, ...)
func (s Schema) String() string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(quoteIdent(name))
		b.WriteByte('(')
		for i, c := range s[name] {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Name)
			if c.Type != "" {
				b.WriteByte(' ')
				b.WriteString(c.Type)
			}
		}
		b.WriteString(")\n")
	}
	return b.String()
}

// Executor wraps a SQLite database. It is safe for concurrent use.
type Executor struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// Open connects to an existing SQLite file. It never creates one.
func Open(path string) (*Executor, error) {
	return open(path, false)
}

// OpenReadOnly is Open for a shared database: every statement runs with
// query_only set, so writes fail instead of changing the file.
func OpenReadOnly(path string) (*Executor, error) {
	return open(path, true)
}

func open(path string, readOnly bool) (*Executor, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database %s: %w", path, err)
	}
	return &Executor{db: db, path: path, readOnly: readOnly}, nil
}

// Path returns the database file the executor was opened on.
func (e *Executor) Path() string { return e.path }

func (e *Executor) Close() error {
	return e.db.Close()
}

// Tables lists user tables ordered by name.
func (e *Executor) Tables(ctx context.Context) ([]string, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Schema describes every user table.
func (e *Executor) Schema(ctx context.Context) (Schema, error) {
	tables, err := e.Tables(ctx)
	if err != nil {
		return nil, err
	}

	schema := make(Schema, len(tables))
	for _, table := range tables {
		cols, err := e.tableInfo(ctx, table)
		if err != nil {
			return nil, err
		}
		schema[table] = cols
	}
	return schema, nil
}

func (e *Executor) tableInfo(ctx context.Context, table string) ([]Column, error) {
	rows, err := e.db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("describe %s: %w", table, err)
		}
		cols = append(cols, Column{Name: name, Type: typ})
	}
	return cols, rows.Err()
}

// Execute runs query on a dedicated connection and returns at most rowLimit
// rows. It never returns an error: driver failures, cancellation and panics
// all become a Result with OK false.
func (e *Executor) Execute(ctx context.Context, query string, rowLimit int) (res Result) {
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}
	if strings.TrimSpace(query) == "" {
		return failed(errors.New("empty query"))
	}

	defer func() {
		if r := recover(); r != nil {
			res = failed(fmt.Errorf("panic during query: %v", r))
		}
	}()

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return failed(err)
	}
	defer conn.Close()

	if e.readOnly {
		if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
			return failed(err)
		}
	}

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return failed(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return failed(err)
	}

	res = Result{OK: true, Columns: cols, Rows: [][]any{}}
	if len(cols) == 0 {
		res.Columns = []string{}
		// Drain so statements without a result set run to completion.
		for rows.Next() {
		}
		if err := rows.Err(); err != nil {
			return failed(err)
		}
		return res
	}

	for rows.Next() {
		if len(res.Rows) == rowLimit {
			res.Truncated = true
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return failed(err)
		}
		for i, v := range vals {
			vals[i] = normalize(v)
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return failed(err)
	}
	return res
}

func failed(err error) Result {
	msg := err.Error()
	if msg == "" {
		msg = "query failed"
	}
	return Result{OK: false, Error: msg, Columns: []string{}, Rows: [][]any{}}
}

func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(timeLayout)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
