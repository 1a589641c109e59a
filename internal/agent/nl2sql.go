package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"retailcopilot/internal/llm"
	"retailcopilot/internal/sqlexec"
)

// SentinelSQL marks a question with no derivable query. The executor stage
// never sends it to the database.
const SentinelSQL = "-- not implemented"

// SQLRequest is the input to query synthesis.
type SQLRequest struct {
	ID         string
	Question   string
	FormatHint FormatHint
	Plan       Plan
	Schema     sqlexec.Schema
}

// SQLSynthesizer turns a question into query text or SentinelSQL.
type SQLSynthesizer interface {
	Synthesize(ctx context.Context, req SQLRequest) (string, error)
}

// LookupSynthesizer returns the fixed query for known question ids.
type LookupSynthesizer struct{}

var _ SQLSynthesizer = LookupSynthesizer{}

func (LookupSynthesizer) Synthesize(_ context.Context, req SQLRequest) (string, error) {
	if q, ok := lookupQueries[req.ID]; ok {
		return q, nil
	}
	return SentinelSQL, nil
}

const sqlPrompt = `You write one SQLite query for a Northwind retail database.
Quote table names that contain spaces, for example "Order Details".
Revenue is SUM(UnitPrice * Quantity * (1 - Discount)) over "Order Details".
Reply with the SQL only, no explanation.`

// GenerativeSynthesizer uses the lookup table first and asks a chat model
// for anything it does not know.
type GenerativeSynthesizer struct {
	chat ChatModel
}

var _ SQLSynthesizer = (*GenerativeSynthesizer)(nil)

func NewGenerativeSynthesizer(chat ChatModel) *GenerativeSynthesizer {
	return &GenerativeSynthesizer{chat: chat}
}

// Synthesize returns SentinelSQL together with the error when the model fails
// or replies with something other than a read query.
func (g *GenerativeSynthesizer) Synthesize(ctx context.Context, req SQLRequest) (string, error) {
	if q, _ := (LookupSynthesizer{}).Synthesize(ctx, req); q != SentinelSQL {
		return q, nil
	}

	plan, err := json.Marshal(req.Plan)
	if err != nil {
		plan = []byte("{}")
	}
	out, err := g.chat.Generate(ctx, []llm.Message{
		{Role: "system", Content: sqlPrompt},
		{Role: "user", Content: fmt.Sprintf("Schema:\n%s\nConstraints: %s\nAnswer format: %s\nQuestion: %s",
			req.Schema, plan, req.FormatHint, req.Question)},
	})
	if err != nil {
		return SentinelSQL, fmt.Errorf("sql model: %w", err)
	}

	query := cleanSQL(out)
	if err := checkReadQuery(query); err != nil {
		return SentinelSQL, fmt.Errorf("sql model reply rejected: %w", err)
	}
	return query, nil
}

// cleanSQL strips markdown code fences around a model reply.
func cleanSQL(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "sqlite"), "sql")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// writeKeyword matches statements that may follow a CTE or change the
// connection. Literals mentioning these words are rejected too.
var writeKeyword = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|REPLACE|UPSERT|DROP|ALTER|CREATE|ATTACH|DETACH|PRAGMA|VACUUM|REINDEX)\b`)

// checkReadQuery accepts exactly one SELECT or WITH statement, optionally
// terminated by a single semicolon.
func checkReadQuery(s string) error {
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return errors.New("not a SELECT statement")
	}
	body := strings.TrimSuffix(strings.TrimSpace(s), ";")
	if strings.Contains(body, ";") {
		return errors.New("more than one statement")
	}
	if m := writeKeyword.FindString(body); m != "" {
		return fmt.Errorf("contains %s", strings.ToUpper(m))
	}
	return nil
}

func (e *Engine) synthesizeSQL(ctx context.Context, st *State) {
	ctx, cancel := context.WithTimeout(ctx, e.sqlTimeout)
	defer cancel()

	query, err := e.sql.Synthesize(ctx, SQLRequest{
		ID:         st.ID,
		Question:   st.Question,
		FormatHint: st.FormatHint,
		Plan:       st.Plan,
		Schema:     e.schema,
	})
	if err != nil {
		st.tracef("nl_to_sql error: %v", err)
		query = SentinelSQL
	}
	st.SQL = query

	if query == "" || query == SentinelSQL {
		st.tracef("nl_to_sql: no query for %s", st.ID)
		return
	}
	st.tracef("nl_to_sql: generated SQL for %s", st.ID)
}

func (e *Engine) execute(ctx context.Context, st *State) {
	var res sqlexec.Result
	if st.SQL == "" || st.SQL == SentinelSQL {
		res = sqlexec.Result{OK: false, Error: "not implemented", Columns: []string{}, Rows: [][]any{}}
	} else {
		res = e.executor.Execute(ctx, st.SQL, e.rowLimit)
	}
	st.SQLResult = &res

	if !res.OK {
		st.Error = res.Error
	}
	if res.Truncated {
		st.tracef("executor: ok=%t truncated=true", res.OK)
		return
	}
	st.tracef("executor: ok=%t", res.OK)
}
