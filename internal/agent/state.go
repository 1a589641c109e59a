// Package agent answers retail analytics questions by threading one State
// through routing, retrieval, planning, query synthesis, execution and answer
// synthesis.
package agent

import (
	"fmt"

	"retailcopilot/internal/rag"
	"retailcopilot/internal/sqlexec"
)

// Route is the answering strategy picked for a question.
type Route string

const (
	RouteRAG    Route = "rag"
	RouteSQL    Route = "sql"
	RouteHybrid Route = "hybrid"
)

// ParseRoute accepts exactly one of the three route tokens.
func ParseRoute(s string) (Route, bool) {
	switch r := Route(s); r {
	case RouteRAG, RouteSQL, RouteHybrid:
		return r, true
	}
	return "", false
}

// Plan holds constraints extracted from the question and retrieved evidence.
// Keys are "kpis", "categories", "campaign", "date_range", "year" and "notes".
type Plan map[string]any

// DateRange is a campaign window found in the documents.
type DateRange struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Source string `json:"source"`
}

// DateRange returns the plan's campaign window, if the planner found one.
func (p Plan) DateRange() (DateRange, bool) {
	dr, ok := p["date_range"].(DateRange)
	return dr, ok
}

// Question is one input record.
type Question struct {
	ID         string     `json:"id"`
	Question   string     `json:"question"`
	FormatHint FormatHint `json:"format_hint"`
}

// Answer is one output record.
type Answer struct {
	ID          string   `json:"id"`
	FinalAnswer any      `json:"final_answer"`
	SQL         string   `json:"sql"`
	Confidence  float64  `json:"confidence"`
	Explanation string   `json:"explanation"`
	Citations   []string `json:"citations"`
}

// State is the record every stage reads and writes for one question. It is
// owned by a single goroutine for its whole life.
type State struct {
	ID         string
	Question   string
	FormatHint FormatHint

	Route         Route
	RetrievedDocs []rag.Chunk
	Plan          Plan
	SQL           string
	SQLResult     *sqlexec.Result

	FinalAnswer any
	Explanation string
	Citations   []string
	Confidence  float64

	Attempt int
	Error   string
	Trace   []string
}

// NewState starts a pipeline run for q.
func NewState(q Question) *State {
	return &State{
		ID:         q.ID,
		Question:   q.Question,
		FormatHint: q.FormatHint,
		Trace:      []string{},
	}
}

func (s *State) tracef(format string, args ...any) {
	s.Trace = append(s.Trace, fmt.Sprintf(format, args...))
}

// Answer projects the state onto the output record.
func (s *State) Answer() Answer {
	citations := make([]string, len(s.Citations))
	copy(citations, s.Citations)
	return Answer{
		ID:          s.ID,
		FinalAnswer: s.FinalAnswer,
		SQL:         s.SQL,
		Confidence:  s.Confidence,
		Explanation: s.Explanation,
		Citations:   citations,
	}
}

// appendUnique appends each value not already present, keeping first-seen order.
func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		dup := false
		for _, d := range dst {
			if d == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
