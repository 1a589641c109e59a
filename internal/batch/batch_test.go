package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcopilot/internal/agent"
)

// echoEngine answers with the question id after a delay that shrinks with the
// position, so later questions tend to finish first.
type echoEngine struct {
	failOn string
	block  bool
}

func (e echoEngine) Answer(ctx context.Context, q agent.Question) (agent.Answer, error) {
	if e.block {
		<-ctx.Done()
		return agent.Answer{}, ctx.Err()
	}
	if q.ID == e.failOn {
		return agent.Answer{}, errors.New("boom")
	}
	var n int
	fmt.Sscanf(q.ID, "q%d", &n)
	time.Sleep(time.Duration(20-n) * time.Millisecond)
	return agent.Answer{ID: q.ID, FinalAnswer: n, Confidence: float64(n%3) * 0.45, Citations: []string{}}, nil
}

func questions(n int) []agent.Question {
	qs := make([]agent.Question, n)
	for i := range qs {
		qs[i] = agent.Question{ID: fmt.Sprintf("q%d", i), Question: "?", FormatHint: "int"}
	}
	return qs
}

func TestLoad(t *testing.T) {
	t.Run("Skips blank lines", func(t *testing.T) {
		in := `{"id":"a","question":"Q1","format_hint":"int"}


{"id":"b","question":"Q2","format_hint":"list[{product:str, revenue:float}]"}
`
		qs, err := Load(strings.NewReader(in))

		require.NoError(t, err)
		require.Len(t, qs, 2)
		assert.Equal(t, agent.Question{ID: "b", Question: "Q2", FormatHint: "list[{product:str, revenue:float}]"}, qs[1])
	})

	t.Run("Malformed line names its number", func(t *testing.T) {
		in := "{\"id\":\"a\",\"question\":\"Q\",\"format_hint\":\"int\"}\n\n{not json}\n"

		_, err := Load(strings.NewReader(in))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 3")
	})

	t.Run("Missing id", func(t *testing.T) {
		_, err := Load(strings.NewReader(`{"question":"Q"}`))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing id")
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "none.jsonl"))

		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "answers.jsonl")
	answers := []agent.Answer{
		{ID: "a", FinalAnswer: 30, SQL: "-- not implemented", Confidence: 0.95, Explanation: "x", Citations: []string{"product_policy::chunk0"}},
		{ID: "b", FinalAnswer: map[string]any{"category": "Beverages", "quantity": 30}, Confidence: 0.9},
	}

	require.NoError(t, WriteFile(path, answers))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"id":"a","final_answer":30,"sql":"-- not implemented","confidence":0.95,"explanation":"x","citations":["product_policy::chunk0"]}`, lines[0])
	assert.JSONEq(t, `{"id":"b","final_answer":{"category":"Beverages","quantity":30},"sql":"","confidence":0.9,"explanation":"","citations":[]}`, lines[1])
}

func TestRunner_Run(t *testing.T) {
	t.Run("Output order matches input order", func(t *testing.T) {
		qs := questions(12)
		r := NewRunner(echoEngine{}, 4, nil)
		r.OnProgress(func(done, total int) {
			assert.Equal(t, 12, total)
		})

		answers, stats, err := r.Run(context.Background(), qs)

		require.NoError(t, err)
		require.Len(t, answers, 12)
		for i, a := range answers {
			assert.Equal(t, qs[i].ID, a.ID)
		}
		assert.Equal(t, 12, stats.Total)
		assert.Equal(t, 4, stats.Failed, "q0 q3 q6 q9 have confidence 0")
		assert.Equal(t, 4, stats.Partial)
		assert.NotEmpty(t, stats.RunID)
	})

	t.Run("Engine error fails the run", func(t *testing.T) {
		_, _, err := NewRunner(echoEngine{failOn: "q2"}, 2, nil).Run(context.Background(), questions(5))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "question q2")
	})

	t.Run("Cancellation discards results", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		answers, stats, err := NewRunner(echoEngine{block: true}, 2, nil).Run(ctx, questions(6))

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Nil(t, answers)
		assert.Nil(t, stats)
	})

	t.Run("Empty input", func(t *testing.T) {
		answers, stats, err := NewRunner(echoEngine{}, 0, nil).Run(context.Background(), nil)

		require.NoError(t, err)
		assert.Empty(t, answers)
		assert.Zero(t, stats.Total)
	})
}

func TestPrintSummary(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer

	PrintSummary(&buf, []agent.Answer{{ID: "a", Confidence: 0.95}, {ID: "b", Confidence: 0.1}}, &Stats{
		RunID: "run-1", Total: 2, Failed: 1, Elapsed: 1500 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "run run-1")
	assert.Contains(t, out, "0.95")
	assert.Contains(t, out, "2 answered, 0 partial, 1 failed in 1.5s")
}
