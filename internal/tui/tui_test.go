package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcopilot/internal/agent"
	"retailcopilot/internal/llm"
)

type stubLister struct {
	model  string
	models []llm.ModelInfo
	err    error
}

func (s stubLister) Model() string { return s.model }

func (s stubLister) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	return s.models, s.err
}

type stubEngine struct{}

func (stubEngine) Run(ctx context.Context, q agent.Question) (*agent.State, error) {
	st := agent.NewState(q)
	st.FinalAnswer = 30
	return st, nil
}

func TestFormatAnswer(t *testing.T) {
	st := agent.NewState(agent.Question{ID: "q1", FormatHint: "list[{product:str, revenue:float}]"})
	st.Route = agent.RouteSQL
	st.FinalAnswer = []map[string]any{{"product": "Chai", "revenue": 360.0}}
	st.Confidence = 0.9
	st.Explanation = "Ranked products by revenue."
	st.Citations = []string{"Orders", "Order Details"}
	st.SQL = "SELECT 1;"
	st.Trace = []string{"router (heuristic): route=sql", "executor: ok=true"}

	t.Run("Without trace", func(t *testing.T) {
		md := FormatAnswer(st, false)

		assert.Contains(t, md, "**q1** `[{\"product\":\"Chai\",\"revenue\":360}]`")
		assert.Contains(t, md, "- route: `sql`")
		assert.Contains(t, md, "- confidence: 0.90")
		assert.Contains(t, md, "- `Order Details`")
		assert.Contains(t, md, "```sql\nSELECT 1;\n```")
		assert.NotContains(t, md, "Trace")
		assert.NotContains(t, md, "repairs")
	})

	t.Run("With trace", func(t *testing.T) {
		md := FormatAnswer(st, true)

		assert.Contains(t, md, "1. executor: ok=true")
	})

	t.Run("Sentinel query is hidden", func(t *testing.T) {
		rag := agent.NewState(agent.Question{ID: "q2"})
		rag.SQL = agent.SentinelSQL
		rag.Attempt = 1

		md := FormatAnswer(rag, false)

		assert.NotContains(t, md, "```sql")
		assert.Contains(t, md, "**q2** `null`")
		assert.Contains(t, md, "- repairs: 1")
	})
}

func TestRender_NilRenderer(t *testing.T) {
	assert.Equal(t, "**x**", Render(nil, "**x**"))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "1.3 GB", formatSize(1_395_864_371))
	assert.Equal(t, "274 MB", formatSize(274*1024*1024))
}

func TestCheckModels(t *testing.T) {
	tests := []struct {
		name   string
		lister ModelLister
		want   modelStatus
	}{
		{"No model in use", nil, modelUnused},
		{"Installed", stubLister{model: "llama3.2:1b", models: []llm.ModelInfo{{Name: "llama3.2:1b", Size: 1 << 30}}}, modelReady},
		{"Not pulled", stubLister{model: "llama3.2:1b", models: []llm.ModelInfo{{Name: "qwen3:8b"}}}, modelMissing},
		{"Unreachable", stubLister{model: "llama3.2:1b", err: errors.New("connection refused")}, modelUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := checkModels(tt.lister)()

			got, ok := msg.(checkModelsMsg)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.status)
		})
	}
}

func TestModel_WelcomeToAsk(t *testing.T) {
	m := New(Config{Engine: stubEngine{}, Chunks: 4, Tables: 5, DocsDir: "docs", DBPath: "northwind.sqlite"})

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewWelcome, next.(Model).state, "enter is ignored until the model check finishes")
	assert.Contains(t, next.View(), "4 document chunks")

	next, _ = next.Update(checkModelsMsg{status: modelUnused})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, ViewAsk, next.(Model).state)
}

func TestAskModel(t *testing.T) {
	m := newAskModel(stubEngine{})
	m.initViewport(80, 24)

	t.Run("Slash commands", func(t *testing.T) {
		_, handled := m.command("/hint int")
		assert.True(t, handled)
		assert.Equal(t, agent.FormatHint("int"), m.hint)

		m.command("/id rag_policy_beverages_return_days")
		m.command("/trace")
		assert.True(t, m.trace)

		q := m.question("How many days?")
		assert.Equal(t, agent.Question{ID: "rag_policy_beverages_return_days", Question: "How many days?", FormatHint: "int"}, q)

		_, handled = m.command("not a command")
		assert.False(t, handled)

		cmd, _ := m.command("/exit")
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	})

	t.Run("Answer is appended", func(t *testing.T) {
		st, err := stubEngine{}.Run(context.Background(), agent.Question{ID: "a"})
		require.NoError(t, err)

		next, _ := m.Update(stateMsg{state: st})

		require.NotEmpty(t, next.messages)
		last := next.messages[len(next.messages)-1]
		assert.Equal(t, "answer", last.role)
		assert.Contains(t, last.content, "**a** `30`")
		assert.Equal(t, st.Confidence, last.confidence)
		assert.False(t, next.busy)
	})

	t.Run("Engine error is shown", func(t *testing.T) {
		next, _ := m.Update(stateMsg{err: context.Canceled})

		last := next.messages[len(next.messages)-1]
		assert.Equal(t, "error", last.role)
	})
}

func TestConfidenceStyle(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       lipgloss.Style
	}{
		{"Placeholder answer", 0.1, failStyle},
		{"Partial answer", 0.6, cautionStyle},
		{"Grounded answer", 0.9, readyStyle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := confidenceStyle(tt.confidence)
			assert.Equal(t, tt.want.GetForeground(), got.GetForeground())
		})
	}

	t.Run("Badge carries the score", func(t *testing.T) {
		assert.Contains(t, confidenceBadge(0.75), "confidence 0.75")
	})
}
