package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"retailcopilot/internal/agent"
)

const helpText = `Commands:
  /id <id>      set the question id used for the next questions
  /hint <hint>  set the format hint (int, float, list[...], {...})
  /trace        toggle the stage trace
  /clear        clear the transcript
  /exit         quit
  /help         show this help`

type askModel struct {
	viewport    viewport.Model
	input       textinput.Model
	spinner     spinner.Model
	renderer    *glamour.TermRenderer
	engine      Engine
	messages    []askMessage
	id          string
	hint        agent.FormatHint
	trace       bool
	busy        bool
	asked       int
	width       int
	height      int
	initialized bool
}

type askMessage struct {
	role       string
	content    string
	confidence float64
}

// stateMsg is sent when the engine finishes a question.
type stateMsg struct {
	state *agent.State
	err   error
}

func newAskModel(engine Engine) askModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	ti := textinput.New()
	ti.Placeholder = "Ask a retail analytics question..."
	ti.CharLimit = 2000
	ti.Focus()

	return askModel{
		spinner: sp,
		input:   ti,
		engine:  engine,
		hint:    "other",
	}
}

func (m *askModel) initViewport(width, height int) {
	m.width = width
	m.height = height

	// viewport + status bar + input
	vpHeight := height - 3
	if vpHeight < 5 {
		vpHeight = 5
	}
	m.viewport = viewport.New(width, vpHeight)
	m.viewport.SetContent(mutedStyle.Render("Ask a question about products, campaigns or sales.\n\n" + helpText))

	m.input.Width = width - 4
	m.renderer = NewRenderer(width)
	m.initialized = true
}

func askQuestion(engine Engine, q agent.Question) tea.Cmd {
	return func() tea.Msg {
		st, err := engine.Run(context.Background(), q)
		return stateMsg{state: st, err: err}
	}
}

// command handles a slash command. It reports false when line is a question.
func (m *askModel) command(line string) (tea.Cmd, bool) {
	if !strings.HasPrefix(line, "/") {
		return nil, false
	}
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/exit", "/quit":
		return tea.Quit, true
	case "/clear":
		m.messages = nil
	case "/help":
		m.messages = append(m.messages, askMessage{role: "system", content: helpText})
	case "/trace":
		m.trace = !m.trace
		m.messages = append(m.messages, askMessage{role: "system", content: fmt.Sprintf("trace %s", onOff(m.trace))})
	case "/id":
		m.id = arg
		m.messages = append(m.messages, askMessage{role: "system", content: "id: " + arg})
	case "/hint":
		if arg == "" {
			arg = "other"
		}
		m.hint = agent.FormatHint(arg)
		m.messages = append(m.messages, askMessage{role: "system", content: fmt.Sprintf("format hint: %s (%s)", arg, m.hint.Kind())})
	default:
		m.messages = append(m.messages, askMessage{role: "error", content: "unknown command " + name})
	}
	return nil, true
}

func (m askModel) question(text string) agent.Question {
	id := m.id
	if id == "" {
		id = fmt.Sprintf("tui-%d", m.asked)
	}
	return agent.Question{ID: id, Question: text, FormatHint: m.hint}
}

func (m askModel) Update(msg tea.Msg) (askModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.initViewport(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case stateMsg:
		m.busy = false
		if msg.err != nil {
			m.messages = append(m.messages, askMessage{role: "error", content: msg.err.Error()})
		} else {
			m.messages = append(m.messages, askMessage{
				role:       "answer",
				content:    FormatAnswer(msg.state, m.trace),
				confidence: msg.state.Confidence,
			})
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.refresh()
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if msg.Type == tea.KeyEnter {
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			m.input.Reset()

			if cmd, ok := m.command(line); ok {
				m.refresh()
				return m, cmd
			}

			q := m.question(line)
			m.asked++
			m.messages = append(m.messages, askMessage{role: "user", content: line})
			m.busy = true
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, askQuestion(m.engine, q))
		}
	}

	if !m.busy {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *askModel) refresh() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m askModel) renderMessages() string {
	var sb strings.Builder
	for _, msg := range m.messages {
		switch msg.role {
		case "user":
			sb.WriteString(questionStyle.Render("You: ") + msg.content + "\n\n")
		case "answer":
			sb.WriteString(confidenceBadge(msg.confidence) + "\n")
			sb.WriteString(Render(m.renderer, msg.content) + "\n\n")
		case "error":
			sb.WriteString(failStyle.Render("Error: "+msg.content) + "\n\n")
		case "system":
			sb.WriteString(mutedStyle.Render(msg.content) + "\n\n")
		}
	}
	if m.busy {
		sb.WriteString(m.spinner.View() + " " + mutedStyle.Render("Answering...") + "\n")
	}
	return sb.String()
}

func (m askModel) View(width, height int) string {
	if !m.initialized {
		return ""
	}

	status := "idle"
	if m.busy {
		status = "answering..."
	}
	hint := string(m.hint)
	if m.id != "" {
		hint = m.id + " • " + hint
	}
	statusBar := statusLineStyle.
		Width(m.width).
		Render(fmt.Sprintf(" retail copilot • %s • %s • trace %s", status, hint, onOff(m.trace)))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewport.View(),
		statusBar,
		m.input.View(),
	)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func confidenceBadge(c float64) string {
	return confidenceStyle(c).Render(fmt.Sprintf("● confidence %.2f", c))
}
