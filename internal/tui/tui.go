package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"retailcopilot/internal/agent"
	"retailcopilot/internal/llm"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewWelcome ViewState = iota
	ViewAsk
)

// Engine runs one question through the pipeline.
type Engine interface {
	Run(ctx context.Context, q agent.Question) (*agent.State, error)
}

// ModelLister reports which Ollama models are installed.
type ModelLister interface {
	Model() string
	ListModels(ctx context.Context) ([]llm.ModelInfo, error)
}

// Config holds what the CLI layer has already built.
type Config struct {
	Engine Engine
	Chat   ModelLister // nil when no component uses Ollama

	DocsDir   string
	Chunks    int
	DBPath    string
	Tables    int
	Router    string
	Strategy  string
	Retrieval string
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	config Config
	width  int
	height int

	welcome welcomeModel
	ask     askModel
}

// New creates a new TUI model with the given config.
func New(cfg Config) Model {
	return Model{
		state:   ViewWelcome,
		config:  cfg,
		welcome: newWelcomeModel(cfg),
	}
}

func (m Model) Init() tea.Cmd {
	return checkModels(m.config.Chat)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == ViewAsk {
			var c tea.Cmd
			m.ask, c = m.ask.Update(msg)
			return m, c
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.state != ViewAsk {
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd

	switch m.state {
	case ViewWelcome:
		m.welcome, cmd = m.welcome.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.welcome.ready {
			m.ask = newAskModel(m.config.Engine)
			m.ask.initViewport(m.width, m.height)
			m.state = ViewAsk
			return m, nil
		}

	case ViewAsk:
		m.ask, cmd = m.ask.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	switch m.state {
	case ViewWelcome:
		return m.welcome.View(m.width, m.height)
	case ViewAsk:
		return m.ask.View(m.width, m.height)
	}
	return ""
}

// Run starts the TUI program.
func Run(cfg Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
