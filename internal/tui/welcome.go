package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type modelStatus int

const (
	modelUnused modelStatus = iota
	modelReady
	modelMissing
	modelUnreachable
)

type welcomeModel struct {
	cfg    Config
	status modelStatus
	size   int64
	detail string
	ready  bool // true once the model check has completed
}

// checkModelsMsg is sent after asking Ollama for its installed models.
type checkModelsMsg struct {
	status modelStatus
	size   int64
	detail string
}

func newWelcomeModel(cfg Config) welcomeModel {
	return welcomeModel{cfg: cfg}
}

func checkModels(chat ModelLister) tea.Cmd {
	return func() tea.Msg {
		if chat == nil {
			return checkModelsMsg{status: modelUnused}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		models, err := chat.ListModels(ctx)
		if err != nil {
			return checkModelsMsg{status: modelUnreachable, detail: err.Error()}
		}
		for _, m := range models {
			if m.Name == chat.Model() {
				return checkModelsMsg{status: modelReady, size: m.Size, detail: m.Name}
			}
		}
		return checkModelsMsg{status: modelMissing, detail: fmt.Sprintf("run: ollama pull %s", chat.Model())}
	}
}

func (m welcomeModel) Update(msg tea.Msg) (welcomeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case checkModelsMsg:
		m.status = msg.status
		m.size = msg.size
		m.detail = msg.detail
		m.ready = true
	}
	return m, nil
}

func (m welcomeModel) View(width, height int) string {
	s := "\n"
	s += brandStyle.Render("  ◆ Retail Copilot") + "\n"
	s += taglineStyle.Render("  Answers retail analytics questions from documents and the sales database") + "\n\n"

	s += readyStyle.Render(fmt.Sprintf("  ✓ %d document chunks", m.cfg.Chunks)) + mutedStyle.Render("  "+m.cfg.DocsDir) + "\n"
	s += readyStyle.Render(fmt.Sprintf("  ✓ %d tables", m.cfg.Tables)) + mutedStyle.Render("  "+m.cfg.DBPath) + "\n"
	s += mutedStyle.Render(fmt.Sprintf("    router=%s  sql=%s  retrieval=%s", m.cfg.Router, m.cfg.Strategy, m.cfg.Retrieval)) + "\n"

	if !m.ready {
		s += mutedStyle.Render("  Checking Ollama...") + "\n"
		return s
	}

	switch m.status {
	case modelReady:
		s += readyStyle.Render("  ✓ Model "+m.detail) + mutedStyle.Render("  "+formatSize(m.size)) + "\n"
	case modelMissing:
		s += cautionStyle.Render("  ✗ Chat model not installed") + "\n"
		s += mutedStyle.Render("    "+m.detail) + "\n"
	case modelUnreachable:
		s += cautionStyle.Render("  ⚠ Ollama unreachable, model-backed stages will fall back") + "\n"
		s += mutedStyle.Render("    "+m.detail) + "\n"
	}

	s += "\n"
	s += mutedStyle.Render("  Press Enter to continue") + "\n"
	return s
}

// formatSize returns a human-readable size string.
func formatSize(bytes int64) string {
	const gb = 1024 * 1024 * 1024
	const mb = 1024 * 1024
	if bytes >= gb {
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	}
	return fmt.Sprintf("%.0f MB", float64(bytes)/float64(mb))
}
