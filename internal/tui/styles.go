package tui

import "github.com/charmbracelet/lipgloss"

var (
	brandStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	taglineStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("245"))

	readyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	cautionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("203"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	questionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("75"))

	statusLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Background(lipgloss.Color("237")).
			Padding(0, 1)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))
)

// confidenceStyle colours an answer badge by how far the answer can be
// trusted: typed placeholders, partial answers and grounded answers.
func confidenceStyle(c float64) lipgloss.Style {
	switch {
	case c <= 0.1:
		return failStyle
	case c < 0.9:
		return cautionStyle
	}
	return readyStyle
}
