package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"retailcopilot/internal/agent"
)

// FormatAnswer renders a finished pipeline state as markdown.
func FormatAnswer(st *agent.State, trace bool) string {
	var sb strings.Builder

	final, err := json.Marshal(st.FinalAnswer)
	if err != nil {
		final = []byte(fmt.Sprintf("%v", st.FinalAnswer))
	}
	fmt.Fprintf(&sb, "**%s** `%s`\n\n", st.ID, final)
	fmt.Fprintf(&sb, "- route: `%s`\n", st.Route)
	fmt.Fprintf(&sb, "- confidence: %.2f\n", st.Confidence)
	if st.Attempt > 0 {
		fmt.Fprintf(&sb, "- repairs: %d\n", st.Attempt)
	}
	if st.Explanation != "" {
		fmt.Fprintf(&sb, "\n%s\n", st.Explanation)
	}

	if len(st.Citations) > 0 {
		sb.WriteString("\n**Citations**\n\n")
		for _, c := range st.Citations {
			fmt.Fprintf(&sb, "- `%s`\n", c)
		}
	}

	if st.SQL != "" && st.SQL != agent.SentinelSQL {
		fmt.Fprintf(&sb, "\n```sql\n%s\n```\n", strings.TrimSpace(st.SQL))
	}

	if trace && len(st.Trace) > 0 {
		sb.WriteString("\n**Trace**\n\n")
		for _, line := range st.Trace {
			fmt.Fprintf(&sb, "1. %s\n", line)
		}
	}
	return sb.String()
}

// NewRenderer returns a glamour renderer wrapped to width, or nil when the
// terminal style cannot be loaded.
func NewRenderer(width int) *glamour.TermRenderer {
	if width < 20 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		return nil
	}
	return r
}

// Render renders markdown with r, falling back to the plain text.
func Render(r *glamour.TermRenderer, md string) string {
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
