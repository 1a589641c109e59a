package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"retailcopilot/internal/agent"
	"retailcopilot/internal/tui"
)

var (
	flagID    string
	flagHint  string
	flagTrace bool
	flagPlain bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask questions interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		s := &session{
			engine: a.engine,
			id:     flagID,
			hint:   agent.FormatHint(flagHint),
			trace:  flagTrace,
		}
		if !flagPlain {
			s.renderer = tui.NewRenderer(100)
		}
		return s.loop(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// session is one REPL conversation. Questions are independent; only the id,
// hint and trace settings carry over.
type session struct {
	engine   tui.Engine
	renderer *glamour.TermRenderer
	id       string
	hint     agent.FormatHint
	trace    bool
	asked    int
}

func (s *session) loop(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "retailcopilot ask (type /help for commands, /exit to quit)")
	fmt.Fprintln(out)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := s.command(out, line); quit {
				fmt.Fprintln(out, "Goodbye.")
				return nil
			}
			continue
		}

		q := agent.Question{ID: s.id, Question: line, FormatHint: s.hint}
		if q.ID == "" {
			q.ID = fmt.Sprintf("ask-%d", s.asked)
		}
		s.asked++

		st, err := s.engine.Run(ctx, q)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, tui.Render(s.renderer, tui.FormatAnswer(st, s.trace)))
		fmt.Fprintln(out)
	}

	return scanner.Err()
}

// command applies a slash command and reports whether the session should end.
func (s *session) command(out io.Writer, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/exit", "/quit":
		return true
	case "/help":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  /id <id>      question id for the next questions")
		fmt.Fprintln(out, "  /hint <hint>  format hint (int, float, list[...], {...})")
		fmt.Fprintln(out, "  /trace        toggle the stage trace")
		fmt.Fprintln(out, "  /exit         quit")
		fmt.Fprintln(out, "  /help         show this help")
	case "/id":
		s.id = arg
		fmt.Fprintf(out, "id: %s\n", arg)
	case "/hint":
		if arg == "" {
			arg = "other"
		}
		s.hint = agent.FormatHint(arg)
		fmt.Fprintf(out, "format hint: %s (%s)\n", arg, s.hint.Kind())
	case "/trace":
		s.trace = !s.trace
		if s.trace {
			fmt.Fprintln(out, "trace on")
		} else {
			fmt.Fprintln(out, "trace off")
		}
	default:
		fmt.Fprintf(out, "unknown command %s (try /help)\n", name)
	}
	return false
}

func init() {
	askCmd.Flags().StringVar(&flagID, "id", "", "question id, selects the answer resolver")
	askCmd.Flags().StringVar(&flagHint, "hint", "other", "format hint for the answers")
	askCmd.Flags().BoolVar(&flagTrace, "trace", false, "print the stage trace with each answer")
	askCmd.Flags().BoolVar(&flagPlain, "plain", false, "print markdown without terminal rendering")
	rootCmd.AddCommand(askCmd)
}
