package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"retailcopilot/internal/batch"
)

var (
	flagBatch   string
	flagOut     string
	flagWorkers int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Answer every question in a JSONL file",
	Example: `  retailcopilot run --batch questions.jsonl --out outputs.jsonl
  retailcopilot run --batch questions.jsonl --out outputs.jsonl --router llm --workers 2`,
	RunE: runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	if flagBatch == "" || flagOut == "" {
		return errors.New("--batch and --out are required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		if flagWorkers <= 0 {
			return fmt.Errorf("--workers must be positive, got %d", flagWorkers)
		}
		cfg.Batch.Workers = flagWorkers
	}

	questions, err := batch.LoadFile(flagBatch)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	runner := batch.NewRunner(a.engine, cfg.Batch.Workers, a.log)
	runner.OnProgress(func(done, total int) {
		a.log.Debug("progress", zap.Int("done", done), zap.Int("total", total))
	})

	answers, stats, err := runner.Run(cmd.Context(), questions)
	if err != nil {
		return fmt.Errorf("run batch: %w", err)
	}
	if err := batch.WriteFile(flagOut, answers); err != nil {
		return err
	}

	batch.PrintSummary(cmd.OutOrStdout(), answers, stats)
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", flagOut)
	return nil
}

func init() {
	runCmd.Flags().StringVar(&flagBatch, "batch", "", "questions JSONL file")
	runCmd.Flags().StringVar(&flagOut, "out", "", "answers JSONL file")
	runCmd.Flags().IntVar(&flagWorkers, "workers", 0, "concurrent questions (default from config)")
	rootCmd.AddCommand(runCmd)
}
