package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"retailcopilot/internal/config"
)

var (
	flagConfig     string
	flagDocs       string
	flagDB         string
	flagOllama     string
	flagModel      string
	flagEmbedModel string
	flagRouter     string
	flagSQL        string
	flagRetrieval  string
	flagVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "retailcopilot",
	Short: "Answer retail analytics questions from documents and a sales database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
	SilenceUsage: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&flagConfig, "config", "", "config file (default ./"+config.DefaultFile+" when present)")
	f.StringVar(&flagDocs, "docs", "", "documents directory")
	f.StringVar(&flagDB, "db", "", "SQLite sales database")
	f.StringVar(&flagOllama, "ollama", "", "ollama base URL")
	f.StringVar(&flagModel, "model", "", "chat model for routing and query generation")
	f.StringVar(&flagEmbedModel, "embed-model", "", "embedding model for hybrid retrieval")
	f.StringVar(&flagRouter, "router", "", "route decision-maker: heuristic or llm")
	f.StringVar(&flagSQL, "sql-strategy", "", "query synthesis: lookup or generative")
	f.StringVar(&flagRetrieval, "retrieval", "", "retrieval: tfidf or hybrid")
	f.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads the config file and applies every flag the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	override := func(name string, dst *string, val string) {
		if flags.Changed(name) {
			*dst = val
		}
	}
	override("docs", &cfg.Docs.Dir, flagDocs)
	override("db", &cfg.Database.Path, flagDB)
	override("ollama", &cfg.Ollama.URL, flagOllama)
	override("model", &cfg.Ollama.ChatModel, flagModel)
	override("embed-model", &cfg.Ollama.EmbedModel, flagEmbedModel)
	override("router", &cfg.Router.Mode, flagRouter)
	override("sql-strategy", &cfg.SQL.Strategy, flagSQL)
	override("retrieval", &cfg.Retrieval.Mode, flagRetrieval)
	if flagVerbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
