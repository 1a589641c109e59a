package cmd

import (
	"github.com/spf13/cobra"

	"retailcopilot/internal/tui"
)

func runTUI(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// Keep console logging quiet while the alternate screen is up.
	if cfg.Log.File == "" {
		cfg.Log.Level = "error"
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return tui.Run(tui.Config{
		Engine:    a.engine,
		Chat:      a.modelLister(),
		DocsDir:   cfg.Docs.Dir,
		Chunks:    a.lexical.Len(),
		DBPath:    cfg.Database.Path,
		Tables:    len(a.schema),
		Router:    cfg.Router.Mode,
		Strategy:  cfg.SQL.Strategy,
		Retrieval: cfg.Retrieval.Mode,
	})
}
