package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = "retailcopilot.toml"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds the full process configuration.
type Config struct {
	Docs      DocsConfig      `toml:"docs"`
	Database  DatabaseConfig  `toml:"database"`
	Ollama    OllamaConfig    `toml:"ollama"`
	Router    RouterConfig    `toml:"router"`
	SQL       SQLConfig       `toml:"sql"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Batch     BatchConfig     `toml:"batch"`
	Log       LogConfig       `toml:"log"`
}

type DocsConfig struct {
	Dir        string   `toml:"dir"`
	ChunkSize  int      `toml:"chunk_size"`
	Extensions []string `toml:"extensions"`
	TopK       int      `toml:"top_k"`
}

type DatabaseConfig struct {
	Path     string `toml:"path"`
	RowLimit int    `toml:"row_limit"`
}

type OllamaConfig struct {
	URL               string  `toml:"url"`
	ChatModel         string  `toml:"chat_model"`
	EmbedModel        string  `toml:"embed_model"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// RouterConfig selects the route decision-maker. Mode is "heuristic" or "llm".
type RouterConfig struct {
	Mode            string `toml:"mode"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
}

// SQLConfig selects the query synthesis strategy: "lookup" or "generative".
type SQLConfig struct {
	Strategy       string `toml:"strategy"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// RetrievalConfig selects "tfidf" or "hybrid" (tfidf merged with vector search).
type RetrievalConfig struct {
	Mode string `toml:"mode"`
}

type PipelineConfig struct {
	MaxRepairs int `toml:"max_repairs"`
}

type BatchConfig struct {
	Workers int `toml:"workers"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
	JSON  bool   `toml:"json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Docs: DocsConfig{
			Dir:        "docs",
			ChunkSize:  300,
			Extensions: []string{".md"},
			TopK:       5,
		},
		Database: DatabaseConfig{
			Path:     "data/northwind.sqlite",
			RowLimit: 1000,
		},
		Ollama: OllamaConfig{
			URL:               "http://localhost:11434",
			ChatModel:         "llama3.2:1b",
			EmbedModel:        "nomic-embed-text",
			TimeoutSeconds:    120,
			RequestsPerSecond: 4,
		},
		Router: RouterConfig{
			Mode:            "heuristic",
			TimeoutSeconds:  10,
			CacheTTLSeconds: 3600,
		},
		SQL: SQLConfig{
			Strategy:       "lookup",
			TimeoutSeconds: 30,
		},
		Retrieval: RetrievalConfig{Mode: "tfidf"},
		Pipeline:  PipelineConfig{MaxRepairs: 1},
		Batch:     BatchConfig{Workers: runtime.NumCPU()},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads a TOML file over the defaults. An empty path falls back to
// DefaultFile in the working directory when it exists, else pure defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	var problems []string

	if c.Docs.Dir == "" {
		problems = append(problems, "docs.dir is empty")
	}
	if c.Docs.ChunkSize <= 0 {
		problems = append(problems, "docs.chunk_size must be positive")
	}
	if len(c.Docs.Extensions) == 0 {
		problems = append(problems, "docs.extensions is empty")
	}
	if c.Docs.TopK <= 0 {
		problems = append(problems, "docs.top_k must be positive")
	}
	if c.Database.Path == "" {
		problems = append(problems, "database.path is empty")
	}
	if c.Database.RowLimit <= 0 {
		problems = append(problems, "database.row_limit must be positive")
	}
	switch c.Router.Mode {
	case "heuristic", "llm":
	default:
		problems = append(problems, fmt.Sprintf("router.mode %q (want heuristic or llm)", c.Router.Mode))
	}
	switch c.SQL.Strategy {
	case "lookup", "generative":
	default:
		problems = append(problems, fmt.Sprintf("sql.strategy %q (want lookup or generative)", c.SQL.Strategy))
	}
	switch c.Retrieval.Mode {
	case "tfidf", "hybrid":
	default:
		problems = append(problems, fmt.Sprintf("retrieval.mode %q (want tfidf or hybrid)", c.Retrieval.Mode))
	}
	if c.Pipeline.MaxRepairs < 0 {
		problems = append(problems, "pipeline.max_repairs must not be negative")
	}
	if c.Batch.Workers <= 0 {
		problems = append(problems, "batch.workers must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// UsesOllama reports whether any configured component talks to Ollama.
func (c Config) UsesOllama() bool {
	return c.Router.Mode == "llm" || c.SQL.Strategy == "generative" || c.Retrieval.Mode == "hybrid"
}

func (o OllamaConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

func (r RouterConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

func (r RouterConfig) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

func (s SQLConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}
