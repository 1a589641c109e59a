package cmd

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"retailcopilot/internal/agent"
	"retailcopilot/internal/config"
	"retailcopilot/internal/embedder"
	"retailcopilot/internal/llm"
	"retailcopilot/internal/logger"
	"retailcopilot/internal/rag"
	"retailcopilot/internal/sqlexec"
	"retailcopilot/internal/store"
	"retailcopilot/internal/tui"
)

// app is everything a command needs, built once from the config.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	engine  *agent.Engine
	lexical *rag.TFIDF
	exec    *sqlexec.Executor
	schema  sqlexec.Schema
	chat    *llm.OllamaChat // nil unless a component uses Ollama
	vectors *store.SQLiteStore
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

func buildApp(ctx context.Context, cfg config.Config, log *zap.Logger) (a *app, err error) {
	a = &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	chunks, err := rag.Load(cfg.Docs.Dir, cfg.Docs.ChunkSize, cfg.Docs.Extensions)
	if err != nil {
		return a, fmt.Errorf("load documents: %w", err)
	}
	a.lexical, err = rag.NewTFIDF(chunks)
	if err != nil {
		return a, fmt.Errorf("build index: %w", err)
	}
	log.Info("documents loaded", zap.String("dir", cfg.Docs.Dir), zap.Int("chunks", len(chunks)))

	a.exec, err = sqlexec.OpenReadOnly(cfg.Database.Path)
	if err != nil {
		return a, fmt.Errorf("open database: %w", err)
	}
	a.schema, err = a.exec.Schema(ctx)
	if err != nil {
		return a, fmt.Errorf("read schema: %w", err)
	}
	if len(a.schema) == 0 {
		return a, errors.New("database has no tables")
	}
	log.Info("database opened", zap.String("path", a.exec.Path()), zap.Int("tables", len(a.schema)))

	if cfg.UsesOllama() {
		a.chat = llm.NewOllamaChat(llm.Config{
			BaseURL:           cfg.Ollama.URL,
			Model:             cfg.Ollama.ChatModel,
			Timeout:           cfg.Ollama.Timeout(),
			RequestsPerSecond: cfg.Ollama.RequestsPerSecond,
		})
	}

	var retriever rag.Retriever = a.lexical
	if cfg.Retrieval.Mode == "hybrid" {
		h, herr := a.hybrid(ctx, chunks)
		if herr != nil {
			log.Warn("hybrid retrieval unavailable, using tf-idf only", zap.Error(herr))
		} else {
			retriever = h
		}
	}

	var decider agent.Decider = agent.NoDecider{}
	if cfg.Router.Mode == "llm" {
		decider = agent.NewCachedDecider(agent.NewLLMDecider(a.chat), cfg.Router.CacheTTL())
	}

	var synth agent.SQLSynthesizer = agent.LookupSynthesizer{}
	if cfg.SQL.Strategy == "generative" {
		synth = agent.NewGenerativeSynthesizer(a.chat)
	}

	a.engine, err = agent.New(agent.Config{
		Retriever:       retriever,
		Executor:        a.exec,
		Schema:          a.schema,
		Decider:         decider,
		SQL:             synth,
		TopK:            cfg.Docs.TopK,
		RowLimit:        cfg.Database.RowLimit,
		MaxRepairs:      cfg.Pipeline.MaxRepairs,
		DecisionTimeout: cfg.Router.Timeout(),
		SQLTimeout:      cfg.SQL.Timeout(),
		Logger:          log,
	})
	if err != nil {
		return a, fmt.Errorf("build engine: %w", err)
	}
	return a, nil
}

// hybrid embeds every chunk into an in-memory vector store.
func (a *app) hybrid(ctx context.Context, chunks []rag.Chunk) (*rag.Hybrid, error) {
	emb := embedder.NewOllamaEmbedder(embedder.Config{
		BaseURL:           a.cfg.Ollama.URL,
		Model:             a.cfg.Ollama.EmbedModel,
		Timeout:           a.cfg.Ollama.Timeout(),
		RequestsPerSecond: a.cfg.Ollama.RequestsPerSecond,
	})

	var err error
	a.vectors, err = store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	if err := rag.IndexVectors(ctx, a.vectors, emb, chunks); err != nil {
		return nil, fmt.Errorf("index vectors: %w", err)
	}
	n, err := a.vectors.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count vectors: %w", err)
	}
	a.log.Info("vectors indexed", zap.String("model", emb.Model()), zap.Int("chunks", n))
	return rag.NewHybrid(a.lexical, a.vectors, emb, a.log), nil
}

// modelLister returns the chat client for the welcome screen, nil when unused.
func (a *app) modelLister() tui.ModelLister {
	if a.chat == nil {
		return nil
	}
	return a.chat
}

func (a *app) Close() {
	if a.vectors != nil {
		a.vectors.Close()
	}
	if a.exec != nil {
		a.exec.Close()
	}
	if a.log != nil {
		a.log.Sync()
	}
}
