package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"retailcopilot/internal/rag"
	"retailcopilot/internal/sqlexec"
)

const (
	DefaultDecisionTimeout = 10 * time.Second
	DefaultSQLTimeout      = 30 * time.Second
)

// QueryExecutor runs query text against the relational store.
type QueryExecutor interface {
	Execute(ctx context.Context, query string, rowLimit int) sqlexec.Result
}

// Config wires an Engine. Retriever and Executor are required; every other
// field has a default.
type Config struct {
	Retriever rag.Retriever
	Executor  QueryExecutor
	Schema    sqlexec.Schema

	Decider   Decider        // default NoDecider
	SQL       SQLSynthesizer // default LookupSynthesizer
	Planner   Planner        // default HeuristicPlanner
	Resolvers *Registry      // default DefaultRegistry

	TopK            int // default rag.DefaultTopK
	RowLimit        int // default sqlexec.DefaultRowLimit
	MaxRepairs      int
	DecisionTimeout time.Duration
	SQLTimeout      time.Duration

	Logger *zap.Logger
}

// Engine runs the question pipeline. Its collaborators are read-only after
// New, so one Engine serves any number of goroutines.
type Engine struct {
	retriever rag.Retriever
	executor  QueryExecutor
	schema    sqlexec.Schema
	decider   Decider
	sql       SQLSynthesizer
	planner   Planner
	resolvers *Registry

	topK            int
	rowLimit        int
	maxRepairs      int
	decisionTimeout time.Duration
	sqlTimeout      time.Duration

	log *zap.Logger
}

func New(cfg Config) (*Engine, error) {
	if cfg.Retriever == nil {
		return nil, errors.New("engine: retriever is required")
	}
	if cfg.Executor == nil {
		return nil, errors.New("engine: executor is required")
	}
	if cfg.MaxRepairs < 0 {
		return nil, fmt.Errorf("engine: max repairs must not be negative, got %d", cfg.MaxRepairs)
	}

	e := &Engine{
		retriever:       cfg.Retriever,
		executor:        cfg.Executor,
		schema:          cfg.Schema,
		decider:         cfg.Decider,
		sql:             cfg.SQL,
		planner:         cfg.Planner,
		resolvers:       cfg.Resolvers,
		topK:            cfg.TopK,
		rowLimit:        cfg.RowLimit,
		maxRepairs:      cfg.MaxRepairs,
		decisionTimeout: cfg.DecisionTimeout,
		sqlTimeout:      cfg.SQLTimeout,
		log:             cfg.Logger,
	}
	if e.decider == nil {
		e.decider = NoDecider{}
	}
	if e.sql == nil {
		e.sql = LookupSynthesizer{}
	}
	if e.planner == nil {
		e.planner = HeuristicPlanner{}
	}
	if e.resolvers == nil {
		e.resolvers = DefaultRegistry()
	}
	if e.topK <= 0 {
		e.topK = rag.DefaultTopK
	}
	if e.rowLimit <= 0 {
		e.rowLimit = sqlexec.DefaultRowLimit
	}
	if e.decisionTimeout <= 0 {
		e.decisionTimeout = DefaultDecisionTimeout
	}
	if e.sqlTimeout <= 0 {
		e.sqlTimeout = DefaultSQLTimeout
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e, nil
}

// Schema returns the schema handed to query synthesis.
func (e *Engine) Schema() sqlexec.Schema { return e.schema }

// Retriever returns the chunk retriever the engine uses.
func (e *Engine) Retriever() rag.Retriever { return e.retriever }

type stage struct {
	name string
	run  func(ctx context.Context, st *State)
}

// Run takes q through every stage and returns the final state. The only error
// is context cancellation, in which case the state is discarded.
func (e *Engine) Run(ctx context.Context, q Question) (*State, error) {
	st := NewState(q)
	log := e.log.With(zap.String("id", q.ID))

	stages := []stage{
		{"router", e.route},
		{"retriever", e.retrieve},
		{"planner", func(_ context.Context, st *State) { e.plan(st) }},
		{"nl_to_sql", e.synthesizeSQL},
		{"executor", e.execute},
	}
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.guard(ctx, st, s)
	}

	synth := stage{"synthesizer", func(_ context.Context, st *State) { e.synthesize(st) }}
	fix := stage{"repair", func(_ context.Context, st *State) { e.repair(st) }}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.guard(ctx, st, synth)
		if st.FormatHint.Conforms(st.FinalAnswer) {
			break
		}
		if st.Attempt >= e.maxRepairs {
			apply(st, Fallback(st.FormatHint, st.RetrievedDocs))
			st.tracef("repair: exhausted, using typed fallback")
			break
		}
		e.guard(ctx, st, fix)
	}

	log.Debug("question answered",
		zap.String("route", string(st.Route)),
		zap.Float64("confidence", st.Confidence),
		zap.Int("attempts", st.Attempt),
		zap.Strings("trace", st.Trace),
	)
	return st, nil
}

// Answer runs q and returns its output record.
func (e *Engine) Answer(ctx context.Context, q Question) (Answer, error) {
	st, err := e.Run(ctx, q)
	if err != nil {
		return Answer{}, err
	}
	return st.Answer(), nil
}

// guard runs one stage and turns a panic into a trace entry and state error.
func (e *Engine) guard(ctx context.Context, st *State, s stage) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("%s panic: %v", s.name, r)
			e.log.Error("stage panicked", zap.String("id", st.ID), zap.String("stage", s.name), zap.Any("panic", r))
			st.tracef("%s", msg)
			st.Error = msg
		}
	}()
	s.run(ctx, st)
}

func (e *Engine) retrieve(ctx context.Context, st *State) {
	docs, err := e.retriever.Retrieve(ctx, st.Question, e.topK)
	if err != nil {
		e.log.Warn("retrieval failed", zap.String("id", st.ID), zap.Error(err))
		st.RetrievedDocs = []rag.Chunk{}
		st.tracef("retriever error: %v", err)
		return
	}
	st.RetrievedDocs = docs
	st.tracef("retriever: retrieved %d chunks", len(docs))
}
