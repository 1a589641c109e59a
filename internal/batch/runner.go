package batch

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"retailcopilot/internal/agent"
)

// Answerer is the engine surface the runner needs.
type Answerer interface {
	Answer(ctx context.Context, q agent.Question) (agent.Answer, error)
}

// ProgressFunc is called after each answered question.
type ProgressFunc func(done, total int)

// Stats summarises one run.
type Stats struct {
	RunID   string
	Total   int
	Failed  int // answers with confidence at or below 0.1
	Partial int // answers with confidence below 0.9
	Elapsed time.Duration
}

// Runner fans questions out to a fixed number of workers.
type Runner struct {
	engine     Answerer
	workers    int
	log        *zap.Logger
	onProgress ProgressFunc
}

func NewRunner(engine Answerer, workers int, log *zap.Logger) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{engine: engine, workers: workers, log: log}
}

// OnProgress sets a progress callback. It is called from worker goroutines.
func (r *Runner) OnProgress(fn ProgressFunc) { r.onProgress = fn }

type job struct {
	pos int
	q   agent.Question
}

// Run answers every question and returns the answers in input order. If ctx
// is cancelled the partial results are discarded and ctx's error returned.
func (r *Runner) Run(ctx context.Context, questions []agent.Question) ([]agent.Answer, *Stats, error) {
	stats := &Stats{RunID: uuid.NewString(), Total: len(questions)}
	log := r.log.With(zap.String("run_id", stats.RunID))
	start := time.Now()

	answers := make([]agent.Answer, len(questions))
	jobs := make(chan job)

	var (
		wg       sync.WaitGroup
		done     atomic.Int64
		errOnce  sync.Once
		firstErr error
	)
	for range r.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				a, err := r.engine.Answer(ctx, j.q)
				if err != nil {
					errOnce.Do(func() { firstErr = fmt.Errorf("question %s: %w", j.q.ID, err) })
					continue
				}
				answers[j.pos] = a
				log.Debug("answered", zap.String("id", a.ID), zap.Float64("confidence", a.Confidence))
				n := done.Add(1)
				if r.onProgress != nil {
					r.onProgress(int(n), len(questions))
				}
			}
		}()
	}

feed:
	for i, q := range questions {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- job{pos: i, q: q}:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}

	for _, a := range answers {
		switch {
		case a.Confidence <= 0.1:
			stats.Failed++
		case a.Confidence < 0.9:
			stats.Partial++
		}
	}
	stats.Elapsed = time.Since(start)
	log.Info("batch finished",
		zap.Int("total", stats.Total),
		zap.Int("failed", stats.Failed),
		zap.Duration("elapsed", stats.Elapsed),
	)
	return answers, stats, nil
}

// PrintSummary writes a coloured per-answer table and totals to w.
func PrintSummary(w io.Writer, answers []agent.Answer, stats *Stats) {
	good := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed)
	head := color.New(color.FgCyan, color.Bold)

	head.Fprintf(w, "run %s\n", stats.RunID)
	for _, a := range answers {
		c := good
		switch {
		case a.Confidence <= 0.1:
			c = bad
		case a.Confidence < 0.9:
			c = warn
		}
		c.Fprintf(w, "  %-40s %.2f\n", a.ID, a.Confidence)
	}
	fmt.Fprintf(w, "%d answered, %d partial, %d failed in %s\n",
		stats.Total, stats.Partial, stats.Failed, stats.Elapsed.Round(time.Millisecond))
}
