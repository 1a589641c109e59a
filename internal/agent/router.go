package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrNoDecider is returned by NoDecider.
var ErrNoDecider = errors.New("no decision-maker configured")

// DecisionRequest is what a Decider sees when choosing a route.
type DecisionRequest struct {
	ID         string
	Question   string
	FormatHint FormatHint
}

// Decider picks a route. Its output is only trusted when it is exactly one of
// "rag", "sql" or "hybrid" after trimming and lower-casing.
type Decider interface {
	Decide(ctx context.Context, req DecisionRequest) (string, error)
}

// NoDecider is the absent decision-maker. Routing goes straight to
// HeuristicRoute.
type NoDecider struct{}

func (NoDecider) Decide(context.Context, DecisionRequest) (string, error) {
	return "", ErrNoDecider
}

// HeuristicRoute maps a question to a route with fixed text rules. It is total.
func HeuristicRoute(question, id string) Route {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "according to the product policy"), strings.Contains(q, "policy"):
		return RouteRAG
	case strings.Contains(q, "top 3 products"), strings.Contains(id, "sql_"):
		return RouteSQL
	default:
		return RouteHybrid
	}
}

func (e *Engine) route(ctx context.Context, st *State) {
	if _, absent := e.decider.(NoDecider); absent {
		st.Route = HeuristicRoute(st.Question, st.ID)
		st.tracef("router (heuristic): route=%s", st.Route)
		return
	}

	route, err := e.decide(ctx, DecisionRequest{ID: st.ID, Question: st.Question, FormatHint: st.FormatHint})
	if err != nil {
		e.log.Warn("route decision failed, using heuristic", zap.String("id", st.ID), zap.Error(err))
		st.tracef("router (llm error): %v", err)
		st.Route = HeuristicRoute(st.Question, st.ID)
		st.tracef("router (heuristic): route=%s", st.Route)
		return
	}
	st.Route = route
	st.tracef("router (llm): route=%s", st.Route)
}

// decide runs the decider under the decision timeout. A decider that ignores
// its context still cannot hold the pipeline past the deadline.
func (e *Engine) decide(ctx context.Context, req DecisionRequest) (Route, error) {
	ctx, cancel := context.WithTimeout(ctx, e.decisionTimeout)
	defer cancel()

	type outcome struct {
		out string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("decider panic: %v", r)}
			}
		}()
		out, err := e.decider.Decide(ctx, req)
		done <- outcome{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("decision timed out: %w", ctx.Err())
	case o := <-done:
		if o.err != nil {
			return "", o.err
		}
		raw := strings.ToLower(strings.TrimSpace(o.out))
		route, ok := ParseRoute(raw)
		if !ok {
			return "", fmt.Errorf("invalid route %q", o.out)
		}
		return route, nil
	}
}
