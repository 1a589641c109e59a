package agent

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"retailcopilot/internal/rag"
	"retailcopilot/internal/sqlexec"
	"retailcopilot/internal/sqlexec/sqlexectest"
)

func retailDocs() []rag.Chunk {
	return []rag.Chunk{
		{ID: "product_policy::chunk0", Source: "product_policy.md", Text: "# Returns & Policy\n- Perishables (Produce, Dairy): 3-7 days.\n- Beverages unopened: 30 days; opened: no returns.\n- Non-perishables: 30 days."},
		{ID: "marketing_calendar::chunk0", Source: "marketing_calendar.md", Text: "# Marketing Calendar (1997)\n## Summer Beverages 1997\n- Dates: 1997-06-01 to 1997-06-30\n- Notes: Focus on Beverages and Condiments."},
		{ID: "marketing_calendar::chunk1", Source: "marketing_calendar.md", Text: "## Winter Classics 1997\n- Dates: 1997-12-01 to 1997-12-31\n- Notes: Push Dairy Products and Confections for holiday gifting."},
		{ID: "kpi_definitions::chunk0", Source: "kpi_definitions.md", Text: "# KPI Definitions\n## Average Order Value (AOV)\n- AOV = SUM(UnitPrice * Quantity * (1 - Discount)) / COUNT(DISTINCT OrderID)\n## Gross Margin\n- GM = SUM((UnitPrice - CostOfGoods) * Quantity * (1 - Discount))"},
		{ID: "catalog::chunk0", Source: "catalog.md", Text: "# Catalog Snapshot\n- Categories include Beverages, Condiments, Confections, Dairy Products, Grains/Cereals, Meat/Poultry, Produce, Seafood."},
	}
}

// countingExecutor records how often the database is reached.
type countingExecutor struct {
	next  QueryExecutor
	calls atomic.Int32
}

func (c *countingExecutor) Execute(ctx context.Context, query string, rowLimit int) sqlexec.Result {
	c.calls.Add(1)
	return c.next.Execute(ctx, query, rowLimit)
}

type testEnv struct {
	engine *Engine
	db     *sqlexec.Executor
	exec   *countingExecutor
}

// newTestEnv builds an engine over the fixture database and retailDocs. mod
// may adjust the config before New.
func newTestEnv(t *testing.T, mod func(*Config)) testEnv {
	t.Helper()

	db, err := sqlexec.Open(sqlexectest.Northwind(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := db.Schema(context.Background())
	require.NoError(t, err)

	idx, err := rag.NewTFIDF(retailDocs())
	require.NoError(t, err)

	exec := &countingExecutor{next: db}
	cfg := Config{
		Retriever:  idx,
		Executor:   exec,
		Schema:     schema,
		MaxRepairs: 1,
	}
	if mod != nil {
		mod(&cfg)
	}
	engine, err := New(cfg)
	require.NoError(t, err)
	return testEnv{engine: engine, db: db, exec: exec}
}

func (env testEnv) run(t *testing.T, q Question) *State {
	t.Helper()
	st, err := env.engine.Run(context.Background(), q)
	require.NoError(t, err)
	return st
}
