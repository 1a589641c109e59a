package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	policyQuestion = Question{
		ID:         IDPolicyBeveragesReturnDays,
		Question:   "According to the product policy, what is the return window (days) for unopened Beverages? Return an integer.",
		FormatHint: "int",
	}
	top3Question = Question{
		ID:         IDTop3ProductsByRevenue,
		Question:   "Top 3 products by total revenue all-time. Revenue uses Order Details: SUM(UnitPrice*Quantity*(1-Discount)).",
		FormatHint: "list[{product:str, revenue:float}]",
	}
	aovQuestion = Question{
		ID:         IDAOVWinter1997,
		Question:   "Using the AOV definition from the KPI docs, what was the Average Order Value during 'Winter Classics 1997'? Return a float rounded to 2 decimals.",
		FormatHint: "float",
	}
	beveragesQuestion = Question{
		ID:         IDRevenueBeveragesSummer,
		Question:   "Total revenue from the 'Beverages' category during 'Summer Beverages 1997' dates. Return a float rounded to 2 decimals.",
		FormatHint: "float",
	}
	categoryQuestion = Question{
		ID:         IDTopCategoryQtySummer,
		Question:   "During 'Summer Beverages 1997' as defined in the marketing calendar, which product category had the highest total quantity sold? Return {category:str, quantity:int}.",
		FormatHint: "{category:str, quantity:int}",
	}
	marginQuestion = Question{
		ID:         IDBestCustomerMargin1997,
		Question:   "Per the KPI definition of gross margin, who was the top customer by gross margin in 1997? Assume CostOfGoods is approximated by 70% of UnitPrice. Return {customer:str, margin:float}.",
		FormatHint: "{customer:str, margin:float}",
	}
)

func TestEngine_PolicyQuestion(t *testing.T) {
	env := newTestEnv(t, nil)

	st := env.run(t, policyQuestion)

	assert.Equal(t, RouteRAG, st.Route)
	assert.Equal(t, 30, st.FinalAnswer)
	assert.Equal(t, 0.95, st.Confidence)
	assert.Contains(t, st.Citations, "product_policy::chunk0")
	assert.Equal(t, SentinelSQL, st.SQL)
	assert.Zero(t, env.exec.calls.Load(), "no query exists for a document question")
	assert.Equal(t, []string{
		"router (heuristic): route=rag",
		"retriever: retrieved 5 chunks",
		"planner: 1 constraints",
		"nl_to_sql: no query for rag_policy_beverages_return_days",
		"executor: ok=false",
		"synthesizer: produced final_answer for rag_policy_beverages_return_days",
	}, st.Trace)
}

func TestEngine_SQLQuestions(t *testing.T) {
	t.Run("Top 3 products by revenue", func(t *testing.T) {
		env := newTestEnv(t, nil)

		st := env.run(t, top3Question)

		assert.Equal(t, RouteSQL, st.Route)
		require.True(t, st.SQLResult.OK, st.SQLResult.Error)
		list, ok := st.FinalAnswer.([]any)
		require.True(t, ok, "got %T", st.FinalAnswer)
		require.Len(t, list, 3)

		want := []struct {
			product string
			revenue float64
		}{
			{"Côte de Blaye", 3162},
			{"Mozzarella di Giovanni", 870},
			{"Chai", 360},
		}
		prev := list[0].(map[string]any)["revenue"].(float64)
		for i, w := range want {
			item := list[i].(map[string]any)
			assert.Equal(t, w.product, item["product"])
			rev, ok := item["revenue"].(float64)
			require.True(t, ok)
			assert.InDelta(t, w.revenue, rev, 0.001)
			assert.LessOrEqual(t, rev, prev)
			prev = rev
		}
		assert.Equal(t, 0.9, st.Confidence)
		assert.Equal(t, []string{"Order Details", "Products"}, st.Citations)
		assert.Empty(t, st.Error)
	})

	t.Run("Average order value with calendar window", func(t *testing.T) {
		env := newTestEnv(t, nil)

		st := env.run(t, aovQuestion)

		assert.Equal(t, RouteHybrid, st.Route)
		assert.InDelta(t, 353.5, st.FinalAnswer.(float64), 0.001)
		assert.Equal(t, 0.9, st.Confidence)
		assert.Subset(t, st.Citations, []string{"Orders", "Order Details", "kpi_definitions::chunk0", "marketing_calendar::chunk1"})
		assert.Contains(t, st.Explanation, "1997-12-01 to 1997-12-31")

		dr, ok := st.Plan.DateRange()
		require.True(t, ok)
		assert.Equal(t, DateRange{Start: "1997-12-01", End: "1997-12-31", Source: "marketing_calendar::chunk1"}, dr)
	})

	t.Run("Beverages revenue", func(t *testing.T) {
		env := newTestEnv(t, nil)

		st := env.run(t, beveragesQuestion)

		assert.InDelta(t, 522.0, st.FinalAnswer.(float64), 0.001)
		assert.Equal(t, 0.9, st.Confidence)
		assert.Contains(t, st.Citations, "Categories")
		assert.Contains(t, st.Citations, "marketing_calendar::chunk0")
	})

	t.Run("Top category by quantity", func(t *testing.T) {
		env := newTestEnv(t, nil)

		st := env.run(t, categoryQuestion)

		assert.Equal(t, map[string]any{"category": "Beverages", "quantity": 30}, st.FinalAnswer)
		assert.Equal(t, 0.9, st.Confidence)
	})

	t.Run("Best customer by margin", func(t *testing.T) {
		env := newTestEnv(t, nil)

		st := env.run(t, marginQuestion)

		obj := st.FinalAnswer.(map[string]any)
		assert.Equal(t, "Bon app'", obj["customer"])
		assert.InDelta(t, 363.6, obj["margin"].(float64), 0.001)
		assert.Equal(t, 0.9, st.Confidence)
		assert.Subset(t, st.Citations, []string{"Orders", "Order Details", "Customers"})
	})
}

func TestEngine_NoDataVersusError(t *testing.T) {
	ctx := context.Background()

	t.Run("Zero rows is medium confidence", func(t *testing.T) {
		env := newTestEnv(t, nil)
		res := env.db.Execute(ctx, "DELETE FROM Orders WHERE date(OrderDate) BETWEEN '1997-06-01' AND '1997-06-30'", 0)
		require.True(t, res.OK, res.Error)

		st := env.run(t, categoryQuestion)

		require.True(t, st.SQLResult.OK)
		assert.Empty(t, st.SQLResult.Rows)
		assert.Equal(t, map[string]any{"category": "", "quantity": 0}, st.FinalAnswer)
		assert.Equal(t, 0.5, st.Confidence)
		assert.Contains(t, st.Explanation, "no data")
	})

	t.Run("All-NULL aggregate is medium confidence", func(t *testing.T) {
		env := newTestEnv(t, nil)
		res := env.db.Execute(ctx, "DELETE FROM Orders WHERE date(OrderDate) BETWEEN '1997-06-01' AND '1997-06-30'", 0)
		require.True(t, res.OK, res.Error)

		st := env.run(t, beveragesQuestion)

		assert.Equal(t, 0.0, st.FinalAnswer)
		assert.Equal(t, 0.5, st.Confidence)
	})

	t.Run("Query error is low confidence", func(t *testing.T) {
		env := newTestEnv(t, nil)
		res := env.db.Execute(ctx, "DROP TABLE Categories", 0)
		require.True(t, res.OK, res.Error)

		st := env.run(t, categoryQuestion)

		assert.False(t, st.SQLResult.OK)
		assert.Contains(t, st.Error, "no such table")
		assert.Equal(t, map[string]any{"category": "", "quantity": 0}, st.FinalAnswer)
		assert.Equal(t, 0.1, st.Confidence)
		assert.Contains(t, st.Explanation, "failed")
		assert.Contains(t, st.Trace, "executor: ok=false")
		assert.Contains(t, st.Trace, "synthesizer: produced final_answer for hybrid_top_category_qty_summer_1997")
	})
}

func TestEngine_UnknownQuestion(t *testing.T) {
	env := newTestEnv(t, nil)

	st := env.run(t, Question{ID: "hybrid_unknown", Question: "How many shippers are there?", FormatHint: "int"})

	assert.Equal(t, SentinelSQL, st.SQL)
	assert.Zero(t, env.exec.calls.Load())
	require.NotNil(t, st.SQLResult)
	assert.Equal(t, "not implemented", st.SQLResult.Error)
	assert.Equal(t, "not implemented", st.Error)
	assert.Equal(t, 0, st.FinalAnswer)
	assert.Equal(t, 0.0, st.Confidence)
	assert.Len(t, st.Citations, 5, "fallback cites every retrieved chunk")
	assert.Contains(t, st.Trace, "nl_to_sql: no query for hybrid_unknown")
}

func TestEngine_Idempotent(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, q := range []Question{policyQuestion, top3Question, aovQuestion, categoryQuestion} {
		first, err := env.engine.Answer(context.Background(), q)
		require.NoError(t, err)
		second, err := env.engine.Answer(context.Background(), q)
		require.NoError(t, err)

		assert.Equal(t, first, second, q.ID)
	}
}

func TestEngine_RowLimit(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.RowLimit = 2
		c.SQL = fixedSQL(`SELECT * FROM "Order Details"`)
	})

	st := env.run(t, Question{ID: "x", Question: "all lines", FormatHint: "list[row]"})

	assert.True(t, st.SQLResult.Truncated)
	assert.Len(t, st.SQLResult.Rows, 2)
	assert.Contains(t, st.Trace, "executor: ok=true truncated=true")
}

func TestEngine_Repair(t *testing.T) {
	t.Run("Conforming answer needs no repair", func(t *testing.T) {
		env := newTestEnv(t, nil)

		st := env.run(t, policyQuestion)

		assert.Zero(t, st.Attempt)
	})

	t.Run("Bounded by max repairs", func(t *testing.T) {
		for _, limit := range []int{0, 1, 3} {
			reg := NewRegistry()
			bad := &stubResolver{answer: "thirty"}
			reg.Register("bad", bad)
			env := newTestEnv(t, func(c *Config) {
				c.Resolvers = reg
				c.MaxRepairs = limit
			})

			st := env.run(t, Question{ID: "bad", Question: "q", FormatHint: "int"})

			assert.Equal(t, limit, st.Attempt)
			assert.Equal(t, limit+1, bad.calls)
			assert.Equal(t, 0, st.FinalAnswer)
			assert.Equal(t, 0.0, st.Confidence)
			assert.Equal(t, "repair: exhausted, using typed fallback", st.Trace[len(st.Trace)-1])
			if limit > 0 {
				assert.Contains(t, st.Trace, "repair: attempt=1")
			}
		}
	})

	t.Run("Panicking resolver degrades to fallback", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register("boom", &stubResolver{panics: true})
		env := newTestEnv(t, func(c *Config) { c.Resolvers = reg })

		st := env.run(t, Question{ID: "boom", Question: "q", FormatHint: "{a:int}"})

		assert.Equal(t, map[string]any{}, st.FinalAnswer)
		assert.Contains(t, st.Error, "synthesizer panic")
		assert.Equal(t, 1, st.Attempt)
	})
}

func TestEngine_Cancelled(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st, err := env.engine.Run(ctx, policyQuestion)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, st)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Retriever: nopRetriever{}, Executor: nopExecutor{}, MaxRepairs: -1})
	assert.Error(t, err)
}

func TestAnswer_JSONShape(t *testing.T) {
	env := newTestEnv(t, nil)
	reg := NewRegistry()
	env.engine.resolvers = reg

	ans, err := env.engine.Answer(context.Background(), Question{ID: "q", Question: "zzz", FormatHint: "str"})

	require.NoError(t, err)
	assert.Nil(t, ans.FinalAnswer)
	assert.NotNil(t, ans.Citations)
}
