package agent

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"retailcopilot/internal/sqlexec"
)

// Resolution is a synthesized answer.
type Resolution struct {
	Answer      any
	Confidence  float64
	Explanation string
	Citations   []string
}

// Resolver produces the answer for one question id.
type Resolver interface {
	Accepts(hint FormatHint) bool
	Resolve(st *State) Resolution
}

// Registry maps question ids to resolvers.
type Registry struct {
	byID map[string]Resolver
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Resolver)}
}

// Register adds or replaces the resolver for id.
func (r *Registry) Register(id string, res Resolver) {
	r.byID[id] = res
}

// Lookup returns the resolver for id when it accepts hint.
func (r *Registry) Lookup(id string, hint FormatHint) (Resolver, bool) {
	res, ok := r.byID[id]
	if !ok || !res.Accepts(hint) {
		return nil, false
	}
	return res, true
}

// DefaultRegistry holds the resolvers for the known retail questions.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(IDPolicyBeveragesReturnDays, policyResolver{})
	r.Register(IDTop3ProductsByRevenue, &sqlResolver{
		kind:    KindList,
		subject: "top products by revenue",
		tables:  []string{"Order Details", "Products"},
		empty:   func() any { return []any{} },
		extract: extractTopProducts,
		success: func(Plan) string {
			return "Summed revenue per product over Order Details joined with Products and kept the top 3."
		},
	})
	r.Register(IDAOVWinter1997, &sqlResolver{
		kind:    KindFloat,
		subject: "average order value",
		tables:  []string{"Orders", "Order Details"},
		docs:    []string{"kpi_definitions", "marketing_calendar"},
		empty:   func() any { return 0.0 },
		extract: extractRounded("aov"),
		success: func(p Plan) string {
			return fmt.Sprintf("Computed AOV as revenue over distinct orders for Winter Classics 1997 (%s).",
				period(p, "1997-12-01", "1997-12-31"))
		},
	})
	r.Register(IDRevenueBeveragesSummer, &sqlResolver{
		kind:    KindFloat,
		subject: "Beverages revenue",
		tables:  []string{"Orders", "Order Details", "Products", "Categories"},
		docs:    []string{"marketing_calendar", "kpi_definitions", "catalog"},
		empty:   func() any { return 0.0 },
		extract: extractRounded("revenue"),
		success: func(p Plan) string {
			return fmt.Sprintf("Summed Beverages revenue for Summer Beverages 1997 (%s).",
				period(p, "1997-06-01", "1997-06-30"))
		},
	})
	r.Register(IDTopCategoryQtySummer, &sqlResolver{
		kind:    KindObject,
		subject: "top category by quantity",
		tables:  []string{"Orders", "Order Details", "Products", "Categories"},
		docs:    []string{"marketing_calendar", "catalog"},
		empty:   func() any { return map[string]any{"category": "", "quantity": 0} },
		extract: extractTopCategory,
		success: func(p Plan) string {
			return fmt.Sprintf("Summed quantity per category for Summer Beverages 1997 (%s) and kept the largest.",
				period(p, "1997-06-01", "1997-06-30"))
		},
	})
	r.Register(IDBestCustomerMargin1997, &sqlResolver{
		kind:    KindObject,
		subject: "best customer by gross margin",
		tables:  []string{"Orders", "Order Details", "Customers"},
		docs:    []string{"kpi_definitions"},
		empty:   func() any { return map[string]any{"customer": "", "margin": 0.0} },
		extract: extractBestCustomer,
		success: func(Plan) string {
			return "Took cost of goods as 70% of unit price and summed 1997 gross margin per customer. The customer with the largest margin is returned."
		},
	})
	return r
}

var daysPattern = regexp.MustCompile(`(\d+)\s*days`)

// policyResolver reads the unopened Beverages return window from the
// retrieved policy text.
type policyResolver struct{}

func (policyResolver) Accepts(hint FormatHint) bool { return hint.Kind() == KindInt }

func (policyResolver) Resolve(st *State) Resolution {
	for _, d := range st.RetrievedDocs {
		for _, line := range strings.Split(d.Text, "\n") {
			lower := strings.ToLower(line)
			if !strings.Contains(lower, "beverages unopened") || !strings.Contains(lower, "days") {
				continue
			}
			m := daysPattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			days, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return Resolution{
				Answer:      days,
				Confidence:  0.95,
				Explanation: "Read the return window for unopened Beverages from the product policy.",
				Citations:   []string{d.ID},
			}
		}
	}
	return Resolution{
		Answer:      0,
		Confidence:  0.1,
		Explanation: "No retrieved policy text states the return window for unopened Beverages.",
		Citations:   []string{},
	}
}

// sqlResolver applies the error / no data / success contract to a query
// result. Values are read by column name only.
type sqlResolver struct {
	kind    HintKind
	subject string
	tables  []string
	docs    []string
	empty   func() any
	extract func(res sqlexec.Result) (any, error)
	success func(Plan) string
}

func (r *sqlResolver) Accepts(hint FormatHint) bool { return hint.Kind() == r.kind }

func (r *sqlResolver) Resolve(st *State) Resolution {
	citations := r.citations(st)
	res := st.SQLResult

	if res == nil || !res.OK {
		reason := "no query result"
		if res != nil && res.Error != "" {
			reason = res.Error
		}
		return r.failure(reason, citations)
	}
	if len(res.Rows) == 0 || (len(res.Rows) == 1 && res.Row(0).AllNull()) {
		return Resolution{
			Answer:      r.empty(),
			Confidence:  0.5,
			Explanation: fmt.Sprintf("The %s query ran without error but matched no data.", r.subject),
			Citations:   citations,
		}
	}

	answer, err := r.extract(*res)
	if err != nil {
		return r.failure(err.Error(), citations)
	}
	return Resolution{
		Answer:      answer,
		Confidence:  0.9,
		Explanation: r.success(st.Plan),
		Citations:   citations,
	}
}

func (r *sqlResolver) failure(reason string, citations []string) Resolution {
	return Resolution{
		Answer:      r.empty(),
		Confidence:  0.1,
		Explanation: fmt.Sprintf("The %s query failed (%s), so an empty value is returned.", r.subject, reason),
		Citations:   citations,
	}
}

func (r *sqlResolver) citations(st *State) []string {
	out := appendUnique(nil, r.tables...)
	for _, d := range st.RetrievedDocs {
		for _, ns := range r.docs {
			if d.Namespace() == ns {
				out = appendUnique(out, d.ID)
			}
		}
	}
	if dr, ok := st.Plan.DateRange(); ok && dr.Source != "" {
		out = appendUnique(out, dr.Source)
	}
	return out
}

func period(p Plan, start, end string) string {
	if dr, ok := p.DateRange(); ok {
		start, end = dr.Start, dr.End
	}
	return start + " to " + end
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func extractRounded(column string) func(sqlexec.Result) (any, error) {
	return func(res sqlexec.Result) (any, error) {
		v, _, err := res.Row(0).Float(column)
		if err != nil {
			return nil, err
		}
		return round2(v), nil
	}
}

func extractTopProducts(res sqlexec.Result) (any, error) {
	out := make([]any, 0, len(res.Rows))
	for i := range res.Rows {
		row := res.Row(i)
		product, _, err := row.Text("product")
		if err != nil {
			return nil, err
		}
		revenue, _, err := row.Float("revenue")
		if err != nil {
			return nil, err
		}
		out = append(out, map[string]any{"product": product, "revenue": round2(revenue)})
	}
	return out, nil
}

func extractTopCategory(res sqlexec.Result) (any, error) {
	row := res.Row(0)
	category, _, err := row.Text("category")
	if err != nil {
		return nil, err
	}
	qty, _, err := row.Int("total_quantity")
	if err != nil {
		return nil, err
	}
	return map[string]any{"category": category, "quantity": int(qty)}, nil
}

func extractBestCustomer(res sqlexec.Result) (any, error) {
	row := res.Row(0)
	customer, _, err := row.Text("customer")
	if err != nil {
		return nil, err
	}
	margin, _, err := row.Float("margin")
	if err != nil {
		return nil, err
	}
	return map[string]any{"customer": customer, "margin": round2(margin)}, nil
}
