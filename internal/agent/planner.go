package agent

import (
	"regexp"
	"strconv"
	"strings"

	"retailcopilot/internal/rag"
)

var (
	// "Summer Beverages 1997: 1997-06-01 to 1997-06-30" or "- Dates: 1997-06-01 to 1997-06-30"
	rangeLine   = regexp.MustCompile(`^\s*[-*]?\s*(.*?):?\s*(\d{4}-\d{2}-\d{2})\s+to\s+(\d{4}-\d{2}-\d{2})`)
	yearPattern = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
)

var kpiPhrases = []struct{ phrase, kpi string }{
	{"average order value", "aov"},
	{"aov", "aov"},
	{"gross margin", "gross_margin"},
	{"margin", "gross_margin"},
	{"revenue", "revenue"},
	{"quantity", "quantity"},
}

var categoryNames = []string{
	"Beverages", "Condiments", "Confections", "Dairy Products",
	"Grains/Cereals", "Meat/Poultry", "Produce", "Seafood",
}

// Planner extracts constraints for the query and synthesis stages. It must
// always return a non-nil Plan.
type Planner interface {
	Plan(question string, docs []rag.Chunk) Plan
}

// HeuristicPlanner finds KPIs, categories, years and campaign windows by
// keyword and pattern matching.
type HeuristicPlanner struct{}

var _ Planner = HeuristicPlanner{}

func (HeuristicPlanner) Plan(question string, docs []rag.Chunk) Plan {
	q := strings.ToLower(question)
	plan := Plan{}

	var kpis []string
	for _, p := range kpiPhrases {
		if strings.Contains(q, p.phrase) {
			kpis = appendUnique(kpis, p.kpi)
		}
	}
	if len(kpis) > 0 {
		plan["kpis"] = kpis
	}

	var cats []string
	for _, c := range categoryNames {
		if strings.Contains(q, strings.ToLower(c)) {
			cats = append(cats, c)
		}
	}
	if len(cats) > 0 {
		plan["categories"] = cats
	}

	if m := yearPattern.FindString(q); m != "" {
		year, _ := strconv.Atoi(m)
		plan["year"] = year
	}

	if name, dr, ok := findCampaign(q, docs); ok {
		plan["campaign"] = name
		plan["date_range"] = dr
	}

	plan["notes"] = "heuristic plan from question keywords and retrieved documents"
	return plan
}

// Constraints counts the extracted keys, notes excluded.
func (p Plan) Constraints() int {
	n := len(p)
	if _, ok := p["notes"]; ok {
		n--
	}
	return n
}

// findCampaign looks for a date window in the retrieved chunks whose campaign
// name appears in the question. A range line without its own name takes the
// nearest markdown heading above it.
func findCampaign(question string, docs []rag.Chunk) (string, DateRange, bool) {
	for _, d := range docs {
		var heading string
		for _, line := range strings.Split(d.Text, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "#") {
				heading = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
				continue
			}
			m := rangeLine.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := strings.TrimSpace(m[1])
			if name == "" || strings.EqualFold(name, "dates") {
				name = heading
			}
			if name == "" || !strings.Contains(question, strings.ToLower(name)) {
				continue
			}
			return name, DateRange{Start: m[2], End: m[3], Source: d.ID}, true
		}
	}
	return "", DateRange{}, false
}

func (e *Engine) plan(st *State) {
	st.Plan = e.planner.Plan(st.Question, st.RetrievedDocs)
	if st.Plan == nil {
		st.Plan = Plan{}
	}
	st.tracef("planner: %d constraints", st.Plan.Constraints())
}
