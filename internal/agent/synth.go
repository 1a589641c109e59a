package agent

import "retailcopilot/internal/rag"

const fallbackExplanation = "No resolver handles this question, so a typed placeholder is returned without reasoning."

// Fallback is the generic answer for a hint: the typed zero, confidence 0,
// and every retrieved chunk as a citation.
func Fallback(hint FormatHint, docs []rag.Chunk) Resolution {
	return Resolution{
		Answer:      hint.Zero(),
		Confidence:  0,
		Explanation: fallbackExplanation,
		Citations:   appendUnique([]string{}, rag.IDs(docs)...),
	}
}

func (e *Engine) synthesize(st *State) {
	var out Resolution
	if res, ok := e.resolvers.Lookup(st.ID, st.FormatHint); ok {
		out = res.Resolve(st)
	} else {
		out = Fallback(st.FormatHint, st.RetrievedDocs)
	}
	apply(st, out)
	st.tracef("synthesizer: produced final_answer for %s", st.ID)
}

func (e *Engine) repair(st *State) {
	st.Attempt++
	st.tracef("repair: attempt=%d", st.Attempt)
}

func apply(st *State, r Resolution) {
	st.FinalAnswer = r.Answer
	st.Confidence = clamp01(r.Confidence)
	st.Explanation = r.Explanation
	st.Citations = appendUnique([]string{}, r.Citations...)
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
