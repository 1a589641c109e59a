package agent

import (
	"reflect"
	"strings"
)

// FormatHint is the answer shape a question asks for: "int", "float",
// "list[...]" or a brace-delimited object such as "{category:str, quantity:int}".
type FormatHint string

// HintKind classifies a FormatHint.
type HintKind int

const (
	KindOther HintKind = iota
	KindInt
	KindFloat
	KindList
	KindObject
)

func (k HintKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "other"
	}
}

// Kind classifies the trimmed hint.
func (h FormatHint) Kind() HintKind {
	s := strings.TrimSpace(string(h))
	switch {
	case s == "int":
		return KindInt
	case s == "float":
		return KindFloat
	case strings.HasPrefix(s, "list["):
		return KindList
	case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
		return KindObject
	default:
		return KindOther
	}
}

// Zero returns the typed empty value for the hint: 0, 0.0, an empty list, an
// empty object, or nil.
func (h FormatHint) Zero() any {
	switch h.Kind() {
	case KindInt:
		return 0
	case KindFloat:
		return 0.0
	case KindList:
		return []any{}
	case KindObject:
		return map[string]any{}
	default:
		return nil
	}
}

// Conforms reports whether v has the shape the hint asks for. Hints of kind
// other accept anything.
func (h FormatHint) Conforms(v any) bool {
	kind := h.Kind()
	if kind == KindOther {
		return true
	}
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return kind == KindInt
	case reflect.Float32, reflect.Float64:
		return kind == KindFloat
	case reflect.Slice, reflect.Array:
		return kind == KindList
	case reflect.Map, reflect.Struct:
		return kind == KindObject
	default:
		return false
	}
}
