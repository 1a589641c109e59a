package sqlexec

import (
	"encoding/json"
	"fmt"
)

// Result is the outcome of one Execute call. When OK is false, Columns and
// Rows are empty and Error is set. Truncated reports that rows beyond the row
// limit were dropped; the result is still OK.
type Result struct {
	OK        bool
	Error     string
	Columns   []string
	Rows      [][]any
	Truncated bool
}

type resultJSON struct {
	OK        bool     `json:"ok"`
	Error     *string  `json:"error"`
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Truncated bool     `json:"truncated,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{OK: r.OK, Columns: r.Columns, Rows: r.Rows, Truncated: r.Truncated}
	if r.Error != "" {
		out.Error = &r.Error
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	if out.Rows == nil {
		out.Rows = [][]any{}
	}
	return json.Marshal(out)
}

// Column returns the position of the named column.
func (r Result) Column(name string) (int, bool) {
	for i, c := range r.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Row returns row i as a name-addressable view.
func (r Result) Row(i int) Row {
	return Row{res: &r, vals: r.Rows[i]}
}

// Row looks values up by column name rather than position.
type Row struct {
	res  *Result
	vals []any
}

// Get returns the value of the named column.
func (w Row) Get(name string) (any, error) {
	i, ok := w.res.Column(name)
	if !ok {
		return nil, fmt.Errorf("column %q not in result", name)
	}
	return w.vals[i], nil
}

// Float returns the named column as a float64. NULL is reported as ok=false.
func (w Row) Float(name string) (float64, bool, error) {
	v, err := w.Get(name)
	if err != nil {
		return 0, false, err
	}
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return x, true, nil
	case int64:
		return float64(x), true, nil
	default:
		return 0, false, fmt.Errorf("column %q: %T is not numeric", name, v)
	}
}

// Int returns the named column as an int64, truncating reals.
func (w Row) Int(name string) (int64, bool, error) {
	v, err := w.Get(name)
	if err != nil {
		return 0, false, err
	}
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case int64:
		return x, true, nil
	case float64:
		return int64(x), true, nil
	default:
		return 0, false, fmt.Errorf("column %q: %T is not numeric", name, v)
	}
}

// Text returns the named column as text. NULL is reported as ok=false.
func (w Row) Text(name string) (string, bool, error) {
	v, err := w.Get(name)
	if err != nil {
		return "", false, err
	}
	switch x := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return x, true, nil
	default:
		return fmt.Sprint(x), true, nil
	}
}

// AllNull reports whether every value of the row is NULL.
func (w Row) AllNull() bool {
	for _, v := range w.vals {
		if v != nil {
			return false
		}
	}
	return true
}
