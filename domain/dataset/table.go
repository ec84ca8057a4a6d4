package dataset

import (
	"fmt"
	"math"
)

// Table is a columnar record set: named columns over a fixed number of rows.
// Numeric columns hold float64 values with NaN marking a missing entry;
// categorical columns hold strings with "" marking a missing entry.
// Row order is fixed at construction and preserved by every derived table,
// so repeated operations over the same table are deterministic.
//
// Tables are treated as immutable once handed to the pipeline: derivation
// methods (WithNumeric, Select, Filter) return new tables and never touch
// the receiver.
type Table struct {
	rows        int
	order       []string
	numeric     map[string][]float64
	categorical map[string][]string
}

// New creates an empty table with a fixed row count.
func New(rows int) *Table {
	return &Table{
		rows:        rows,
		numeric:     make(map[string][]float64),
		categorical: make(map[string][]string),
	}
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() int {
	return t.rows
}

// Columns returns column names in insertion order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// HasColumn reports whether a column of either type exists.
func (t *Table) HasColumn(name string) bool {
	_, num := t.numeric[name]
	_, cat := t.categorical[name]
	return num || cat
}

// IsNumeric reports whether the named column exists and is numeric.
func (t *Table) IsNumeric(name string) bool {
	_, ok := t.numeric[name]
	return ok
}

// SetNumeric installs a numeric column during table construction.
// An existing column of the same name is replaced.
func (t *Table) SetNumeric(name string, values []float64) error {
	if len(values) != t.rows {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.rows)
	}
	if !t.HasColumn(name) {
		t.order = append(t.order, name)
	}
	delete(t.categorical, name)
	t.numeric[name] = values
	return nil
}

// SetCategorical installs a categorical column during table construction.
// An existing column of the same name is replaced.
func (t *Table) SetCategorical(name string, values []string) error {
	if len(values) != t.rows {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.rows)
	}
	if !t.HasColumn(name) {
		t.order = append(t.order, name)
	}
	delete(t.numeric, name)
	t.categorical[name] = values
	return nil
}

// Numeric returns the values of a numeric column. The returned slice is
// shared with the table and must not be mutated by the caller.
func (t *Table) Numeric(name string) ([]float64, bool) {
	vals, ok := t.numeric[name]
	return vals, ok
}

// Categorical returns the values of a categorical column. The returned
// slice is shared with the table and must not be mutated by the caller.
func (t *Table) Categorical(name string) ([]string, bool) {
	vals, ok := t.categorical[name]
	return vals, ok
}

// WithNumeric returns a new table with the given numeric column added or
// replaced. The receiver is left untouched.
func (t *Table) WithNumeric(name string, values []float64) (*Table, error) {
	if len(values) != t.rows {
		return nil, fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.rows)
	}
	out := t.shallowCopy()
	if !out.HasColumn(name) {
		out.order = append(out.order, name)
	}
	delete(out.categorical, name)
	out.numeric[name] = values
	return out, nil
}

// WithCategorical returns a new table with the given categorical column
// added or replaced. The receiver is left untouched.
func (t *Table) WithCategorical(name string, values []string) (*Table, error) {
	if len(values) != t.rows {
		return nil, fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.rows)
	}
	out := t.shallowCopy()
	if !out.HasColumn(name) {
		out.order = append(out.order, name)
	}
	delete(out.numeric, name)
	out.categorical[name] = values
	return out, nil
}

// Select returns a new table containing the given rows, in the given order.
// Indices outside [0, NumRows) are rejected.
func (t *Table) Select(indices []int) (*Table, error) {
	for _, idx := range indices {
		if idx < 0 || idx >= t.rows {
			return nil, fmt.Errorf("row index %d out of range [0,%d)", idx, t.rows)
		}
	}
	out := New(len(indices))
	out.order = make([]string, len(t.order))
	copy(out.order, t.order)
	for name, vals := range t.numeric {
		sub := make([]float64, len(indices))
		for i, idx := range indices {
			sub[i] = vals[idx]
		}
		out.numeric[name] = sub
	}
	for name, vals := range t.categorical {
		sub := make([]string, len(indices))
		for i, idx := range indices {
			sub[i] = vals[idx]
		}
		out.categorical[name] = sub
	}
	return out, nil
}

// Filter returns a new table containing the rows for which keep returns
// true, preserving source order.
func (t *Table) Filter(keep func(row int) bool) *Table {
	indices := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if keep(i) {
			indices = append(indices, i)
		}
	}
	out, _ := t.Select(indices) // indices are in range by construction
	return out
}

// NumericClean returns the non-NaN values of a numeric column, preserving
// row order.
func (t *Table) NumericClean(name string) ([]float64, bool) {
	vals, ok := t.numeric[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out, true
}

func (t *Table) shallowCopy() *Table {
	out := New(t.rows)
	out.order = make([]string, len(t.order))
	copy(out.order, t.order)
	for name, vals := range t.numeric {
		out.numeric[name] = vals
	}
	for name, vals := range t.categorical {
		out.categorical[name] = vals
	}
	return out
}
