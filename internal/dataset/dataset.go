package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// Column is one ordered sequence of scalar values. A nil entry is a missing
// value; other entries are string or float64.
type Column struct {
	Name   string
	Values []interface{}
}

// IsTextual reports whether the column is predominantly string-valued.
// Missing values do not count either way.
func (c *Column) IsTextual() bool {
	var text, other int
	for _, v := range c.Values {
		switch v.(type) {
		case nil:
		case string:
			text++
		default:
			other++
		}
	}
	return text > 0 && text >= other
}

// Strings returns the non-missing values coerced to strings, in order.
func (c *Column) Strings() []string {
	out := make([]string, 0, len(c.Values))
	for _, v := range c.Values {
		switch val := v.(type) {
		case nil:
		case string:
			out = append(out, val)
		case float64:
			out = append(out, strconv.FormatFloat(val, 'f', -1, 64))
		default:
			out = append(out, fmt.Sprintf("%v", val))
		}
	}
	return out
}

// Floats returns the non-missing numeric values, in order. String values
// that parse as numbers are included.
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		switch val := v.(type) {
		case float64:
			out = append(out, val)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
				out = append(out, f)
			}
		}
	}
	return out
}

// IsNumeric reports whether the column is predominantly number-valued.
func (c *Column) IsNumeric() bool {
	var num, other int
	for _, v := range c.Values {
		switch v.(type) {
		case nil:
		case float64:
			num++
		default:
			other++
		}
	}
	return num > 0 && num > other
}

// UniqueRatio returns distinct non-missing values over non-missing count.
func (c *Column) UniqueRatio() float64 {
	values := c.Strings()
	if len(values) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return float64(len(seen)) / float64(len(values))
}

// AvgLen returns the mean character length of non-missing values.
func (c *Column) AvgLen() float64 {
	values := c.Strings()
	if len(values) == 0 {
		return 0
	}
	var total int
	for _, v := range values {
		total += len([]rune(v))
	}
	return float64(total) / float64(len(values))
}

// Dataset is an ordered collection of named columns. Column order is
// preserved across drops and copies.
type Dataset struct {
	columns []*Column
	index   map[string]int
}

// New creates an empty dataset.
func New() *Dataset {
	return &Dataset{index: make(map[string]int)}
}

// AddColumn appends a column. A duplicate name replaces the previous values.
func (d *Dataset) AddColumn(name string, values []interface{}) {
	if i, ok := d.index[name]; ok {
		d.columns[i].Values = values
		return
	}
	d.index[name] = len(d.columns)
	d.columns = append(d.columns, &Column{Name: name, Values: values})
}

// Column returns the named column, or nil when absent.
func (d *Dataset) Column(name string) *Column {
	if i, ok := d.index[name]; ok {
		return d.columns[i]
	}
	return nil
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. Callers must not reorder the slice.
func (d *Dataset) Columns() []*Column {
	return d.columns
}

// NumColumns returns the column count.
func (d *Dataset) NumColumns() int {
	return len(d.columns)
}

// NumRows returns the length of the longest column.
func (d *Dataset) NumRows() int {
	var rows int
	for _, c := range d.columns {
		if len(c.Values) > rows {
			rows = len(c.Values)
		}
	}
	return rows
}

// Drop removes the named columns. Unknown names are ignored.
func (d *Dataset) Drop(names ...string) {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}

	kept := d.columns[:0]
	for _, c := range d.columns {
		if _, ok := drop[c.Name]; !ok {
			kept = append(kept, c)
		}
	}
	d.columns = kept

	d.index = make(map[string]int, len(d.columns))
	for i, c := range d.columns {
		d.index[c.Name] = i
	}
}

// Apply replaces every non-missing value of the named column with fn of its
// string form. Missing values stay missing.
func (d *Dataset) Apply(name string, fn func(string) string) {
	col := d.Column(name)
	if col == nil {
		return
	}
	for i, v := range col.Values {
		switch val := v.(type) {
		case nil:
		case string:
			col.Values[i] = fn(val)
		case float64:
			col.Values[i] = fn(strconv.FormatFloat(val, 'f', -1, 64))
		default:
			col.Values[i] = fn(fmt.Sprintf("%v", val))
		}
	}
}

// Copy returns a deep copy. Mutating the copy never affects the original.
func (d *Dataset) Copy() *Dataset {
	out := New()
	for _, c := range d.columns {
		values := make([]interface{}, len(c.Values))
		copy(values, c.Values)
		out.AddColumn(c.Name, values)
	}
	return out
}

// String renders a short description for logs.
func (d *Dataset) String() string {
	return fmt.Sprintf("dataset(%d columns, %d rows: %s)",
		d.NumColumns(), d.NumRows(), strings.Join(d.ColumnNames(), ", "))
}
