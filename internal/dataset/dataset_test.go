package dataset

import (
	"strings"
	"testing"
)

func TestColumn(t *testing.T) {
	t.Run("IsTextual", func(t *testing.T) {
		text := &Column{Name: "city", Values: []interface{}{"Paris", nil, "Lyon"}}
		if !text.IsTextual() {
			t.Error("String column not textual")
		}
		numeric := &Column{Name: "amount", Values: []interface{}{1.5, 2.0, nil}}
		if numeric.IsTextual() {
			t.Error("Numeric column reported textual")
		}
		empty := &Column{Name: "empty"}
		if empty.IsTextual() {
			t.Error("Empty column reported textual")
		}
	})

	t.Run("IsNumeric", func(t *testing.T) {
		col := &Column{Name: "amount", Values: []interface{}{1.5, 2.0, "n/a"}}
		if !col.IsNumeric() {
			t.Error("Mostly numeric column not numeric")
		}
		mixed := &Column{Name: "mixed", Values: []interface{}{"a", "b", 1.0}}
		if mixed.IsNumeric() {
			t.Error("Mostly textual column reported numeric")
		}
	})

	t.Run("Strings", func(t *testing.T) {
		col := &Column{Name: "c", Values: []interface{}{"a", nil, 1.5}}
		got := col.Strings()
		if len(got) != 2 || got[0] != "a" || got[1] != "1.5" {
			t.Errorf("Strings() = %v", got)
		}
	})

	t.Run("Floats", func(t *testing.T) {
		col := &Column{Name: "c", Values: []interface{}{1.5, "2.5", "abc", nil}}
		got := col.Floats()
		if len(got) != 2 || got[0] != 1.5 || got[1] != 2.5 {
			t.Errorf("Floats() = %v", got)
		}
	})

	t.Run("UniqueRatio", func(t *testing.T) {
		col := &Column{Name: "c", Values: []interface{}{"a", "a", "b", "b"}}
		if got := col.UniqueRatio(); got != 0.5 {
			t.Errorf("UniqueRatio() = %f, want 0.5", got)
		}
		empty := &Column{Name: "c"}
		if got := empty.UniqueRatio(); got != 0 {
			t.Errorf("UniqueRatio() on empty column = %f", got)
		}
	})

	t.Run("AvgLen", func(t *testing.T) {
		col := &Column{Name: "c", Values: []interface{}{"ab", "abcd"}}
		if got := col.AvgLen(); got != 3 {
			t.Errorf("AvgLen() = %f, want 3", got)
		}
	})
}

func TestDataset(t *testing.T) {
	build := func() *Dataset {
		ds := New()
		ds.AddColumn("a", []interface{}{"x", "y"})
		ds.AddColumn("b", []interface{}{1.0, 2.0})
		ds.AddColumn("c", []interface{}{"p", "q"})
		return ds
	}

	t.Run("Shape", func(t *testing.T) {
		ds := build()
		if ds.NumColumns() != 3 || ds.NumRows() != 2 {
			t.Errorf("Shape = (%d, %d), want (3, 2)", ds.NumColumns(), ds.NumRows())
		}
	})

	t.Run("DropPreservesOrder", func(t *testing.T) {
		ds := build()
		ds.Drop("b", "missing")

		names := ds.ColumnNames()
		if len(names) != 2 || names[0] != "a" || names[1] != "c" {
			t.Errorf("ColumnNames() = %v", names)
		}
		if ds.Column("b") != nil {
			t.Error("Dropped column still reachable")
		}
		if ds.Column("c") == nil {
			t.Error("Surviving column lost after drop")
		}
	})

	t.Run("Apply", func(t *testing.T) {
		ds := New()
		ds.AddColumn("c", []interface{}{"a", nil, "b"})
		ds.Apply("c", strings.ToUpper)

		got := ds.Column("c").Values
		if got[0] != "A" || got[1] != nil || got[2] != "B" {
			t.Errorf("Apply result = %v", got)
		}

		// Unknown column is a no-op.
		ds.Apply("missing", strings.ToUpper)
	})

	t.Run("CopyIsDeep", func(t *testing.T) {
		ds := build()
		cp := ds.Copy()

		cp.Drop("a")
		cp.Apply("c", strings.ToUpper)

		if ds.NumColumns() != 3 {
			t.Error("Dropping from copy affected original")
		}
		if ds.Column("c").Values[0] != "p" {
			t.Error("Mutating copy affected original values")
		}
	})

	t.Run("DuplicateColumnReplaces", func(t *testing.T) {
		ds := New()
		ds.AddColumn("c", []interface{}{"old"})
		ds.AddColumn("c", []interface{}{"new"})

		if ds.NumColumns() != 1 {
			t.Errorf("Duplicate add grew the dataset to %d columns", ds.NumColumns())
		}
		if ds.Column("c").Values[0] != "new" {
			t.Error("Duplicate add did not replace values")
		}
	})
}

func TestFromCSV(t *testing.T) {
	csv := "name,amount,city\nMarie,100.5,Paris\nJean,,Lyon\n"

	ds, err := FromCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("FromCSV failed: %v", err)
	}
	if ds.NumColumns() != 3 || ds.NumRows() != 2 {
		t.Fatalf("Shape = (%d, %d), want (3, 2)", ds.NumColumns(), ds.NumRows())
	}
	if v := ds.Column("amount").Values[0]; v != 100.5 {
		t.Errorf("Numeric cell = %v (%T), want 100.5", v, v)
	}
	if v := ds.Column("amount").Values[1]; v != nil {
		t.Errorf("Empty cell = %v, want nil", v)
	}
	if v := ds.Column("name").Values[0]; v != "Marie" {
		t.Errorf("Text cell = %v", v)
	}
}

func TestFromJSON(t *testing.T) {
	t.Run("Records", func(t *testing.T) {
		payload := `[{"name":"Marie","amount":100.5},{"name":"Jean","city":"Lyon"}]`

		ds, err := FromJSON(strings.NewReader(payload))
		if err != nil {
			t.Fatalf("FromJSON failed: %v", err)
		}
		if ds.NumRows() != 2 {
			t.Errorf("NumRows() = %d, want 2", ds.NumRows())
		}
		// A key missing from a record becomes a missing value.
		if v := ds.Column("city").Values[0]; v != nil {
			t.Errorf("Missing key = %v, want nil", v)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		if _, err := FromJSON(strings.NewReader("{not json")); err == nil {
			t.Error("Expected error for malformed JSON")
		}
	})
}

func TestLoadFileUnsupported(t *testing.T) {
	if _, err := LoadFile("data.xlsx"); err == nil {
		t.Error("Expected error for unsupported extension")
	}
}
