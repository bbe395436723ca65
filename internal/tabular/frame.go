// Package tabular reads and writes delimited text files as typed frames.
package tabular

import (
	"fmt"
	"time"

	"github.com/tabloader/tabloader/pkg/types"
)

// Column is a named, typed column of values. A nil value is a null.
type Column struct {
	Name   string
	Type   types.TypeTag
	Values []any
}

// Frame is an in-memory table: ordered columns of equal length and an
// optional index column.
type Frame struct {
	Columns []Column
	Index   *Column
}

// NewFrame builds a frame from row-major values, typing each column after
// its first non-null value.
func NewFrame(names []string, rows [][]any) (*Frame, error) {
	f := &Frame{Columns: make([]Column, len(names))}
	for i, name := range names {
		f.Columns[i] = Column{Name: name, Type: types.TypeText, Values: make([]any, 0, len(rows))}
	}

	for r, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", r, len(row), len(names))
		}
		for i, v := range row {
			f.Columns[i].Values = append(f.Columns[i].Values, normalize(v))
		}
	}

	for i := range f.Columns {
		for _, v := range f.Columns[i].Values {
			if v != nil {
				f.Columns[i].Type = tagOf(v)
				break
			}
		}
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if len(f.Columns) == 0 {
		if f.Index != nil {
			return len(f.Index.Values)
		}
		return 0
	}
	return len(f.Columns[0].Values)
}

// Names returns the column names in order, excluding the index.
func (f *Frame) Names() []string {
	names := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		names[i] = c.Name
	}
	return names
}

// Table returns the table descriptor for loading the frame into table name.
// The index column, when present, becomes the first column.
func (f *Frame) Table(name string) types.Table {
	t := types.Table{Name: name}
	if f.Index != nil {
		t.Columns = append(t.Columns, types.ColumnDef{Name: f.Index.Name, Type: f.Index.Type})
	}
	for _, c := range f.Columns {
		t.Columns = append(t.Columns, types.ColumnDef{Name: c.Name, Type: c.Type})
	}
	return t
}

// Records returns one map per row keyed by column name, index included.
func (f *Frame) Records() []map[string]any {
	n := f.Len()
	records := make([]map[string]any, n)
	for r := 0; r < n; r++ {
		rec := make(map[string]any, len(f.Columns)+1)
		if f.Index != nil {
			rec[f.Index.Name] = f.Index.Values[r]
		}
		for _, c := range f.Columns {
			rec[c.Name] = c.Values[r]
		}
		records[r] = rec
	}
	return records
}

func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

func tagOf(v any) types.TypeTag {
	switch v.(type) {
	case int64:
		return types.TypeInteger
	case float64:
		return types.TypeFloat
	case bool:
		return types.TypeBoolean
	case time.Time:
		return types.TypeTimestamp
	case time.Duration:
		return types.TypeInterval
	case []any:
		return types.TypeArray
	default:
		return types.TypeText
	}
}
