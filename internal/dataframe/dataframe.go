// Package dataframe provides column-ordered tables over Arrow-backed series.
//
// Every operation returns a new DataFrame; the receiver is never modified.
// A derived DataFrame holds its own references to the underlying Arrow
// arrays, so releasing one table never invalidates another.
package dataframe

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/filmdash/internal/series"
)

// DataFrame represents a table of data with typed columns
type DataFrame struct {
	columns map[string]ISeries
	order   []string // Maintains column order
}

// New creates a new DataFrame from a slice of ISeries. Later series with a
// duplicate name replace earlier ones in place.
func New(series ...ISeries) *DataFrame {
	columns := make(map[string]ISeries)
	order := make([]string, 0, len(series))

	for _, s := range series {
		name := s.Name()
		if _, exists := columns[name]; !exists {
			order = append(order, name)
		}
		columns[name] = s
	}

	return &DataFrame{
		columns: columns,
		order:   order,
	}
}

// Columns returns the names of all columns in order
func (df *DataFrame) Columns() []string {
	if len(df.order) == 0 {
		return []string{}
	}
	return append([]string(nil), df.order...)
}

// Len returns the number of rows (assumes all columns have same length)
func (df *DataFrame) Len() int {
	if len(df.order) == 0 {
		return 0
	}
	return df.columns[df.order[0]].Len()
}

// Width returns the number of columns
func (df *DataFrame) Width() int {
	return len(df.columns)
}

// Column returns the series for the given column name
func (df *DataFrame) Column(name string) (ISeries, bool) {
	series, exists := df.columns[name]
	return series, exists
}

// HasColumn checks if a column exists
func (df *DataFrame) HasColumn(name string) bool {
	_, exists := df.columns[name]
	return exists
}

// Select returns a new DataFrame with only the specified columns.
// Unknown names are skipped.
func (df *DataFrame) Select(names ...string) *DataFrame {
	selected := make([]ISeries, 0, len(names))
	for _, name := range names {
		if s, exists := df.columns[name]; exists {
			selected = append(selected, share(name, s))
		}
	}
	return New(selected...)
}

// Drop returns a new DataFrame without the specified columns
func (df *DataFrame) Drop(names ...string) *DataFrame {
	dropSet := make(map[string]bool, len(names))
	for _, name := range names {
		dropSet[name] = true
	}

	kept := make([]ISeries, 0, len(df.order))
	for _, name := range df.order {
		if !dropSet[name] {
			kept = append(kept, share(name, df.columns[name]))
		}
	}
	return New(kept...)
}

// Rename returns a new DataFrame with columns renamed according to mapping.
// Column order is preserved. Renaming onto an existing name that is not
// itself renamed away is rejected.
func (df *DataFrame) Rename(mapping map[string]string) (*DataFrame, error) {
	seen := make(map[string]bool, len(df.order))
	renamed := make([]ISeries, 0, len(df.order))

	for _, name := range df.order {
		target := name
		if to, ok := mapping[name]; ok {
			target = to
		}
		if seen[target] {
			for _, s := range renamed {
				s.Release()
			}
			return nil, fmt.Errorf("rename would duplicate column %q", target)
		}
		seen[target] = true
		renamed = append(renamed, share(target, df.columns[name]))
	}
	return New(renamed...), nil
}

// WithColumn returns a new DataFrame with s added. A column with the same
// name is replaced in its original position; otherwise s is appended.
// The returned DataFrame takes ownership of s.
func (df *DataFrame) WithColumn(s ISeries) *DataFrame {
	cols := make([]ISeries, 0, len(df.order)+1)
	replaced := false
	for _, name := range df.order {
		if name == s.Name() {
			cols = append(cols, s)
			replaced = true
			continue
		}
		cols = append(cols, share(name, df.columns[name]))
	}
	if !replaced {
		cols = append(cols, s)
	}
	return New(cols...)
}

// Copy returns a deep copy of the DataFrame with independent memory.
func (df *DataFrame) Copy() *DataFrame {
	indices := make([]int, df.Len())
	for i := range indices {
		indices[i] = i
	}
	return df.Take(indices)
}

// String returns a string representation of the DataFrame
func (df *DataFrame) String() string {
	if len(df.columns) == 0 {
		return "DataFrame[empty]"
	}

	parts := []string{fmt.Sprintf("DataFrame[%dx%d]", df.Len(), df.Width())}

	for _, name := range df.order {
		series := df.columns[name]
		parts = append(parts, fmt.Sprintf("  %s: %s", name, series.DataType().String()))
	}

	return strings.Join(parts, "\n")
}

// Row returns the display values of row i in column order.
func (df *DataFrame) Row(i int) []string {
	row := make([]string, len(df.order))
	for j, name := range df.order {
		row[j] = df.columns[name].GetAsString(i)
	}
	return row
}

// Release releases all underlying Arrow memory
func (df *DataFrame) Release() {
	for _, series := range df.columns {
		series.Release()
	}
}

// share wraps the array behind s under name with a fresh reference.
func share(name string, s ISeries) ISeries {
	shared, err := series.FromArray(name, s.Array())
	if err != nil {
		// Every series in a DataFrame is built by this module, so the array
		// type is always one FromArray accepts.
		panic(err)
	}
	return shared
}

// Take returns a new DataFrame made of the given rows, in the given order.
// An index of -1 produces a null row.
func (df *DataFrame) Take(indices []int) *DataFrame {
	mem := memory.NewGoAllocator()
	taken := make([]ISeries, 0, len(df.order))
	for _, name := range df.order {
		taken = append(taken, takeSeries(name, df.columns[name], indices, mem))
	}
	return New(taken...)
}

// Filter returns the rows where keep is true.
func (df *DataFrame) Filter(keep []bool) *DataFrame {
	indices := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			indices = append(indices, i)
		}
	}
	return df.Take(indices)
}

// takeSeries gathers rows of s into a new series with independent memory.
func takeSeries(name string, s ISeries, indices []int, mem memory.Allocator) ISeries {
	arr := s.Array()
	defer arr.Release()

	switch typed := arr.(type) {
	case *array.String:
		return gather(name, typed, indices, mem, typed.Value)
	case *array.Int64:
		return gather(name, typed, indices, mem, typed.Value)
	case *array.Float64:
		return gather(name, typed, indices, mem, typed.Value)
	case *array.Boolean:
		return gather(name, typed, indices, mem, typed.Value)
	default:
		panic(fmt.Sprintf("unsupported array type: %T", arr))
	}
}

func gather[T any](name string, arr arrow.Array, indices []int, mem memory.Allocator, value func(int) T) ISeries {
	values := make([]T, len(indices))
	valid := make([]bool, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= arr.Len() || arr.IsNull(idx) {
			continue
		}
		values[i] = value(idx)
		valid[i] = true
	}
	s, err := series.NewNullable(name, values, valid, mem)
	if err != nil {
		panic(err)
	}
	return s
}
