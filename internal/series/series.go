// Package series provides nullable, Arrow-backed data columns.
package series

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Any is the type-erased view of a Series used by tables.
type Any interface {
	Name() string
	Len() int
	DataType() arrow.DataType
	IsNull(index int) bool
	NullN() int
	String() string
	Array() arrow.Array
	Release()
	GetAsString(index int) string
}

// Series represents a typed data column with Apache Arrow backend
type Series[T any] struct {
	name  string
	array arrow.Array
}

// New creates a new Series from a slice of values with no nulls.
func New[T any](name string, values []T, mem memory.Allocator) *Series[T] {
	s, err := NewNullable(name, values, nil, mem)
	if err != nil {
		panic(err)
	}
	return s
}

// NewSafe is New without the panic on unsupported element types.
func NewSafe[T any](name string, values []T, mem memory.Allocator) (*Series[T], error) {
	return NewNullable(name, values, nil, mem)
}

// NewNullable creates a Series where valid[i] == false marks values[i] as null.
// A nil valid slice means every value is present.
func NewNullable[T any](name string, values []T, valid []bool, mem memory.Allocator) (*Series[T], error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	if valid != nil && len(valid) != len(values) {
		return nil, fmt.Errorf("series %s: %d values but %d validity flags", name, len(values), len(valid))
	}

	var arr arrow.Array

	switch v := any(values).(type) {
	case []string:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []int64:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []float64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []bool:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	default:
		return nil, fmt.Errorf("unsupported type: %T", values)
	}

	return &Series[T]{name: name, array: arr}, nil
}

// FromArray wraps an existing Arrow array under a new name. The returned
// series takes over the caller's reference to arr.
func FromArray(name string, arr arrow.Array) (Any, error) {
	switch arr.(type) {
	case *array.String:
		return &Series[string]{name: name, array: arr}, nil
	case *array.Int64:
		return &Series[int64]{name: name, array: arr}, nil
	case *array.Float64:
		return &Series[float64]{name: name, array: arr}, nil
	case *array.Boolean:
		return &Series[bool]{name: name, array: arr}, nil
	default:
		return nil, fmt.Errorf("unsupported array type: %T", arr)
	}
}

// Name returns the column name
func (s *Series[T]) Name() string {
	return s.name
}

// Len returns the length of the series
func (s *Series[T]) Len() int {
	return s.array.Len()
}

// Values returns the data as a Go slice. Null slots hold the zero value.
func (s *Series[T]) Values() []T {
	result := make([]T, s.array.Len())
	for i := range result {
		result[i] = s.Value(i)
	}
	return result
}

// Value returns the value at the given index, or the zero value for nulls
// and out-of-range indices.
func (s *Series[T]) Value(index int) T {
	var result T
	if index < 0 || index >= s.array.Len() || s.array.IsNull(index) {
		return result
	}

	switch arr := s.array.(type) {
	case *array.String:
		if v, ok := any(&result).(*string); ok {
			*v = arr.Value(index)
		}
	case *array.Int64:
		if v, ok := any(&result).(*int64); ok {
			*v = arr.Value(index)
		}
	case *array.Float64:
		if v, ok := any(&result).(*float64); ok {
			*v = arr.Value(index)
		}
	case *array.Boolean:
		if v, ok := any(&result).(*bool); ok {
			*v = arr.Value(index)
		}
	}

	return result
}

// DataType returns the Arrow data type
func (s *Series[T]) DataType() arrow.DataType {
	return s.array.DataType()
}

// IsNull checks if the value at index is null
func (s *Series[T]) IsNull(index int) bool {
	return s.array.IsNull(index)
}

// NullN returns the number of null values.
func (s *Series[T]) NullN() int {
	return s.array.NullN()
}

// GetAsString formats the value at index for display and CSV output.
// Nulls render as the empty string.
func (s *Series[T]) GetAsString(index int) string {
	if index < 0 || index >= s.array.Len() || s.array.IsNull(index) {
		return ""
	}
	switch arr := s.array.(type) {
	case *array.String:
		return arr.Value(index)
	case *array.Int64:
		return strconv.FormatInt(arr.Value(index), 10)
	case *array.Float64:
		return strconv.FormatFloat(arr.Value(index), 'f', -1, 64)
	case *array.Boolean:
		return strconv.FormatBool(arr.Value(index))
	default:
		return ""
	}
}

// String returns a string representation of the series
func (s *Series[T]) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d, nulls=%d)",
		reflect.TypeOf(new(T)).Elem().Name(),
		s.name,
		s.Len(),
		s.NullN())
}

// Array returns the underlying Arrow array (retains a reference)
func (s *Series[T]) Array() arrow.Array {
	if s.array != nil {
		s.array.Retain()
		return s.array
	}
	return nil
}

// Release releases the underlying Arrow memory
func (s *Series[T]) Release() {
	if s.array != nil {
		s.array.Release()
	}
}

// Float64s reads a numeric column as float64 values plus a validity mask.
// ok is false when the column is not int64 or float64. NaN is reported as
// invalid.
func Float64s(s Any) (values []float64, valid []bool, ok bool) {
	arr := s.Array()
	if arr == nil {
		return nil, nil, false
	}
	defer arr.Release()

	n := arr.Len()
	switch typed := arr.(type) {
	case *array.Int64:
		values = make([]float64, n)
		valid = make([]bool, n)
		for i := 0; i < n; i++ {
			if typed.IsValid(i) {
				values[i] = float64(typed.Value(i))
				valid[i] = true
			}
		}
		return values, valid, true
	case *array.Float64:
		values = make([]float64, n)
		valid = make([]bool, n)
		for i := 0; i < n; i++ {
			if typed.IsValid(i) && !math.IsNaN(typed.Value(i)) {
				values[i] = typed.Value(i)
				valid[i] = true
			}
		}
		return values, valid, true
	default:
		return nil, nil, false
	}
}

// Strings reads any column as display strings plus a validity mask.
func Strings(s Any) (values []string, valid []bool) {
	n := s.Len()
	values = make([]string, n)
	valid = make([]bool, n)
	for i := 0; i < n; i++ {
		if !s.IsNull(i) {
			values[i] = s.GetAsString(i)
			valid[i] = true
		}
	}
	return values, valid
}

// IsNumeric reports whether the column holds int64 or float64 values.
func IsNumeric(s Any) bool {
	switch s.DataType().ID() {
	case arrow.INT64, arrow.FLOAT64:
		return true
	default:
		return false
	}
}
