// Package errors provides standardized error types for table operations.
// DataFrameError carries the operation, the column involved and a Kind that
// callers match with errors.Is to decide whether a condition degrades a
// feature (missing column, not enough data) or aborts (load failure).
package errors

import (
	"fmt"
)

// Kind classifies a DataFrameError.
type Kind int

const (
	// KindUnknown is the zero Kind.
	KindUnknown Kind = iota
	// KindMissingColumn means an expected column is absent.
	KindMissingColumn
	// KindUnparseable means a value could not be read as the requested type.
	KindUnparseable
	// KindInsufficientData means there is too little data to compute a result.
	KindInsufficientData
	// KindJoinMismatch means a key had no counterpart on the other side of a join.
	KindJoinMismatch
	// KindLoad means a source table could not be read.
	KindLoad
	// KindInvalidInput means the caller passed an invalid argument.
	KindInvalidInput
	// KindUnsupportedType means a column type is not handled by the operation.
	KindUnsupportedType
)

func (k Kind) String() string {
	switch k {
	case KindMissingColumn:
		return "missing column"
	case KindUnparseable:
		return "unparseable value"
	case KindInsufficientData:
		return "insufficient data"
	case KindJoinMismatch:
		return "join mismatch"
	case KindLoad:
		return "load failure"
	case KindInvalidInput:
		return "invalid input"
	case KindUnsupportedType:
		return "unsupported type"
	default:
		return "unknown"
	}
}

// DataFrameError represents standardized errors across all table operations
type DataFrameError struct {
	Op      string // Operation name (e.g., "ValueCounts", "AttachYear", "Load")
	Column  string // Column name if applicable
	Kind    Kind   // Error classification
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *DataFrameError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Column != "" {
		return fmt.Sprintf("%s operation failed on column '%s': %s", e.Op, e.Column, msg)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Op, msg)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *DataFrameError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is(). A target that only
// sets Kind matches every error of that Kind.
func (e *DataFrameError) Is(target error) bool {
	df, ok := target.(*DataFrameError)
	if !ok {
		return false
	}
	if df.Op == "" && df.Column == "" && df.Message == "" {
		return df.Kind != KindUnknown && e.Kind == df.Kind
	}
	return e.Op == df.Op && e.Column == df.Column && e.Message == df.Message
}

// NewColumnNotFoundError creates an error for operations on non-existent columns
func NewColumnNotFoundError(op, column string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Column:  column,
		Kind:    KindMissingColumn,
		Message: "column does not exist",
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Kind:    KindInvalidInput,
		Message: message,
	}
}

// NewUnsupportedTypeError creates an error for unsupported data types
func NewUnsupportedTypeError(op, column, typeName string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Column:  column,
		Kind:    KindUnsupportedType,
		Message: fmt.Sprintf("unsupported type: %s", typeName),
	}
}

// NewInsufficientDataError creates an error for computations that need more
// rows or columns than are available.
func NewInsufficientDataError(op, message string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Kind:    KindInsufficientData,
		Message: message,
	}
}

// NewUnparseableError reports values of column that could not be read as
// numbers and were stored as null.
func NewUnparseableError(op, column string, count int) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Column:  column,
		Kind:    KindUnparseable,
		Message: fmt.Sprintf("%d values could not be parsed", count),
	}
}

// NewJoinMismatchError reports rows dropped because their key had no match.
func NewJoinMismatchError(op string, dropped int) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Kind:    KindJoinMismatch,
		Message: fmt.Sprintf("%d rows had no matching key", dropped),
	}
}

// NewLoadError creates an error for a source table that cannot be read.
func NewLoadError(path string, cause error) *DataFrameError {
	return &DataFrameError{
		Op:      "Load",
		Kind:    KindLoad,
		Message: fmt.Sprintf("cannot load %s", path),
		Cause:   cause,
	}
}

// NewInternalError creates an error for internal operation failures
func NewInternalError(op string, cause error) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Message: "internal error occurred",
		Cause:   cause,
	}
}

// Kind sentinels for errors.Is.
var (
	ErrMissingColumn    = &DataFrameError{Kind: KindMissingColumn}
	ErrUnparseable      = &DataFrameError{Kind: KindUnparseable}
	ErrInsufficientData = &DataFrameError{Kind: KindInsufficientData}
	ErrJoinMismatch     = &DataFrameError{Kind: KindJoinMismatch}
	ErrLoad             = &DataFrameError{Kind: KindLoad}
	ErrInvalidInput     = &DataFrameError{Kind: KindInvalidInput}
	ErrUnsupportedType  = &DataFrameError{Kind: KindUnsupportedType}
)
