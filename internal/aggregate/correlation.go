package aggregate

import (
	"github.com/paveg/filmdash/internal/dataframe"
	dferrors "github.com/paveg/filmdash/internal/errors"
	"github.com/paveg/filmdash/internal/series"
	"github.com/paveg/filmdash/internal/stats"
)

// Correlation is a symmetric Pearson matrix over Columns.
type Correlation struct {
	Columns []string  `json:"columns"`
	Values  [][]Float `json:"values"`
}

// CorrelationMatrix computes pairwise-complete Pearson correlations between
// the numeric columns among columns. Absent and non-numeric columns are
// skipped. Fewer than two usable columns or fewer than two rows yields
// errors.ErrInsufficientData rather than a degenerate matrix. Pairs without
// two shared values or with zero variance are NaN.
func CorrelationMatrix(df *dataframe.DataFrame, columns []string) (*Correlation, error) {
	const op = "CorrelationMatrix"
	if df == nil {
		return nil, dferrors.NewInvalidInputError(op, "nil table")
	}

	usable := make([]string, 0, len(columns))
	for _, name := range columns {
		if col, ok := df.Column(name); ok && series.IsNumeric(col) {
			usable = append(usable, name)
		}
	}
	if len(usable) < 2 {
		return nil, dferrors.NewInsufficientDataError(op, "need at least two numeric columns")
	}
	if df.Len() < 2 {
		return nil, dferrors.NewInsufficientDataError(op, "need at least two rows")
	}

	snap, err := snapshot(df, op, usable...)
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	values := make([][]float64, len(usable))
	valid := make([][]bool, len(usable))
	for i, name := range usable {
		values[i], valid[i], err = numeric(snap, op, name)
		if err != nil {
			return nil, err
		}
	}

	matrix := make([][]Float, len(usable))
	for i := range matrix {
		matrix[i] = make([]Float, len(usable))
	}
	for i := range usable {
		for j := i; j < len(usable); j++ {
			r := Float(stats.Pearson(values[i], values[j], valid[i], valid[j]))
			matrix[i][j] = r
			matrix[j][i] = r
		}
	}
	return &Correlation{Columns: usable, Values: matrix}, nil
}
