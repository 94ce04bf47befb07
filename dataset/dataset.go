// Package dataset holds the tabular data model for a training run: an
// ordered sequence of rows loaded from CSV (or synthesized when the source
// file is missing or short), a deterministic train/test split, and the
// conversion to gonum matrices consumed by the training engine.
package dataset

import (
	"strconv"

	"gonum.org/v1/gonum/mat"

	"autotab/pkg/errors"
)

// Row maps a column name to a cell value. Values are int64, float64 or
// string, decided when the cell is parsed.
type Row map[string]any

// Dataset is an ordered sequence of rows with a stable column set. The column
// order is the order of the CSV header (or of the synthetic generator).
type Dataset struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// HasColumn reports whether the dataset carries the named column.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// asFloat converts a cell value to float64 when it carries a numeric type.
func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

// NumericColumns returns the columns whose every cell converts to float64,
// excluding the given label column. These are the feature columns the
// training engine operates on; free-text columns are left out.
func (d *Dataset) NumericColumns(label string) []string {
	var cols []string
	for _, c := range d.Columns {
		if c == label {
			continue
		}
		numeric := len(d.Rows) > 0
		for _, row := range d.Rows {
			if _, ok := asFloat(row[c]); !ok {
				numeric = false
				break
			}
		}
		if numeric {
			cols = append(cols, c)
		}
	}
	return cols
}

// FeatureMatrix builds the feature view of the dataset over the given
// columns: one row per record, one column per feature, label excluded by the
// caller's column choice.
func (d *Dataset) FeatureMatrix(columns []string) (*mat.Dense, error) {
	if d.Len() == 0 {
		return nil, errors.NewValueError("FeatureMatrix", "empty dataset")
	}
	if len(columns) == 0 {
		return nil, errors.NewValueError("FeatureMatrix", "no feature columns")
	}
	X := mat.NewDense(d.Len(), len(columns), nil)
	for i, row := range d.Rows {
		for j, c := range columns {
			v, ok := asFloat(row[c])
			if !ok {
				return nil, errors.NewValueError("FeatureMatrix",
					"column '"+c+"' is not numeric at row "+strconv.Itoa(i))
			}
			X.Set(i, j, v)
		}
	}
	return X, nil
}

// LabelVector extracts the label column as a float vector.
func (d *Dataset) LabelVector(label string) ([]float64, error) {
	if !d.HasColumn(label) {
		return nil, errors.NewValidationError("label", "column not present in dataset", label)
	}
	y := make([]float64, d.Len())
	for i, row := range d.Rows {
		v, ok := asFloat(row[label])
		if !ok {
			return nil, errors.NewValueError("LabelVector",
				"label column '"+label+"' is not numeric at row "+strconv.Itoa(i))
		}
		y[i] = v
	}
	return y, nil
}
