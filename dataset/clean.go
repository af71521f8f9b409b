package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/churnpulse/pkg/errors"
)

// RegressionTarget is the default label column of the regression variant.
const RegressionTarget = "PRICE"

// CleanNumeric prepares a housing-style frame for regression:
//
//   - column names are trimmed and columns named "Unnamed..." are dropped
//   - every column is coerced to numeric, unparseable cells become missing
//   - rows with a missing target are dropped
//   - missing feature cells are filled with the column median
//
// An empty target means RegressionTarget. The returned frame has only numeric
// columns and no missing cells outside the target.
func CleanNumeric(f *Frame, target string) (*Frame, error) {
	if target == "" {
		target = RegressionTarget
	}

	var columns []*Column
	for _, c := range f.Columns() {
		name := strings.TrimSpace(c.Name)
		if strings.HasPrefix(name, "Unnamed") {
			continue
		}
		values := make([]float64, c.Len())
		for i := range c.Cells {
			values[i], _ = c.Float(i)
		}
		columns = append(columns, NewNumericColumn(name, values))
	}

	var targetCol *Column
	for _, c := range columns {
		if c.Name == target {
			targetCol = c
			break
		}
	}
	if targetCol == nil {
		names := make([]string, len(columns))
		for i, c := range columns {
			names[i] = c.Name
		}
		return nil, errors.NewDataValidationError("CleanNumeric",
			fmt.Sprintf("expected target column %q in CSV, found columns", target), names...)
	}

	keep := make([]int, 0, targetCol.Len())
	for i := range targetCol.Cells {
		if _, ok := targetCol.Float(i); ok {
			keep = append(keep, i)
		}
	}

	cleaned := make([]*Column, len(columns))
	for j, c := range columns {
		values := make([]float64, len(keep))
		for i, r := range keep {
			values[i], _ = c.Float(r)
		}
		if c.Name != target {
			fillMedian(values)
		}
		cleaned[j] = NewNumericColumn(c.Name, values)
	}

	out, err := NewFrame(cleaned...)
	if err != nil {
		return nil, err
	}
	if len(cleaned) == 0 {
		out.nRows = len(keep)
	}
	return out, nil
}

// Median returns the median of the non-NaN values, or NaN when there are none.
func Median(values []float64) float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return math.NaN()
	}
	sort.Float64s(present)
	n := len(present)
	if n%2 == 1 {
		return present[n/2]
	}
	return stat.Mean(present[n/2-1:n/2+1], nil)
}

// fillMedian replaces NaN in place. An all-missing column stays missing.
func fillMedian(values []float64) {
	m := Median(values)
	if math.IsNaN(m) {
		return
	}
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = m
		}
	}
}
