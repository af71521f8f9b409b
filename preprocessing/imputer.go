package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/churnpulse/core/model"
	"github.com/ezoic/churnpulse/dataset"
	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
)

// Imputation strategies.
const (
	StrategyMedian       = "median"
	StrategyMean         = "mean"
	StrategyConstant     = "constant"
	StrategyMostFrequent = "most_frequent"
)

// SimpleImputer replaces NaN entries of a numeric matrix with a per-column
// statistic learned during Fit.
type SimpleImputer struct {
	model.BaseEstimator

	// Strategy is one of "median", "mean" or "constant".
	Strategy string

	// FillValue is used by the "constant" strategy.
	FillValue float64

	// Statistics は各特徴量の補完値
	Statistics []float64

	NFeatures int
}

// NewSimpleImputer creates a numeric imputer.
//
// Parameters:
//   - strategy: "median", "mean" or "constant"
//
// A column with no observed value during Fit is imputed with 0.
func NewSimpleImputer(strategy string) *SimpleImputer {
	return &SimpleImputer{Strategy: strategy}
}

// Fit learns the fill value of every column, skipping NaN entries.
func (s *SimpleImputer) Fit(X mat.Matrix) (err error) {
	defer cpErrors.Recover(&err, "SimpleImputer.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return cpErrors.NewModelError("SimpleImputer.Fit", "empty data", cpErrors.ErrEmptyData)
	}

	switch s.Strategy {
	case StrategyMedian, StrategyMean, StrategyConstant:
	default:
		return cpErrors.NewValidationError("strategy", "must be median, mean or constant", s.Strategy)
	}

	s.NFeatures = c
	s.Statistics = make([]float64, c)
	observed := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		observed = observed[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}

		switch {
		case s.Strategy == StrategyConstant:
			s.Statistics[j] = s.FillValue
		case len(observed) == 0:
			s.Statistics[j] = 0
		case s.Strategy == StrategyMean:
			s.Statistics[j] = stat.Mean(observed, nil)
		default:
			s.Statistics[j] = dataset.Median(observed)
		}
	}

	s.SetFitted()
	return nil
}

// Transform returns a copy of X with NaN entries replaced.
func (s *SimpleImputer) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer cpErrors.Recover(&err, "SimpleImputer.Transform")
	if !s.IsFitted() {
		return nil, cpErrors.NewNotFittedError("SimpleImputer", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, cpErrors.NewDimensionError("SimpleImputer.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		if math.IsNaN(v) {
			return s.Statistics[j]
		}
		return v
	}, X)
	return result, nil
}

// FitTransform fits the imputer and fills X in one step.
func (s *SimpleImputer) FitTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// CategoricalImputer replaces missing categorical cells with the most frequent
// value seen during Fit. Ties go to the lexicographically smallest value.
type CategoricalImputer struct {
	model.BaseEstimator

	// MissingValue marks a missing cell in the input rows.
	MissingValue string

	// Fill は各特徴量の最頻値
	Fill []string

	NFeatures int
}

// NewCategoricalImputer creates a most-frequent imputer treating cells equal to
// missing as absent.
func NewCategoricalImputer(missing string) *CategoricalImputer {
	return &CategoricalImputer{MissingValue: missing}
}

// Fit learns the most frequent value of every column.
func (c *CategoricalImputer) Fit(data [][]string) (err error) {
	defer cpErrors.Recover(&err, "CategoricalImputer.Fit")
	if len(data) == 0 || len(data[0]) == 0 {
		return cpErrors.NewModelError("CategoricalImputer.Fit", "empty data", cpErrors.ErrEmptyData)
	}

	c.NFeatures = len(data[0])
	c.Fill = make([]string, c.NFeatures)
	for j := 0; j < c.NFeatures; j++ {
		counts := make(map[string]int)
		for i, row := range data {
			if len(row) != c.NFeatures {
				return cpErrors.NewDimensionError("CategoricalImputer.Fit", c.NFeatures, len(row), i)
			}
			if row[j] != c.MissingValue {
				counts[row[j]]++
			}
		}

		best, bestCount := c.MissingValue, 0
		for v, n := range counts {
			if n > bestCount || (n == bestCount && v < best) {
				best, bestCount = v, n
			}
		}
		c.Fill[j] = best
	}

	c.SetFitted()
	return nil
}

// Transform returns a copy of data with missing cells filled.
func (c *CategoricalImputer) Transform(data [][]string) (_ [][]string, err error) {
	defer cpErrors.Recover(&err, "CategoricalImputer.Transform")
	if !c.IsFitted() {
		return nil, cpErrors.NewNotFittedError("CategoricalImputer", "Transform")
	}

	out := make([][]string, len(data))
	for i, row := range data {
		if len(row) != c.NFeatures {
			return nil, cpErrors.NewDimensionError("CategoricalImputer.Transform", c.NFeatures, len(row), 1)
		}
		filled := make([]string, len(row))
		for j, v := range row {
			if v == c.MissingValue {
				v = c.Fill[j]
			}
			filled[j] = v
		}
		out[i] = filled
	}
	return out, nil
}

// FitTransform fits the imputer and fills data in one step.
func (c *CategoricalImputer) FitTransform(data [][]string) ([][]string, error) {
	if err := c.Fit(data); err != nil {
		return nil, err
	}
	return c.Transform(data)
}
