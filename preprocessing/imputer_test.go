package preprocessing_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/churnpulse/preprocessing"
	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
)

func TestSimpleImputer_Strategies(t *testing.T) {
	nan := math.NaN()
	X := mat.NewDense(4, 2, []float64{
		1, nan,
		nan, nan,
		3, nan,
		10, nan,
	})

	tests := []struct {
		strategy string
		want     []float64
	}{
		{preprocessing.StrategyMedian, []float64{3, 0}},
		{preprocessing.StrategyMean, []float64{14.0 / 3.0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			imputer := preprocessing.NewSimpleImputer(tt.strategy)
			filled, err := imputer.FitTransform(X)
			require.NoError(t, err)

			assert.InDeltaSlice(t, tt.want, imputer.Statistics, epsilon)
			assert.InDelta(t, tt.want[0], filled.At(1, 0), epsilon)
			assert.Equal(t, 10.0, filled.At(3, 0))
		})
	}

	constant := preprocessing.NewSimpleImputer(preprocessing.StrategyConstant)
	constant.FillValue = -1
	filled, err := constant.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, -1.0, filled.At(0, 1))
}

func TestSimpleImputer_Errors(t *testing.T) {
	_, err := preprocessing.NewSimpleImputer(preprocessing.StrategyMedian).Transform(mat.NewDense(1, 1, nil))
	assert.True(t, errors.Is(err, cpErrors.ErrNotFitted))

	err = preprocessing.NewSimpleImputer("mode").Fit(mat.NewDense(1, 1, nil))
	var vErr *cpErrors.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestCategoricalImputer(t *testing.T) {
	data := [][]string{
		{"DSL", ""},
		{"Fiber optic", ""},
		{"", ""},
		{"Fiber optic", ""},
		{"DSL", "x"},
	}
	imputer := preprocessing.NewCategoricalImputer("")
	filled, err := imputer.FitTransform(data)
	require.NoError(t, err)

	// DSL and Fiber optic tie; the smaller value wins
	assert.Equal(t, []string{"DSL", "x"}, imputer.Fill)
	assert.Equal(t, []string{"DSL", "x"}, filled[2])
	assert.Equal(t, "", data[2][0], "input is not modified")
}
