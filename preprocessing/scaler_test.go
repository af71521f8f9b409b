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

const epsilon = 1e-10 // Tolerance for floating-point comparisons

func TestStandardScaler_FitTransform(t *testing.T) {
	// tenure, MonthlyCharges
	X := mat.NewDense(3, 2, []float64{
		1, 20,
		2, 50,
		3, 80,
	})

	scaler := preprocessing.NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{2, 50}, scaler.Mean, epsilon)
	assert.InDeltaSlice(t, []float64{math.Sqrt(2.0 / 3.0), math.Sqrt(600)}, scaler.Scale, epsilon)

	for j := 0; j < 2; j++ {
		assert.InDelta(t, -1.224744871391589, scaled.At(0, j), epsilon)
		assert.InDelta(t, 0.0, scaled.At(1, j), epsilon)
		assert.InDelta(t, 1.224744871391589, scaled.At(2, j), epsilon)
	}

	back, err := scaler.InverseTransform(scaled)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-9))
}

func TestStandardScaler_Options(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{2, 6})

	tests := []struct {
		name      string
		withMean  bool
		withStd   bool
		wantFirst float64
	}{
		{"both", true, true, -1},
		{"mean only", true, false, -2},
		{"std only", false, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scaled, err := preprocessing.NewStandardScaler(tt.withMean, tt.withStd).FitTransform(X)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantFirst, scaled.At(0, 0), epsilon)
		})
	}
}

func TestStandardScaler_ConstantFeature(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		5, 1,
		5, 2,
		5, 3,
	})

	scaler := preprocessing.NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.Equal(t, 1.0, scaler.Scale[0])
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 0.0, scaled.At(i, 0), epsilon)
	}
}

func TestStandardScaler_Errors(t *testing.T) {
	scaler := preprocessing.NewStandardScalerDefault()
	X := mat.NewDense(1, 2, []float64{1, 2})

	_, err := scaler.Transform(X)
	assert.True(t, errors.Is(err, cpErrors.ErrNotFitted))

	require.NoError(t, scaler.Fit(X))
	_, err = scaler.Transform(mat.NewDense(1, 3, nil))
	assert.True(t, errors.Is(err, cpErrors.ErrDimensionMismatch))

	err = scaler.Fit(&mat.Dense{})
	assert.True(t, errors.Is(err, cpErrors.ErrEmptyData))
}

func TestStandardScaler_String(t *testing.T) {
	scaler := preprocessing.NewStandardScaler(true, false)
	assert.Equal(t, "StandardScaler(with_mean=true, with_std=false)", scaler.String())

	require.NoError(t, scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	assert.Equal(t, "StandardScaler(with_mean=true, with_std=false, n_features=2)", scaler.String())
}
