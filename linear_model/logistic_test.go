package linear_model_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/churnpulse/linear_model"
	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
)

// makeChurnLike draws two features whose sum drives the log-odds; about
// positiveRate of the labels are 1.
func makeChurnLike(n int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		a, b := rng.NormFloat64(), rng.NormFloat64()
		X.Set(i, 0, a)
		X.Set(i, 1, b)
		logit := 2*a - 1.5*b - 1
		if rng.Float64() < 1/(1+math.Exp(-logit)) {
			y.Set(i, 0, 1)
		}
	}
	return X, y
}

func TestLogisticRegression_FitPredict(t *testing.T) {
	X, y := makeChurnLike(400, 1)

	lr := linear_model.NewLogisticRegression(linear_model.WithLRMaxIter(2000))
	require.NoError(t, lr.Fit(X, y))

	assert.True(t, lr.IsFitted())
	assert.Equal(t, []int{0, 1}, lr.Classes())
	assert.Greater(t, lr.Coef[0], 0.5)
	assert.Less(t, lr.Coef[1], -0.5)

	acc, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, acc, 0.75)

	proba, err := lr.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	require.Equal(t, 400, r)
	require.Equal(t, 2, c)

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-12)
		want := 0.0
		if proba.At(i, 1) >= 0.5 {
			want = 1
		}
		assert.Equal(t, want, pred.At(i, 0))
	}
}

func TestLogisticRegression_Deterministic(t *testing.T) {
	X, y := makeChurnLike(200, 2)

	a := linear_model.NewLogisticRegression(linear_model.WithLRClassWeight(linear_model.ClassWeightBalanced))
	b := linear_model.NewLogisticRegression(linear_model.WithLRClassWeight(linear_model.ClassWeightBalanced))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	assert.Equal(t, a.Coef, b.Coef)
	assert.Equal(t, a.Intercept, b.Intercept)
}

func TestLogisticRegression_BalancedRaisesMinorityScores(t *testing.T) {
	// the logit offset of -1 makes the positive class the minority
	X, y := makeChurnLike(400, 3)

	plain := linear_model.NewLogisticRegression()
	balanced := linear_model.NewLogisticRegression(linear_model.WithLRClassWeight(linear_model.ClassWeightBalanced))
	require.NoError(t, plain.Fit(X, y))
	require.NoError(t, balanced.Fit(X, y))

	assert.Greater(t, balanced.Intercept, plain.Intercept)
}

func TestLogisticRegression_Errors(t *testing.T) {
	lr := linear_model.NewLogisticRegression()

	_, err := lr.PredictProba(mat.NewDense(1, 2, nil))
	assert.True(t, errors.Is(err, cpErrors.ErrNotFitted))

	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	err = lr.Fit(X, mat.NewDense(3, 1, []float64{1, 1, 1}))
	assert.Error(t, err)

	err = lr.Fit(X, mat.NewDense(2, 1, nil))
	assert.True(t, errors.Is(err, cpErrors.ErrDimensionMismatch))

	bad := linear_model.NewLogisticRegression(linear_model.WithLRC(0))
	err = bad.Fit(X, mat.NewDense(3, 1, []float64{0, 1, 0}))
	var vErr *cpErrors.ValidationError
	assert.True(t, errors.As(err, &vErr))

	require.NoError(t, lr.Fit(X, mat.NewDense(3, 1, []float64{0, 1, 1})))
	_, err = lr.Predict(mat.NewDense(1, 2, nil))
	assert.True(t, errors.Is(err, cpErrors.ErrDimensionMismatch))
}
