package metrics_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/churnpulse/metrics"
	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
)

func vec(v ...float64) *mat.VecDense { return mat.NewVecDense(len(v), v) }

func TestROCCurve(t *testing.T) {
	fpr, tpr, thr, err := metrics.ROCCurve(vec(0, 0, 1, 1), vec(0.1, 0.4, 0.35, 0.8))
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 0.5, 0.5, 1}, fpr)
	assert.Equal(t, []float64{0, 0.5, 0.5, 1, 1}, tpr)
	require.Len(t, thr, 5)
	assert.True(t, math.IsInf(thr[0], 1))
	assert.Equal(t, []float64{0.8, 0.4, 0.35, 0.1}, thr[1:])
}

func TestROCCurve_TiedScoresShareOnePoint(t *testing.T) {
	fpr, tpr, _, err := metrics.ROCCurve(vec(0, 1, 0, 1), vec(0.5, 0.5, 0.5, 0.5))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, fpr)
	assert.Equal(t, []float64{0, 1}, tpr)
}

func TestROCCurve_SingleClass(t *testing.T) {
	_, _, _, err := metrics.ROCCurve(vec(1, 1, 1), vec(0.2, 0.5, 0.9))
	var vErr *cpErrors.ValueError
	assert.True(t, errors.As(err, &vErr))
}

func TestAUC(t *testing.T) {
	tests := []struct {
		name  string
		y     *mat.VecDense
		score *mat.VecDense
		want  float64
	}{
		{"perfect", vec(0, 0, 1, 1), vec(0.1, 0.2, 0.8, 0.9), 1.0},
		{"inverted", vec(0, 0, 1, 1), vec(0.9, 0.8, 0.2, 0.1), 0.0},
		{"one misordered pair", vec(0, 0, 1, 1), vec(0.1, 0.4, 0.35, 0.8), 0.75},
		{"all tied", vec(0, 1, 0, 1), vec(0.5, 0.5, 0.5, 0.5), 0.5},
		{"single class", vec(0, 0, 0), vec(0.1, 0.2, 0.3), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := metrics.AUC(tt.y, tt.score)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestAUC_InvalidInput(t *testing.T) {
	_, err := metrics.AUC(vec(0, 2), vec(0.1, 0.2))
	var vErr *cpErrors.ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = metrics.AUC(vec(0, 1, 1), vec(0.1, 0.2))
	assert.True(t, errors.Is(err, cpErrors.ErrDimensionMismatch))

	_, err = metrics.AUC(nil, vec(0.1))
	assert.Error(t, err)
}

func TestThreshold(t *testing.T) {
	got := metrics.Threshold(vec(0.49, 0.5, 0.51, 0), 0.5)
	assert.Equal(t, []float64{0, 1, 1, 0}, got.RawVector().Data)
}

func TestClassificationScores(t *testing.T) {
	yTrue := vec(0, 0, 1, 1, 1, 0)
	yPred := vec(0, 1, 1, 0, 1, 0)

	cm, err := metrics.ConfusionMatrix(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, [2][2]int{{2, 1}, {1, 2}}, cm)

	p, err := metrics.Precision(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, p, 1e-12)

	r, err := metrics.Recall(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, r, 1e-12)

	f1, err := metrics.F1(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, f1, 1e-12)

	acc, err := metrics.Accuracy(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 4.0/6, acc, 1e-12)
}

func TestClassificationScores_ZeroDivision(t *testing.T) {
	// nothing predicted positive
	yTrue := vec(0, 1, 0)
	yPred := vec(0, 0, 0)

	p, err := metrics.Precision(yTrue, yPred)
	require.NoError(t, err)
	assert.Zero(t, p)

	f1, err := metrics.F1(yTrue, yPred)
	require.NoError(t, err)
	assert.Zero(t, f1)

	// no positives at all
	r, err := metrics.Recall(vec(0, 0), vec(0, 0))
	require.NoError(t, err)
	assert.Zero(t, r)
}

func TestRegressionScores(t *testing.T) {
	yTrue := vec(3, -0.5, 2, 7)
	yPred := vec(2.5, 0.0, 2, 8)

	mse, err := metrics.MSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.375, mse, 1e-12)

	rmse, err := metrics.RMSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(0.375), rmse, 1e-12)

	mae, err := metrics.MAE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mae, 1e-12)

	r2, err := metrics.R2Score(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.9486081370449679, r2, 1e-9)
}

func TestR2Score_ConstantTarget(t *testing.T) {
	_, err := metrics.R2Score(vec(2, 2, 2), vec(1, 2, 3))
	assert.Error(t, err)
}
