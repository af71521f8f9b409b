package report_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/churnpulse/report"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestRender_Classification(t *testing.T) {
	cm := [2][2]int{{50, 10}, {5, 15}}
	s := report.Summary{
		Task:      "classification",
		Model:     "LogisticRegression(class_weight=balanced)",
		Target:    "Churn",
		RunID:     "run-1",
		Seed:      42,
		NTrain:    320,
		NTest:     80,
		Metrics:   map[string]float64{"roc_auc": 0.8421, "precision": 0.6, "recall": 0.75, "f1": 2.0 / 3},
		Confusion: &cm,
		Threshold: 0.5,
		Figures: []report.Figure{
			{Title: "ROC curve", Path: "../figures/roc_curve.png"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, s))
	md := buf.String()

	assert.True(t, strings.HasPrefix(md, "# ChurnPulse Report\n"))
	assert.Contains(t, md, "## Metrics (holdout set)")
	assert.Contains(t, md, "- **ROC-AUC:** 0.842")
	assert.Contains(t, md, "- **F1:** 0.667")
	assert.Contains(t, md, "## Confusion matrix (threshold=0.50)")
	assert.Contains(t, md, "[[50, 10], [5, 15]]")
	assert.Contains(t, md, "| actual 1 | 5 | 15 |")
	assert.Contains(t, md, "## Interpretation (2 lines)")
	assert.Contains(t, md, "![ROC curve](../figures/roc_curve.png)")
	assert.Contains(t, md, "logistic regression")
	assert.NotContains(t, md, "RMSE")
}

func TestRender_Regression(t *testing.T) {
	s := report.Summary{
		Task:    "regression",
		Model:   "RandomForestRegressor(n_estimators=300)",
		Target:  "PRICE",
		Metrics: map[string]float64{"rmse": 3.21, "mae": 2.1, "r2": 0.87},
	}

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, s))
	md := buf.String()

	assert.Contains(t, md, "- **RMSE:** 3.210")
	assert.Contains(t, md, "- **R²:** 0.870")
	assert.NotContains(t, md, "Confusion matrix")
	assert.NotContains(t, md, "## Figures")
	assert.Contains(t, md, "random forest")
}

func TestRender_MissingMetric(t *testing.T) {
	cm := [2][2]int{}
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, report.Summary{Confusion: &cm, Metrics: map[string]float64{}}))
	assert.Contains(t, buf.String(), "- **ROC-AUC:** n/a")
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, report.Write(path, report.Summary{Metrics: map[string]float64{"rmse": 1}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# ChurnPulse Report")
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic), "%s is not a PNG", path)
}

func TestFigures(t *testing.T) {
	dir := t.TempDir()

	roc := filepath.Join(dir, report.ROCFigure)
	require.NoError(t, report.PlotROC([]float64{0, 0, 0.5, 1}, []float64{0, 0.5, 1, 1}, 0.875, roc))
	assertPNG(t, roc)

	cm := filepath.Join(dir, report.ConfusionFigure)
	require.NoError(t, report.PlotConfusion([2][2]int{{40, 8}, {6, 16}}, cm))
	assertPNG(t, cm)

	// equal counts must not break the colour scale
	flat := filepath.Join(dir, "flat.png")
	require.NoError(t, report.PlotConfusion([2][2]int{{3, 3}, {3, 3}}, flat))
	assertPNG(t, flat)

	pva := filepath.Join(dir, report.PredictedActualFigure)
	require.NoError(t, report.PlotPredictedVsActual([]float64{10, 20, 30}, []float64{12, 19, 33}, pva))
	assertPNG(t, pva)
}

func TestFigures_InvalidInput(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, report.PlotROC([]float64{0}, []float64{0}, 0.5, filepath.Join(dir, "a.png")))
	assert.Error(t, report.PlotPredictedVsActual(nil, nil, filepath.Join(dir, "b.png")))
	assert.Error(t, report.PlotPredictedVsActual([]float64{1}, []float64{1, 2}, filepath.Join(dir, "c.png")))
}
