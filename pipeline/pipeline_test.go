package pipeline_test

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/churnpulse/dataset"
	"github.com/ezoic/churnpulse/pipeline"
	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
)

var churnRoles = []dataset.ColumnRole{
	{Name: "tenure", Role: dataset.RoleNumeric},
	{Name: "MonthlyCharges", Role: dataset.RoleNumeric},
	{Name: "Contract", Role: dataset.RoleCategorical},
}

// churnRecords produces customers where short month-to-month contracts churn.
func churnRecords(n int, seed uint64) (dataset.Records, []float64) {
	rng := rand.New(rand.NewPCG(seed, seed))
	contracts := []string{"Month-to-month", "One year", "Two year"}
	recs := make(dataset.Records, n)
	y := make([]float64, n)
	for i := range recs {
		tenure := rng.IntN(72)
		contract := contracts[rng.IntN(3)]
		charges := 20 + 100*rng.Float64()
		recs[i] = dataset.Record{
			"tenure":         fmt.Sprint(tenure),
			"MonthlyCharges": fmt.Sprintf("%.2f", charges),
			"Contract":       contract,
		}
		risk := 0.1
		if contract == "Month-to-month" && tenure < 24 {
			risk = 0.85
		}
		if rng.Float64() < risk {
			y[i] = 1
		}
	}
	return recs, y
}

func TestParseTask(t *testing.T) {
	task, err := pipeline.ParseTask(" Regression ")
	require.NoError(t, err)
	assert.Equal(t, pipeline.TaskRegression, task)

	_, err = pipeline.ParseTask("clustering")
	assert.True(t, errors.Is(err, cpErrors.ErrConfiguration))
}

func TestClassificationPipeline(t *testing.T) {
	recs, y := churnRecords(300, 1)

	p := pipeline.NewClassification("Churn", churnRoles)
	require.NoError(t, p.Fit(recs, y))
	assert.True(t, p.IsFitted())

	assert.Equal(t, []string{
		"tenure", "MonthlyCharges",
		"Contract_Month-to-month", "Contract_One year", "Contract_Two year",
	}, p.FeatureNames())
	assert.Contains(t, p.Describe(), "class_weight=balanced")
	assert.Contains(t, p.Describe(), "max_iter=2000")

	risky := dataset.Records{
		{"tenure": "2", "MonthlyCharges": "95", "Contract": "Month-to-month"},
		{"tenure": "70", "MonthlyCharges": "25", "Contract": "Two year"},
	}
	proba, err := p.PredictProba(risky)
	require.NoError(t, err)
	require.Len(t, proba, 2)
	assert.Greater(t, proba[0], proba[1])
	for _, v := range proba {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}

	labels, err := p.Predict(risky)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, labels)
}

func TestClassificationPipeline_UnknownAndMissingInputs(t *testing.T) {
	recs, y := churnRecords(200, 2)
	p := pipeline.NewClassification("Churn", churnRoles)
	require.NoError(t, p.Fit(recs, y))

	odd := dataset.Records{
		{"tenure": "", "Contract": "Three year"},
		{"tenure": "abc", "MonthlyCharges": "NaN"},
	}
	proba, err := p.PredictProba(odd)
	require.NoError(t, err)
	assert.Len(t, proba, 2)
}

func TestPipeline_SaveLoad(t *testing.T) {
	recs, y := churnRecords(200, 3)
	p := pipeline.NewClassification("Churn", churnRoles)
	require.NoError(t, p.Fit(recs, y))

	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, p.Save(path))

	loaded, err := pipeline.Load(path)
	require.NoError(t, err)
	assert.Equal(t, pipeline.TaskClassification, loaded.Task)
	assert.Equal(t, "Churn", loaded.Target)
	assert.Equal(t, churnRoles, loaded.Roles)

	want, err := p.PredictProba(recs)
	require.NoError(t, err)
	got, err := loaded.PredictProba(recs)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-12)
}

func TestPipeline_LoadMissing(t *testing.T) {
	_, err := pipeline.Load(filepath.Join(t.TempDir(), "absent.gob"))
	var missing *cpErrors.MissingArtifactError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "model", missing.Kind)
}

func TestPipeline_NotFitted(t *testing.T) {
	p := pipeline.NewClassification("Churn", churnRoles)

	_, err := p.PredictProba(dataset.Records{{"tenure": "1"}})
	assert.True(t, errors.Is(err, cpErrors.ErrNotFitted))

	err = p.Save(filepath.Join(t.TempDir(), "model.gob"))
	assert.True(t, errors.Is(err, cpErrors.ErrNotFitted))
}

func TestPipeline_LengthMismatch(t *testing.T) {
	recs, _ := churnRecords(10, 4)
	p := pipeline.NewClassification("Churn", churnRoles)
	err := p.Fit(recs, make([]float64, 9))
	assert.True(t, errors.Is(err, cpErrors.ErrDimensionMismatch))
}

func TestRegressionPipeline(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	n := 150
	recs := make(dataset.Records, n)
	y := make([]float64, n)
	for i := range recs {
		rm := 4 + 4*rng.Float64()
		lstat := 2 + 30*rng.Float64()
		recs[i] = dataset.Record{"RM": fmt.Sprint(rm), "LSTAT": fmt.Sprint(lstat)}
		y[i] = 6*rm - 0.6*lstat
	}
	roles := []dataset.ColumnRole{
		{Name: "RM", Role: dataset.RoleNumeric},
		{Name: "LSTAT", Role: dataset.RoleNumeric},
	}

	p := pipeline.NewRegression("PRICE", roles, 42)
	require.NoError(t, p.Fit(recs, y))
	assert.Contains(t, p.Describe(), "n_estimators=300")

	pred, err := p.Predict(recs)
	require.NoError(t, err)
	require.Len(t, pred, n)
	for i := range pred {
		assert.InDelta(t, y[i], pred[i], 8)
	}

	_, err = p.PredictProba(recs)
	assert.True(t, errors.Is(err, cpErrors.ErrConfiguration))

	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, p.Save(path))
	loaded, err := pipeline.Load(path)
	require.NoError(t, err)
	again, err := loaded.Predict(recs)
	require.NoError(t, err)
	assert.Equal(t, pred, again)
}
