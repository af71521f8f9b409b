package model_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/churnpulse/core/model"
	"github.com/ezoic/churnpulse/pkg/errors"
)

type fittedScaler struct {
	model.BaseEstimator
	Tracker *model.StateManager
	Mean    []float64
	Scale   []float64
}

func newFittedScaler() *fittedScaler {
	s := &fittedScaler{
		Tracker: model.NewStateManager(),
		Mean:    []float64{1.5, -2.25},
		Scale:   []float64{0.5, 3},
	}
	s.SetFitted()
	s.Tracker.SetFitted()
	s.Tracker.SetDimensions(2, 40)
	return s
}

func TestSaveLoadModel(t *testing.T) {
	original := newFittedScaler()
	path := filepath.Join(t.TempDir(), "model.gob")

	require.NoError(t, model.SaveModel(original, path))

	loaded := &fittedScaler{}
	require.NoError(t, model.LoadModel(loaded, path))

	assert.True(t, loaded.IsFitted())
	assert.True(t, loaded.Tracker.IsFitted())
	nFeatures, nSamples := loaded.Tracker.GetDimensions()
	assert.Equal(t, 2, nFeatures)
	assert.Equal(t, 40, nSamples)
	assert.Equal(t, original.Mean, loaded.Mean)
	assert.Equal(t, original.Scale, loaded.Scale)
}

func TestSaveLoadModelToWriter(t *testing.T) {
	original := newFittedScaler()

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(original, &buf))

	loaded := &fittedScaler{}
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))
	assert.Equal(t, original.Mean, loaded.Mean)
}

func TestLoadModelFileNotFound(t *testing.T) {
	err := model.LoadModel(&fittedScaler{}, filepath.Join(t.TempDir(), "nonexistent_file.gob"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingArtifact))
}

func TestSaveModelInvalidPath(t *testing.T) {
	err := model.SaveModel(newFittedScaler(), "/invalid/path/model.gob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create file")
}

func TestLoadModelCorrupt(t *testing.T) {
	err := model.LoadModelFromReader(&fittedScaler{}, bytes.NewBufferString("not gob"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode model")
}
