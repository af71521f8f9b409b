package errors_test

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
)

// TestErrorWrappingCompatibility tests Go 1.13+ error wrapping with our custom types
func TestErrorWrappingCompatibility(t *testing.T) {
	originalErr := cpErrors.NewNotFittedError("Pipeline", "PredictProba")

	wrappedErr := fmt.Errorf("predict handler: %w", originalErr)

	assert.True(t, errors.Is(wrappedErr, originalErr))
	assert.True(t, errors.Is(wrappedErr, cpErrors.ErrNotFitted))

	var notFittedErr *cpErrors.NotFittedError
	require.True(t, errors.As(wrappedErr, &notFittedErr))
	assert.Equal(t, "Pipeline", notFittedErr.ModelName)
}

func TestCombinedErrorTypes(t *testing.T) {
	stdErr := fmt.Errorf("standard error")

	customErr := cpErrors.NewModelError("TestOp", "test failure", stdErr)
	wrappedErr := cpErrors.Wrap(customErr, "operation context")

	assert.True(t, errors.Is(wrappedErr, stdErr))

	var modelErr *cpErrors.ModelError
	require.True(t, errors.As(wrappedErr, &modelErr))
	assert.Equal(t, stdErr, modelErr.Unwrap())
}

func TestSentinelErrors(t *testing.T) {
	err := cpErrors.NewModelError("TestOp", "empty data", cpErrors.ErrEmptyData)
	assert.True(t, errors.Is(err, cpErrors.ErrEmptyData))

	wrappedErr := fmt.Errorf("preprocessing failed: %w", err)
	assert.True(t, errors.Is(wrappedErr, cpErrors.ErrEmptyData))
}

func TestDataValidationErrorValues(t *testing.T) {
	err := cpErrors.NewDataValidationError("NormalizeLabels", "unrecognized target values", "maybe", "perhaps")

	var dvErr *cpErrors.DataValidationError
	require.True(t, errors.As(err, &dvErr))
	assert.Equal(t, []string{"maybe", "perhaps"}, dvErr.Values)
	assert.Contains(t, err.Error(), `"maybe"`)
	assert.False(t, errors.Is(err, cpErrors.ErrConfiguration))
}

func TestMissingArtifactUnwrapsCause(t *testing.T) {
	_, statErr := os.Stat("definitely/not/here.csv")
	err := cpErrors.NewMissingArtifactError("dataset", "definitely/not/here.csv", statErr)

	assert.True(t, errors.Is(err, cpErrors.ErrMissingArtifact))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRecover(t *testing.T) {
	run := func() (err error) {
		defer cpErrors.Recover(&err, "run")
		var m map[string]int
		m["boom"] = 1
		return nil
	}

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run")
}
