package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/churnpulse/config"
	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 0.2, cfg.TestSize)
	assert.Equal(t, "classification", cfg.Task)
	assert.Equal(t, "artifacts", cfg.Paths.ArtifactsDir)
	assert.Equal(t, "reports", cfg.Paths.ReportsDir)
	assert.Equal(t, "figures", cfg.Paths.FiguresDir)
	assert.Equal(t, "data/raw/telco_churn.csv", cfg.Paths.RawCSV)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Log.File)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := `seed: 7
test_size: 0.25
paths:
  artifacts_dir: out/artifacts
server:
  port: 9000
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "churnpulse.yaml"), []byte(yaml), 0o644))
	t.Setenv("CHURNPULSE_SERVER_PORT", "9100")
	t.Setenv("CHURNPULSE_TASK", "regression")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 0.25, cfg.TestSize)
	assert.Equal(t, "out/artifacts", cfg.Paths.ArtifactsDir)
	assert.Equal(t, "reports", cfg.Paths.ReportsDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	// environment wins over the file
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "regression", cfg.Task)
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: 3\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cfg.Seed)

	_, err = config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, errors.Is(err, cpErrors.ErrMissingArtifact))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"test size", "CHURNPULSE_TEST_SIZE", "1.5"},
		{"task", "CHURNPULSE_TASK", "clustering"},
		{"port", "CHURNPULSE_SERVER_PORT", "70000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.env, tt.val)
			_, err := config.Load("")
			assert.True(t, errors.Is(err, cpErrors.ErrConfiguration), "got %v", err)
		})
	}
}
