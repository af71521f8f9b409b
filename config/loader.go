package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/ezoic/churnpulse/pipeline"
	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. CHURNPULSE_SERVER_PORT.
const EnvPrefix = "CHURNPULSE"

// Load builds the configuration. When file is empty, churnpulse.yaml is looked
// up in the working directory and ./config and skipped if absent; an explicit
// file must exist.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		if _, err := os.Stat(file); err != nil {
			return nil, cpErrors.NewMissingArtifactError("config file", file, err)
		}
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, cpErrors.NewConfigurationError("config.Load",
				fmt.Sprintf("cannot read %s: %v", file, err))
		}
	} else {
		v.SetConfigName("churnpulse")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, cpErrors.NewConfigurationError("config.Load", err.Error())
			}
		}
	}

	var cfg Config

	cfg.Seed = v.GetInt64("seed")
	cfg.TestSize = v.GetFloat64("test_size")
	cfg.Task = v.GetString("task")

	// Paths
	cfg.Paths.RawCSV = v.GetString("paths.raw_csv")
	cfg.Paths.ArtifactsDir = v.GetString("paths.artifacts_dir")
	cfg.Paths.ReportsDir = v.GetString("paths.reports_dir")
	cfg.Paths.FiguresDir = v.GetString("paths.figures_dir")

	// Server
	cfg.Server.Host = v.GetString("server.host")
	cfg.Server.Port = v.GetInt("server.port")

	// Logging
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.File = v.GetString("log.file")
	cfg.Log.MaxSizeMB = v.GetInt("log.max_size_mb")
	cfg.Log.MaxBackups = v.GetInt("log.max_backups")
	cfg.Log.JSON = v.GetBool("log.json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("seed", 42)
	v.SetDefault("test_size", 0.2)
	v.SetDefault("task", string(pipeline.TaskClassification))

	// Path defaults
	v.SetDefault("paths.raw_csv", "data/raw/telco_churn.csv")
	v.SetDefault("paths.artifacts_dir", "artifacts")
	v.SetDefault("paths.reports_dir", "reports")
	v.SetDefault("paths.figures_dir", "figures")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.json", false)
}

// Validate reports the first invalid setting as a ConfigurationError.
func (c *Config) Validate() error {
	if !(c.TestSize > 0 && c.TestSize < 1) {
		return cpErrors.NewConfigurationError("config", fmt.Sprintf("test_size must be in (0, 1), got %v", c.TestSize))
	}
	if _, err := pipeline.ParseTask(c.Task); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return cpErrors.NewConfigurationError("config", fmt.Sprintf("server.port must be in 1..65535, got %d", c.Server.Port))
	}
	if c.Paths.ArtifactsDir == "" || c.Paths.ReportsDir == "" {
		return cpErrors.NewConfigurationError("config", "paths.artifacts_dir and paths.reports_dir must not be empty")
	}
	return nil
}
