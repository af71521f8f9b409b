// Package config holds the churnpulse settings: defaults, an optional
// churnpulse.yaml file and CHURNPULSE_* environment overrides.
package config

import "fmt"

// Config holds all settings of the CLI and the server.
type Config struct {
	Seed     int64   `mapstructure:"seed"`
	TestSize float64 `mapstructure:"test_size"`
	Task     string  `mapstructure:"task"`

	Paths  PathsConfig
	Server ServerConfig
	Log    LogConfig
}

// PathsConfig holds input and output locations.
type PathsConfig struct {
	RawCSV       string `mapstructure:"raw_csv"`
	ArtifactsDir string `mapstructure:"artifacts_dir"`
	ReportsDir   string `mapstructure:"reports_dir"`
	FiguresDir   string `mapstructure:"figures_dir"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port for the listener.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	JSON       bool   `mapstructure:"json"`
}
