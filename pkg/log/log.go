// Package log provides structured logging for churnpulse on top of zerolog.
//
// Two styles are available. Components hold a key/value Logger obtained from
// GetLoggerWithName and log with the shared key constants:
//
//	logger := log.GetLoggerWithName("train")
//	logger.Info("Training started", log.SamplesKey, n, log.FeaturesKey, d)
//
// Command entry points use the zerolog event API directly through GetLogger:
//
//	log.GetLogger().Error().Err(err).Str("csv", path).Msg("training failed")
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Standard field keys.
const (
	ComponentKey  = "component"
	ModelNameKey  = "model"
	OperationKey  = "operation"
	PhaseKey      = "phase"
	SamplesKey    = "samples"
	FeaturesKey   = "features"
	PredsKey      = "predictions"
	DurationMsKey = "duration_ms"
	PathKey       = "path"
	TargetKey     = "target"
	TaskKey       = "task"
	RunIDKey      = "run_id"
	IterationsKey = "iterations"
)

// Standard field values.
const (
	OperationFit       = "fit"
	OperationTransform = "transform"
	OperationPredict   = "predict"
	OperationEvaluate  = "evaluate"
	OperationPersist   = "persist"
	OperationLoad      = "load"

	PhaseTraining   = "training"
	PhaseEvaluation = "evaluation"
	PhaseInference  = "inference"
)

// Logger is a leveled key/value logger.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

// LoggerProvider hands out named loggers sharing one configuration.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level zerolog.Level)
}

// Options configures the global logger.
type Options struct {
	Level string
	// File enables a rotating log file in addition to stderr. Empty disables it.
	File       string
	MaxSizeMB  int
	MaxBackups int
	// JSON writes raw JSON to stderr instead of the console format.
	JSON bool
}

var (
	mu       sync.RWMutex
	global   = zerolog.New(os.Stderr).With().Timestamp().Logger()
	provider LoggerProvider
)

// ToLogLevel parses a level name. Unknown names map to info.
func ToLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// SetupLogger configures the global logger for the console at the given level.
func SetupLogger(level string) {
	_ = SetupLoggerWithOptions(Options{Level: level})
}

// SetupLoggerWithOptions configures the global logger. The returned closer releases
// the log file, if any.
func SetupLoggerWithOptions(opts Options) io.Closer {
	var writers []io.Writer
	if opts.JSON {
		writers = append(writers, os.Stderr)
	} else {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		writers = append(writers, rotating)
		closer = rotating
	}

	lvl := ToLogLevel(opts.Level)
	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(lvl).With().Timestamp().Logger()

	mu.Lock()
	global = l
	provider = &zerologProvider{base: l}
	mu.Unlock()

	zerolog.SetGlobalLevel(lvl)
	return closer
}

// SetOutput redirects the global logger. Used by tests to capture output.
func SetOutput(w io.Writer) {
	l := zerolog.New(w).With().Timestamp().Logger()
	mu.Lock()
	global = l
	provider = &zerologProvider{base: l}
	mu.Unlock()
}

// GetLogger returns the global zerolog logger.
func GetLogger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := global
	return &l
}

// GetLoggerWithName returns a key/value logger tagged with the component name.
func GetLoggerWithName(name string) Logger {
	return currentProvider().GetLoggerWithName(name)
}

// LogError logs err at error level with its stack detail.
func LogError(err error, msg string, fields ...interface{}) {
	if err == nil {
		return
	}
	GetLogger().Error().
		Err(err).
		Str("detail", fmt.Sprintf("%+v", err)).
		Fields(fields).
		Msg(msg)
}

func currentProvider() LoggerProvider {
	mu.RLock()
	p := provider
	base := global
	mu.RUnlock()
	if p != nil {
		return p
	}
	return &zerologProvider{base: base}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
