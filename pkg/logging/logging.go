// Package logging configures zerolog for dotboot.
//
// Console output goes to stderr and a copy of every entry is appended to
// dotboot.log in the state directory, so a failed bootstrap on a fresh
// machine can be diagnosed after the terminal is gone. During a run the
// pipeline stores a logger tagged with run_id and stage in the context;
// components that take a context log through FromContext and inherit those
// fields.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/paths"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Field names shared by every component.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldStage     = "stage"
	FieldOptional  = "optional"
)

// LevelFor maps the -v count to a level: WARN by default, then INFO, DEBUG
// and TRACE.
func LevelFor(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// SetupLogger configures the global logger for verbosity, writing to stderr
// and to the log file in the state directory.
func SetupLogger(verbosity int) {
	zerolog.SetGlobalLevel(LevelFor(verbosity))

	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
		// run_id is written to the log file only
		FieldsExclude: []string{FieldRunID},
	}}

	logFile := getLogFilePath()
	logFileHandle, err := setupLogFile(logFile)
	if err == nil {
		writers = append(writers, logFileHandle)
	}

	log.Logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()
	if err != nil {
		log.Warn().Err(err).Str("path", logFile).Msg("Failed to create log file, logging to console only")
	}

	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	log.Debug().Int("verbosity", verbosity).Str("logFile", logFile).Msg("Logger initialized")
}

// GetLogger returns a contextualized logger with the given name
func GetLogger(name string) zerolog.Logger {
	return log.With().Str(FieldComponent, name).Logger()
}

// WithRun tags base with a run id.
func WithRun(base zerolog.Logger, runID string) zerolog.Logger {
	return base.With().Str(FieldRunID, runID).Logger()
}

// WithStage tags a run logger with the stage being executed.
func WithStage(run zerolog.Logger, stage string, optional bool) zerolog.Logger {
	return run.With().Str(FieldStage, stage).Bool(FieldOptional, optional).Logger()
}

// NewContext stores logger in ctx for FromContext.
func NewContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// FromContext returns the run logger stored in ctx tagged with component, or
// the global component logger outside a run.
func FromContext(ctx context.Context, component string) zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
			return l.With().Str(FieldComponent, component).Logger()
		}
	}
	return GetLogger(component)
}

// LogFilePath exposes the resolved log file location for diagnostics.
func LogFilePath() string {
	return getLogFilePath()
}

// getLogFilePath returns the path to the log file.
// DOTBOOT_STATE_DIR wins, then XDG_STATE_HOME, then the platform default.
func getLogFilePath() string {
	return filepath.Join(paths.New(hostenv.FromOS()).StateDir(), paths.LogFileName)
}

func setupLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// LogCommand logs a subprocess about to start.
func LogCommand(logger zerolog.Logger, name string, args []string, dir string) {
	logger.Debug().
		Str("command", name).
		Strs("args", args).
		Str("dir", dir).
		Msg("Executing command")
}

// LogStage logs the start of a stage and returns a function that logs its
// outcome and duration.
func LogStage(logger zerolog.Logger, stage string) func(status string) {
	start := time.Now()
	logger.Debug().Msg("Stage started")

	return func(status string) {
		logger.Debug().
			Str("status", status).
			Dur("duration", time.Since(start)).
			Msg("Stage finished")
	}
}
