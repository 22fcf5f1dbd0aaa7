package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aki/twig/internal/core/logger"
)

// Global flags for logging configuration
var (
	flagLogLevel  string
	flagLogFormat string
)

// RegisterLoggerFlags registers global logging flags
func RegisterLoggerFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
}

// CreateLogger creates a logger based on CLI flags. Unknown values fall back
// to the defaults rather than failing the command.
func CreateLogger() logger.Logger {
	level, err := logger.ParseLevel(flagLogLevel)
	if err != nil {
		return CreateQuietLogger()
	}
	format, err := logger.ParseFormat(flagLogFormat)
	if err != nil {
		format = logger.FormatText
	}

	return logger.New(
		logger.WithLevel(level),
		logger.WithFormat(format),
		logger.WithOutput(os.Stderr),
	)
}

// CreateQuietLogger creates a logger that only shows warnings and errors
func CreateQuietLogger() logger.Logger {
	return logger.New(
		logger.WithQuiet(),
		logger.WithFormat(logger.FormatText),
		logger.WithOutput(os.Stderr),
	)
}
