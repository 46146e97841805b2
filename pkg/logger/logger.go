// backupctl/pkg/logger/logger.go
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	Log = newLogger(os.Stderr, "console", zerolog.InfoLevel)
	log.Logger = Log
}

// Configure sets the output format ("console" or "json") and level of the
// global logger. Logs go to stderr so command output on stdout stays clean.
func Configure(format, levelStr string) {
	Log = newLogger(os.Stderr, format, zerolog.InfoLevel)
	SetLevel(levelStr)
}

// SetLevel sets the log level
func SetLevel(levelStr string) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(levelStr)))
	if err != nil || level == zerolog.NoLevel {
		if levelStr != "" {
			Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		}
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
	log.Logger = Log
}

func newLogger(out io.Writer, format string, level zerolog.Level) zerolog.Logger {
	if format != "json" {
		// Default to console output with color
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02 15:04:05",
		}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}
