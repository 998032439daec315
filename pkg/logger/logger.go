package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a configured zerolog.Logger.
// level: debug, info, warn, error. pretty: human-readable console output.
func New(level string, pretty bool) zerolog.Logger {
	return build(level, stdout(pretty))
}

// FileOutput configures a rotated log file written alongside stdout.
type FileOutput struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewWithFile behaves like New and also appends JSON lines to out.Filename,
// rotating it by size. The returned closer releases the file; it is a no-op
// when no filename is set.
func NewWithFile(level string, pretty bool, out FileOutput) (zerolog.Logger, io.Closer) {
	if out.Filename == "" {
		return New(level, pretty), nopCloser{}
	}
	file := &lumberjack.Logger{
		Filename:   out.Filename,
		MaxSize:    out.MaxSizeMB,
		MaxBackups: out.MaxBackups,
		MaxAge:     out.MaxAgeDays,
		Compress:   out.Compress,
	}
	return build(level, io.MultiWriter(stdout(pretty), file)), file
}

func stdout(pretty bool) io.Writer {
	if pretty {
		return zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}
	return os.Stdout
}

func build(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Caller().
		Str("service", "economy-ledger").
		Logger()
}

// NewWithWriter creates a logger writing to a custom writer (useful for testing).
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// Component derives a child logger tagged with a subsystem name such as
// "ledger", "sweeper" or "http".
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
