package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/vitalsd/internal/errors"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rs/zerolog"
)

const (
	logRotationTime = 24 * time.Hour
	logMaxAge       = 7 * 24 * time.Hour
)

var log = zerolog.New(os.Stdout).With().Timestamp().Logger()

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Options controls where and how log lines are written.
type Options struct {
	Level  string
	Format string // "console" or "json"
	File   string // rotated daily when set
}

// Init initializes the package logger from the given options.
func Init(opts Options) error {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if opts.File != "" {
		rotated, err := rotatelogs.New(
			opts.File+".%Y%m%d",
			rotatelogs.WithLinkName(opts.File),
			rotatelogs.WithRotationTime(logRotationTime),
			rotatelogs.WithMaxAge(logMaxAge),
		)
		if err != nil {
			return errors.New().Wrap(errors.ErrInitFailed, err)
		}
		out = rotated
	}

	if opts.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: opts.File != ""}
	}

	log = zerolog.New(out).With().Timestamp().Str("service", filepath.Base(os.Args[0])).Logger()
	SetLogLevel(level)

	return nil
}

// ParseLevel maps a configured level name onto a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, errors.New().WithData(errors.ErrInvalidLogLevel, s)
	}
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// Debug logs a debug message
func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	return &LogEvent{log.Error()}
}

// ErrorWithCode logs an error message with a specific error code
func ErrorWithCode(err errors.Error) *LogEvent {
	return &LogEvent{log.Error().
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}

// Fatal logs a fatal message and exits the program
func Fatal() *LogEvent {
	return &LogEvent{log.Fatal()}
}

// Default returns the package logger as a Logger value for injection.
func Default() Logger {
	return pkgLogger{}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

type pkgLogger struct{}

func (pkgLogger) Debug() *LogEvent { return Debug() }
func (pkgLogger) Info() *LogEvent { return Info() }
func (pkgLogger) Warn() *LogEvent { return Warn() }
func (pkgLogger) Error() *LogEvent { return Error() }
func (pkgLogger) ErrorWithCode(err errors.Error) *LogEvent { return ErrorWithCode(err) }

var nop = zerolog.Nop()

type nopLogger struct{}

func (nopLogger) Debug() *LogEvent { return &LogEvent{nop.Debug()} }
func (nopLogger) Info() *LogEvent { return &LogEvent{nop.Info()} }
func (nopLogger) Warn() *LogEvent { return &LogEvent{nop.Warn()} }
func (nopLogger) Error() *LogEvent { return &LogEvent{nop.Error()} }
func (nopLogger) ErrorWithCode(_ errors.Error) *LogEvent { return &LogEvent{nop.Error()} }
