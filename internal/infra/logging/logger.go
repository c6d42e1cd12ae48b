package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-softwarelab/common/pkg/slogx"
)

const (
	ServiceKey = "service"
	ErrorKey   = "error"
)

// Level represents the log levels which can be configured.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Handler represents the handler types which can be configured.
type Handler string

const (
	JSONHandler Handler = "json"
	TextHandler Handler = "text"
)

// ParseLevel parses a string into a Level (case-insensitive).
func ParseLevel(s string) (Level, error) {
	return parseEnum(s, LevelDebug, LevelInfo, LevelWarn, LevelError)
}

// ParseHandler parses a string into a Handler (case-insensitive).
func ParseHandler(s string) (Handler, error) {
	return parseEnum(s, JSONHandler, TextHandler)
}

func parseEnum[T ~string](s string, allowed ...T) (T, error) {
	for _, v := range allowed {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q, expected one of %v", s, allowed)
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds the process logger writing to stdout.
func New(level Level, handler Handler) *slog.Logger {
	return NewWithWriter(os.Stdout, level, handler)
}

func NewWithWriter(w io.Writer, level Level, handler Handler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level.slog()}
	if handler == TextHandler {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Child returns a new logger with the given service name added to the logger attrs.
func Child(logger *slog.Logger, serviceName string) *slog.Logger {
	return slogx.Child(DefaultIfNil(logger), serviceName)
}

func Error(err error) slog.Attr {
	return slog.String(ErrorKey, err.Error())
}

// DefaultIfNil returns the default logger if the given logger is nil.
func DefaultIfNil(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
