package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Interface -.
type Interface interface {
	Debug(message interface{}, args ...interface{})
	Info(message string, args ...interface{})
	Warn(message string, args ...interface{})
	Error(message interface{}, args ...interface{})
	Fatal(message interface{}, args ...interface{})
	With(fields map[string]interface{}) Interface
}

// Logger -.
type Logger struct {
	logger *zerolog.Logger
}

var _ Interface = (*Logger)(nil)

// New -.
func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter -.
func NewWithWriter(level string, w io.Writer) *Logger {
	var l zerolog.Level

	switch strings.ToLower(level) {
	case "error":
		l = zerolog.ErrorLevel
	case "warn":
		l = zerolog.WarnLevel
	case "info":
		l = zerolog.InfoLevel
	case "debug":
		l = zerolog.DebugLevel
	case "disabled":
		l = zerolog.Disabled
	default:
		l = zerolog.InfoLevel
	}

	logger := zerolog.New(w).Level(l).With().Timestamp().Logger()

	return &Logger{logger: &logger}
}

// Discard returns a logger that drops everything, for tests.
func Discard() *Logger {
	return NewWithWriter("disabled", io.Discard)
}

// With returns a child logger carrying fields on every entry.
func (l *Logger) With(fields map[string]interface{}) Interface {
	child := l.logger.With().Fields(fields).Logger()

	return &Logger{logger: &child}
}

// Debug -.
func (l *Logger) Debug(message interface{}, args ...interface{}) {
	l.msg(l.logger.Debug(), message, args...)
}

// Info -.
func (l *Logger) Info(message string, args ...interface{}) {
	l.log(l.logger.Info(), message, args...)
}

// Warn -.
func (l *Logger) Warn(message string, args ...interface{}) {
	l.log(l.logger.Warn(), message, args...)
}

// Error logs an error. When message is an error, the first string in args
// is the location and the rest are its format arguments.
func (l *Logger) Error(message interface{}, args ...interface{}) {
	l.msg(l.logger.Error(), message, args...)
}

// Fatal -.
func (l *Logger) Fatal(message interface{}, args ...interface{}) {
	l.msg(l.logger.Fatal(), message, args...)

	os.Exit(1)
}

func (l *Logger) log(e *zerolog.Event, message string, args ...interface{}) {
	if len(args) == 0 {
		e.Msg(message)
	} else {
		e.Msgf(message, args...)
	}
}

func (l *Logger) msg(e *zerolog.Event, message interface{}, args ...interface{}) {
	switch msg := message.(type) {
	case error:
		if len(args) == 0 {
			e.Err(msg).Send()

			return
		}

		where, ok := args[0].(string)
		if !ok {
			e.Err(msg).Msg(fmt.Sprint(args...))

			return
		}
		l.log(e.Err(msg), where, args[1:]...)
	case string:
		l.log(e, msg, args...)
	default:
		l.log(e, fmt.Sprintf("message %v has unknown type %T", message, msg), args...)
	}
}
