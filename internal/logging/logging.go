package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the minimal logging surface the rest of the application
// depends on. Messages are printf-style format strings.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	WithField(key string, value any) Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

// Options controls logger construction.
type Options struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// JSON switches to the JSON formatter, used in production.
	JSON bool
}

// New builds a Logger backed by logrus.
func New(opts Options) Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	if opts.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debug(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLogger) Info(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *logrusLogger) Warn(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *logrusLogger) Error(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

func (l *logrusLogger) WithField(key string, value any) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.PanicLevel)
	return &logrusLogger{entry: logrus.NewEntry(l)}
}
