package trafficlight

import (
	"github.com/sirupsen/logrus"
)

type Logger interface {
	Error(format string, args ...any)
	Warn(format string, args ...any)
	Info(format string, args ...any)
	Debug(format string, args ...any)
}

// LogrusLogger adapts a logrus entry to Logger.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps l. A nil l uses the logrus standard logger.
func NewLogrusLogger(l *logrus.Logger) LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return LogrusLogger{entry: logrus.NewEntry(l)}
}

// WithField returns a logger that adds key=value to every line.
func (l LogrusLogger) WithField(key string, value any) LogrusLogger {
	return LogrusLogger{entry: l.entry.WithField(key, value)}
}

func (l LogrusLogger) Error(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

func (l LogrusLogger) Warn(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l LogrusLogger) Info(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l LogrusLogger) Debug(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Error(string, ...any) {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Debug(string, ...any) {}
