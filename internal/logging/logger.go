package logging

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used across the module.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	WithField(key string, value any) Logger
}

var (
	baseMu sync.RWMutex
	base   = newBase()
)

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	return l
}

// SetLevel sets the level of the shared logrus logger ("debug", "info", ...).
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	baseMu.Lock()
	defer baseMu.Unlock()
	base.SetLevel(lvl)
	return nil
}

// SetOutput redirects the shared logrus logger.
func SetOutput(w io.Writer) {
	baseMu.Lock()
	defer baseMu.Unlock()
	base.SetOutput(w)
}

type logrusLogger struct {
	entry *logrus.Entry
}

func (l *logrusLogger) Debug(args ...any) {
	l.entry.Debug(args...)
}

func (l *logrusLogger) Debugf(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLogger) Info(args ...any) {
	l.entry.Info(args...)
}

func (l *logrusLogger) Infof(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *logrusLogger) Warn(args ...any) {
	l.entry.Warn(args...)
}

func (l *logrusLogger) Warnf(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *logrusLogger) Error(args ...any) {
	l.entry.Error(args...)
}

func (l *logrusLogger) Errorf(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

func (l *logrusLogger) Fatal(args ...any) {
	l.entry.Fatal(args...)
}

func (l *logrusLogger) Fatalf(format string, args ...any) {
	l.entry.Fatalf(format, args...)
}

func (l *logrusLogger) WithField(key string, value any) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

// NewLogger returns a logger from the registered factory, or the shared
// logrus logger bound to ctx.
func NewLogger(ctx context.Context) Logger {
	factory := GetLoggerFactory()
	if factory != nil {
		return factory.CreateLogger(ctx)
	}

	return newLogrusLogger(ctx)
}

// WithComponent returns a logger tagged with a component field. The
// underlying logger is resolved on every call, so package-level component
// loggers follow a factory registered after they were created.
func WithComponent(name string) Logger {
	return &componentLogger{fields: []field{{"component", name}}}
}

type field struct {
	key   string
	value any
}

type componentLogger struct {
	fields []field
}

func (c *componentLogger) resolve() Logger {
	l := NewLogger(context.Background())
	for _, f := range c.fields {
		l = l.WithField(f.key, f.value)
	}
	return l
}

func (c *componentLogger) Debug(args ...any)                 { c.resolve().Debug(args...) }
func (c *componentLogger) Debugf(format string, args ...any) { c.resolve().Debugf(format, args...) }
func (c *componentLogger) Info(args ...any)                  { c.resolve().Info(args...) }
func (c *componentLogger) Infof(format string, args ...any)  { c.resolve().Infof(format, args...) }
func (c *componentLogger) Warn(args ...any)                  { c.resolve().Warn(args...) }
func (c *componentLogger) Warnf(format string, args ...any)  { c.resolve().Warnf(format, args...) }
func (c *componentLogger) Error(args ...any)                 { c.resolve().Error(args...) }
func (c *componentLogger) Errorf(format string, args ...any) { c.resolve().Errorf(format, args...) }
func (c *componentLogger) Fatal(args ...any)                 { c.resolve().Fatal(args...) }
func (c *componentLogger) Fatalf(format string, args ...any) { c.resolve().Fatalf(format, args...) }

func (c *componentLogger) WithField(key string, value any) Logger {
	fields := append(append([]field(nil), c.fields...), field{key, value})
	return &componentLogger{fields: fields}
}

func newLogrusLogger(ctx context.Context) Logger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return &logrusLogger{entry: base.WithContext(ctx)}
}
