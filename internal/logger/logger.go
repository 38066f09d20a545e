package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/juju/lumberjack/v2"
	"github.com/sirupsen/logrus"
)

// Config describes how the global logger is set up
type Config struct {
	Level      string // "debug", "info", "warn", "error", "fatal"
	Format     string // "text" or "json"
	AppName    string // used for the log file name
	FileEnable bool
	LogsDir    string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu      sync.RWMutex
	base    = newDefault()
	rotator *lumberjack.Logger
)

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	l.SetLevel(ParseLevel(os.Getenv("RESTORM_LOGGER_LEVEL")))
	return l
}

// ParseLevel converts a level name into a logrus level, falling back to info
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal", "critical":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// Setup configures the global logger. The returned function closes the log file.
func Setup(cfg Config) (func() error, error) {
	l := logrus.New()
	l.SetLevel(ParseLevel(cfg.Level))

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	var out io.Writer = os.Stdout
	var rot *lumberjack.Logger
	if cfg.FileEnable && cfg.LogsDir != "" {
		if err := os.MkdirAll(cfg.LogsDir, 0o775); err != nil {
			return nil, err
		}
		name := cfg.AppName
		if name == "" {
			name = "restorm"
		}
		rot = &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogsDir, name+".log"),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rot)
	}
	l.SetOutput(out)

	mu.Lock()
	prev := rotator
	base = l
	rotator = rot
	mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}

	return func() error {
		mu.Lock()
		defer mu.Unlock()
		if rotator == nil {
			return nil
		}
		err := rotator.Close()
		rotator = nil
		base.SetOutput(os.Stdout)
		return err
	}, nil
}

// SetOutput redirects the global logger, mostly useful in tests
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base.SetOutput(w)
}

// SetLevel sets the logging level
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	base.SetLevel(ParseLevel(level))
}

// L returns the underlying logrus logger
func L() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithFields returns an entry carrying structured fields
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return L().WithFields(logrus.Fields(fields))
}

// WithRequestID returns an entry tagged with a request id
func WithRequestID(requestID string) *logrus.Entry {
	return L().WithField("request_id", requestID)
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	L().Debugf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	L().Infof(format, args...)
}

// Success logs an info message marked as a successful outcome
func Success(format string, args ...interface{}) {
	L().WithField("status", "success").Infof(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	L().Warnf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	L().Errorf(format, args...)
}

// Fatal logs a fatal message and exits
func Fatal(format string, args ...interface{}) {
	L().Fatalf(format, args...)
}

// Debugf logs a debug message with formatting
func Debugf(format string, args ...interface{}) {
	Debug(format, args...)
}

// Infof logs an info message with formatting
func Infof(format string, args ...interface{}) {
	Info(format, args...)
}

// Warnf logs a warning message with formatting
func Warnf(format string, args ...interface{}) {
	Warn(format, args...)
}

// Errorf logs an error message with formatting
func Errorf(format string, args ...interface{}) {
	Error(format, args...)
}

// Fatalf logs a fatal message with formatting and exits
func Fatalf(format string, args ...interface{}) {
	Fatal(format, args...)
}
