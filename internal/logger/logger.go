package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"halmon/internal/config"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// LoggerManager owns the process-wide diagnostic logger
type LoggerManager struct {
	logger *logrus.Logger
	config *config.LogConfig
}

// LoggerInstance is set by InitLogger; the package helpers are no-ops until then
var LoggerInstance *LoggerManager

// InitLogger configures level, format and output from cfg and installs the global instance
func InitLogger(cfg *config.LogConfig) (*LoggerManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("log config cannot be nil")
	}

	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
		l.Warnf("Invalid log level '%s', using 'info' as default", cfg.Level)
	}
	l.SetLevel(level)

	if err := setLogFormatter(l, cfg); err != nil {
		return nil, fmt.Errorf("failed to set log formatter: %w", err)
	}
	if err := setLogOutput(l, cfg); err != nil {
		return nil, fmt.Errorf("failed to set log output: %w", err)
	}
	l.SetReportCaller(cfg.Caller)

	lm := &LoggerManager{logger: l, config: cfg}
	LoggerInstance = lm
	return lm, nil
}

func setLogFormatter(l *logrus.Logger, cfg *config.LogConfig) error {
	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "text", "":
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: timestampFormat,
			FullTimestamp:   true,
		})
	default:
		return fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
	return nil
}

func setLogOutput(l *logrus.Logger, cfg *config.LogConfig) error {
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		l.SetOutput(os.Stdout)
	case "stderr", "":
		l.SetOutput(os.Stderr)
	case "file":
		w, err := rotatingWriter(cfg.FilePath, cfg.MaxSize, cfg.MaxBackups, cfg.MaxAge, cfg.Compress)
		if err != nil {
			return err
		}
		l.SetOutput(w)
	case "discard":
		l.SetOutput(io.Discard)
	default:
		return fmt.Errorf("unsupported log output: %s", cfg.Output)
	}
	return nil
}

func rotatingWriter(path string, maxSize, maxBackups, maxAge int, compress bool) (*lumberjack.Logger, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required when output is file")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
		Compress:   compress,
	}, nil
}

// GetLogger returns the logrus instance
func (lm *LoggerManager) GetLogger() *logrus.Logger {
	return lm.logger
}

// Close flushes a rotating file output, if any
func (lm *LoggerManager) Close() error {
	if c, ok := lm.logger.Out.(io.Closer); ok && lm.logger.Out != os.Stdout && lm.logger.Out != os.Stderr {
		return c.Close()
	}
	return nil
}

func Debugf(format string, args ...interface{}) {
	if LoggerInstance != nil {
		LoggerInstance.logger.Debugf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if LoggerInstance != nil {
		LoggerInstance.logger.Infof(format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if LoggerInstance != nil {
		LoggerInstance.logger.Warnf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if LoggerInstance != nil {
		LoggerInstance.logger.Errorf(format, args...)
	}
}

// WithFields returns an entry on the global logger, or a discarding entry before init
func WithFields(fields logrus.Fields) *logrus.Entry {
	if LoggerInstance != nil {
		return LoggerInstance.logger.WithFields(fields)
	}
	return logrus.NewEntry(discard).WithFields(fields)
}

var discard = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()
