package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"nifty-dashboard/src/models"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	baseMu sync.RWMutex
	base   = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}).With().Timestamp().Logger()
)

// -----------------------------------------------------------------------------

// Init configures the process-wide backend shared by every named Logger.
// The returned closer flushes the rolling file, if any.
func Init(cfg *models.MConfig) (io.Closer, error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var writers []io.Writer
	if strings.EqualFold(cfg.LogFormat, "json") {
		writers = append(writers, os.Stdout)
	} else {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime})
	}

	var closer io.Closer = io.NopCloser(nil)
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, cfg.Name+".log"),
			MaxSize:    50, // MB
			MaxAge:     14, // days
			MaxBackups: 10,
			Compress:   true,
		}
		writers = append(writers, file)
		closer = file
	}

	baseMu.Lock()
	base = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().
		Timestamp().
		Str("service", cfg.Name).
		Logger()
	baseMu.Unlock()

	return closer, nil
}

// -----------------------------------------------------------------------------

func parseLevel(raw string) (zerolog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, nil
	case "WARNING":
		return zerolog.WarnLevel, nil
	case "CRITICAL":
		return zerolog.FatalLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", raw, err)
	}
	return level, nil
}

// -----------------------------------------------------------------------------

// Logger provides structured logging functionality
type Logger struct {
	name   string
	logger zerolog.Logger
	config interface{}
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance
func NewLogger(config interface{}, name string) *Logger {
	baseMu.RLock()
	zl := base.With().Str("component", name).Logger()
	baseMu.RUnlock()

	return &Logger{
		name:   name,
		logger: zl,
		config: config,
	}
}

// -----------------------------------------------------------------------------

// Named returns a child logger for a sub-component.
func (l *Logger) Named(name string) *Logger {
	return NewLogger(l.config, l.name+"."+name)
}

// -----------------------------------------------------------------------------

// Zerolog exposes the backend for structured fields.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.logger
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.logger.Info().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.logger.Error().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.logger.WithLevel(zerolog.FatalLevel).Msg(fmt.Sprintf(format, args...))
	os.Exit(1)
}
