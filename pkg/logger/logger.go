// Package logger wraps a process-wide structured logger used across the
// RTSP server: the control-plane Talkers, the RTP packetization engine,
// the RTCP congestion-control loop, and the source registry all log
// through the same *Logger, with per-subsystem debug categories that can
// be toggled independently of the overall level.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// LogLevel represents the logging verbosity level.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// DebugCategory represents a subsystem that can be debug-logged independently.
type DebugCategory string

const (
	DebugRTSP   DebugCategory = "rtsp"
	DebugRTP    DebugCategory = "rtp"
	DebugRTCP   DebugCategory = "rtcp"
	DebugSource DebugCategory = "source"
	DebugTalker DebugCategory = "talker"
	DebugAll    DebugCategory = "all"
)

// OutputFormat determines the log output format.
type OutputFormat string

const (
	FormatJSON OutputFormat = "json"
	FormatText OutputFormat = "text"
)

// Config holds logger configuration.
type Config struct {
	Level             LogLevel
	Format            OutputFormat
	OutputFile        string
	EnabledCategories map[DebugCategory]bool
	mu                sync.RWMutex
}

// NewConfig creates a new logger configuration with defaults.
func NewConfig() *Config {
	return &Config{
		Level:             LevelInfo,
		Format:            FormatText,
		EnabledCategories: make(map[DebugCategory]bool),
	}
}

// ParseLevel converts a string to LogLevel.
func ParseLevel(level string) (LogLevel, error) {
	switch level {
	case "debug", "DEBUG":
		return LevelDebug, nil
	case "info", "INFO":
		return LevelInfo, nil
	case "warn", "WARN", "warning", "WARNING":
		return LevelWarn, nil
	case "error", "ERROR":
		return LevelError, nil
	default:
		return "", fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}
}

// ParseFormat converts a string to OutputFormat.
func ParseFormat(format string) (OutputFormat, error) {
	switch format {
	case "json", "JSON":
		return FormatJSON, nil
	case "text", "TEXT":
		return FormatText, nil
	default:
		return "", fmt.Errorf("invalid log format: %s (must be json or text)", format)
	}
}

func (l LogLevel) toZerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l LogLevel) toSlog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EnableCategory enables a specific debug category.
func (c *Config) EnableCategory(category DebugCategory) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if category == DebugAll {
		c.EnabledCategories[DebugRTSP] = true
		c.EnabledCategories[DebugRTP] = true
		c.EnabledCategories[DebugRTCP] = true
		c.EnabledCategories[DebugSource] = true
		c.EnabledCategories[DebugTalker] = true
	} else {
		c.EnabledCategories[category] = true
	}
}

// IsCategoryEnabled checks if a debug category is enabled.
func (c *Config) IsCategoryEnabled(category DebugCategory) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.EnabledCategories[category]
}

// Logger wraps slog.Logger for call-site ergonomics; the handler underneath
// writes every record through a zerolog.Logger.
type Logger struct {
	*slog.Logger
	config *Config
	file   *os.File
}

// New creates a new Logger instance with the given configuration.
func New(cfg *Config) (*Logger, error) {
	var writer io.Writer = os.Stdout
	var file *os.File

	if cfg.OutputFile != "" {
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", cfg.OutputFile, err)
		}
		writer = f
		file = f
	}

	if cfg.Format == FormatText {
		writer = zerolog.ConsoleWriter{Out: writer, NoColor: cfg.OutputFile != ""}
	}

	zl := zerolog.New(writer).Level(cfg.Level.toZerolog()).With().Timestamp().Logger()
	handler := &zerologHandler{logger: zl, level: cfg.Level.toSlog()}

	return &Logger{
		Logger: slog.New(handler),
		config: cfg,
		file:   file,
	}, nil
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// With returns a new Logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), config: l.config, file: l.file}
}

// WithContext returns a Logger annotated with values pulled from ctx; no
// values are currently threaded through context, but the hook matches the
// shape callers expect when a request-scoped logger is needed later.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return &Logger{Logger: l.Logger, config: l.config, file: l.file}
}

// DebugRTSP logs an RTSP control-plane event if the category is enabled.
func (l *Logger) DebugRTSP(msg string, args ...any) { l.debugCategory(DebugRTSP, msg, args...) }

// DebugRTP logs an RTP packetization event if the category is enabled.
func (l *Logger) DebugRTP(msg string, args ...any) { l.debugCategory(DebugRTP, msg, args...) }

// DebugRTCP logs an RTCP receiver-report/congestion-control event if the category is enabled.
func (l *Logger) DebugRTCP(msg string, args ...any) { l.debugCategory(DebugRTCP, msg, args...) }

// DebugSource logs a source-registry event if the category is enabled.
func (l *Logger) DebugSource(msg string, args ...any) { l.debugCategory(DebugSource, msg, args...) }

// DebugTalker logs a per-connection control-loop event if the category is enabled.
func (l *Logger) DebugTalker(msg string, args ...any) { l.debugCategory(DebugTalker, msg, args...) }

func (l *Logger) debugCategory(cat DebugCategory, msg string, args ...any) {
	if l.config.IsCategoryEnabled(cat) {
		args = append([]any{"category", string(cat)}, args...)
		l.Debug(msg, args...)
	}
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// SetDefault sets the global default logger.
func SetDefault(logger *Logger) {
	defaultLogger = logger
	slog.SetDefault(logger.Logger)
}

// Default returns the default logger, creating one if necessary.
func Default() *Logger {
	once.Do(func() {
		logger, err := New(NewConfig())
		if err != nil {
			logger = &Logger{Logger: slog.Default(), config: NewConfig()}
		}
		defaultLogger = logger
	})
	return defaultLogger
}

func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
