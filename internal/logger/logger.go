package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/Yasuhisa-O/SNS/internal/config"
)

// Options controls the global logger output.
type Options struct {
	Level  string
	Format string // "text" or "json"
}

var (
	mu     sync.RWMutex
	logger *slog.Logger
)

// InitFromConfig initializes the global logger from app config.
func InitFromConfig(cfg *config.Config) {
	if cfg == nil {
		Init(Options{})
		return
	}
	Init(Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
}

// Init sets up the global logger. Safe to call multiple times.
func Init(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	handlerOpts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, handlerOpts)
	}
	logger = slog.New(handler)
}

// L returns the global logger. Always returns a non-nil instance.
func L() *slog.Logger {
	mu.RLock()
	if logger != nil {
		defer mu.RUnlock()
		return logger
	}
	mu.RUnlock()

	Init(Options{})

	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// With creates a child logger with additional attributes.
func With(args ...any) *slog.Logger { return L().With(args...) }

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }

func parseLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
