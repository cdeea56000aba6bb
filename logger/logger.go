// Package logger configures the process-wide zap logger, optionally
// forwarding errors to Sentry.
package logger

import (
	"fmt"
	"sync"
	"time"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu           sync.RWMutex
	log          = zap.NewNop()
	sentryClient *sentry.Client
)

// Config holds logger configuration.
type Config struct {
	Debug     bool   // development encoder and debug level
	Level     string // overrides the level implied by Debug when set
	LogFile   string // extra output path besides stderr
	SentryDSN string
	// SentryClient replaces the client built from SentryDSN, for tests.
	SentryClient    *sentry.Client
	BreadcrumbLevel zapcore.Level
	Tags            map[string]string
}

// Initialize builds the global logger from cfg.
func Initialize(cfg Config) error {
	var zapConfig zap.Config
	if cfg.Debug {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	}
	if cfg.LogFile != "" {
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, cfg.LogFile)
	}

	base, err := zapConfig.Build()
	if err != nil {
		return fmt.Errorf("logger: build: %w", err)
	}

	client := cfg.SentryClient
	if client == nil && cfg.SentryDSN != "" {
		client, err = sentry.NewClient(sentry.ClientOptions{
			Dsn:   cfg.SentryDSN,
			Debug: cfg.Debug,
		})
		if err != nil {
			return fmt.Errorf("logger: sentry client: %w", err)
		}
	}

	built := base
	if client != nil {
		breadcrumbLevel := cfg.BreadcrumbLevel
		if breadcrumbLevel == zapcore.InvalidLevel {
			breadcrumbLevel = zapcore.InfoLevel
		}
		core, err := zapsentry.NewCore(zapsentry.Configuration{
			Level:             zapcore.ErrorLevel,
			EnableBreadcrumbs: true,
			BreadcrumbLevel:   breadcrumbLevel,
			Tags:              cfg.Tags,
		}, zapsentry.NewSentryClientFromClient(client))
		if err != nil {
			return fmt.Errorf("logger: sentry core: %w", err)
		}
		built = zapsentry.AttachCoreToLogger(core, base)
	}

	mu.Lock()
	log = built
	sentryClient = client
	mu.Unlock()
	return nil
}

// Default returns the global logger. It discards everything until
// Initialize succeeds.
func Default() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Named returns a child of the global logger for one component.
func Named(component string) *zap.Logger {
	return Default().Named(component)
}

// Flush syncs the logger and flushes buffered Sentry events.
func Flush(timeout time.Duration) {
	mu.RLock()
	l, client := log, sentryClient
	mu.RUnlock()

	_ = l.Sync()
	if client != nil {
		client.Flush(timeout)
	}
}

// Info logs an info message.
func Info(msg string, fields ...zap.Field) {
	Default().Info(msg, fields...)
}

// Warn logs a warning message.
func Warn(msg string, fields ...zap.Field) {
	Default().Warn(msg, fields...)
}

// Error logs err as the message.
func Error(err error, fields ...zap.Field) {
	if err != nil {
		Default().Error(err.Error(), fields...)
	} else {
		Default().Error("error occurred", fields...)
	}
}
