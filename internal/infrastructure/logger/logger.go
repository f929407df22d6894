package logger

import (
	"wallet-activity-stats/internal/infrastructure/config"

	"go.uber.org/zap"
)

// Logger is a zap logger with pipeline-scoped field helpers. Level methods
// and Sync are promoted from the embedded zap.Logger.
type Logger struct {
	*zap.Logger
}

// NewLogger creates a new logger instance
func NewLogger(cfg *config.Config) (*Logger, error) {
	var zapConfig zap.Config

	if cfg.App.Env == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Set log level
	level, err := zap.ParseAtomicLevel(cfg.App.LogLevel)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	// Build logger
	zapLogger, err := zapConfig.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: zapLogger.With(zap.String("service", cfg.App.Name))}, nil
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// With adds fields to logger
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// WithComponent adds component field to logger
func (l *Logger) WithComponent(name string) *Logger {
	return l.With(zap.String("component", name))
}

// WithTransaction adds transaction hash field to logger
func (l *Logger) WithTransaction(hash string) *Logger {
	return l.With(zap.String("tx_hash", hash))
}

// WithAddress adds subject address field to logger
func (l *Logger) WithAddress(address string) *Logger {
	return l.With(zap.String("address", address))
}
