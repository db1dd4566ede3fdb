package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger. env "local" switches to the console encoder.
// level is a zap level name ("debug", "info", ...); empty keeps the default.
func New(serviceName, env, level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	return cfg.Build(
		zap.Fields(
			zap.String("service", serviceName),
			zap.String("env", env),
		),
	)
}

// Debug logs a debug message with consistent format
// Fields: principal, action, details
func Debug(principal, action, details string) {
	zap.L().Debug(action,
		zap.String("principal", principal),
		zap.String("action", action),
		zap.String("details", details),
	)
}

// Error logs a failed action with its error
func Error(principal, action string, err error) {
	zap.L().Error(action,
		zap.String("principal", principal),
		zap.String("action", action),
		zap.Error(err),
	)
}
