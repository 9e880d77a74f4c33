package util

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// InitLogger builds the process-wide logger. Production uses JSON output,
// anything else the colored console encoder. Every entry carries the service
// name so catalog and projection logs can be told apart when both sides run
// in one process; error entries carry a stacktrace.
func InitLogger(env, serviceName string) error {
	var err error
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err = config.Build(
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", serviceName)),
	)
	if err != nil {
		return err
	}

	zap.ReplaceGlobals(logger)
	return nil
}

// GetLogger returns the process-wide logger, falling back to a development
// logger when InitLogger has not run (tests).
func GetLogger() *zap.Logger {
	if logger == nil {
		logger, _ = zap.NewDevelopment()
	}
	return logger
}

// SyncLogger flushes any buffered log entries
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}

// EventFields are the fields every product event log line carries
func EventFields(eventID, eventType, productID string) []zap.Field {
	return []zap.Field{
		zap.String("event_id", eventID),
		zap.String("event_type", eventType),
		zap.String("product_id", productID),
	}
}
