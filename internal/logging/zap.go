package logging

import (
	"go.uber.org/zap"

	"github.com/pomelocare/dagster/types"
)

// ZapLogger implements types.Logger on top of a zap.SugaredLogger.
type ZapLogger struct {
	logger *zap.SugaredLogger
}

var _ types.Logger = (*ZapLogger)(nil)

// NewZap wraps a sugared zap logger.
//
// Example:
//
//	z, _ := zap.NewProduction()
//	logger := logging.NewZap(z.Sugar().Named("partitions"))
func NewZap(logger *zap.SugaredLogger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &ZapLogger{logger: logger}
}

// Debug implements types.Logger.
func (l *ZapLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

// Info implements types.Logger.
func (l *ZapLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Infow(msg, keysAndValues...)
}

// Warn implements types.Logger.
func (l *ZapLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warnw(msg, keysAndValues...)
}

// Error implements types.Logger.
func (l *ZapLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, keysAndValues...)
}

// Fatal implements types.Logger. zap exits the process after writing the entry.
func (l *ZapLogger) Fatal(msg string, keysAndValues ...any) {
	l.logger.Fatalw(msg, keysAndValues...)
}
