package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/zap"
)

// ZapLoggerAdapter routes Watermill logs to zap
type ZapLoggerAdapter struct {
	logger *zap.Logger
}

// NewZapLoggerAdapter wraps logger for use by Watermill publishers and subscribers
func NewZapLoggerAdapter(logger *zap.Logger) watermill.LoggerAdapter {
	return &ZapLoggerAdapter{logger: logger.Named("watermill")}
}

func (a *ZapLoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (a *ZapLoggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, zapFields(fields)...)
}

func (a *ZapLoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, zapFields(fields)...)
}

// Trace is logged at debug level, zap has nothing lower
func (a *ZapLoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, zapFields(fields)...)
}

func (a *ZapLoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &ZapLoggerAdapter{logger: a.logger.With(zapFields(fields)...)}
}

func zapFields(fields watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
