package sinks

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/catalog-service/internal/logrecord"
)

// LogSink writes records through a zap logger at the matching level.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each record in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []logrecord.Record) error {
	for _, rec := range batch {
		fields := []zap.Field{
			zap.Time("record_ts", rec.TS),
			zap.String("path", rec.Path),
		}
		if rec.RequestID != "" {
			fields = append(fields, zap.String("request_id", rec.RequestID))
		}
		if rec.TraceID != "" {
			fields = append(fields, zap.String("trace_id", rec.TraceID))
		}
		if ce := s.logger.Check(zapLevel(rec.Level), rec.Message); ce != nil {
			ce.Write(fields...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}

func zapLevel(level logrecord.Level) zapcore.Level {
	switch level {
	case logrecord.LevelWarning:
		return zapcore.WarnLevel
	case logrecord.LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
