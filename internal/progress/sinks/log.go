// Package sinks provides progress.Sink implementations for logs and
// Prometheus metrics.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/openshelf/bookharvest/internal/progress"
)

// LogSink emits structured logs for progress streams. Item-level events log
// at debug to keep multi-day runs from flooding operators; run lifecycle
// events log at info.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("stage", string(evt.Stage)),
			zap.String("identity", evt.Identity),
			zap.String("reason", evt.Reason),
			zap.Int64("processed", evt.Processed),
			zap.Int64("failed", evt.Failed),
			zap.Int64("remaining", evt.Remaining),
			zap.Int64("quota_used", evt.QuotaUsed),
			zap.Duration("dur", evt.Dur),
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		switch evt.Stage {
		case progress.StageItemDone, progress.StageItemError:
			s.logger.Debug("harvest progress", fields...)
		default:
			s.logger.Info("harvest progress", fields...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
