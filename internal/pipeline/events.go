// File: internal/pipeline/events.go
package pipeline

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is one observable pipeline transition: a state advance, a stage
// retry, or a terminal outcome.
type Event struct {
	RunID   uuid.UUID
	State   State
	Stage   string
	Attempt int
	Err     error
}

// Sink receives pipeline events. Publish must not block the run.
type Sink interface {
	Publish(Event)
}

// LogSink publishes events to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wraps logger as an event sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("events")}
}

// Publish logs the event at a level matching its severity.
func (s *LogSink) Publish(ev Event) {
	fields := []zap.Field{
		zap.String("run_id", ev.RunID.String()),
		zap.String("state", string(ev.State)),
	}
	if ev.Stage != "" {
		fields = append(fields, zap.String("stage", ev.Stage))
	}
	if ev.Attempt > 0 {
		fields = append(fields, zap.Int("attempt", ev.Attempt))
	}
	if ev.Err != nil {
		s.logger.Warn("Pipeline event.", append(fields, zap.Error(ev.Err))...)
		return
	}
	s.logger.Info("Pipeline event.", fields...)
}

// nopSink discards events.
type nopSink struct{}

func (nopSink) Publish(Event) {}
