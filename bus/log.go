package bus

import (
	"context"
	"encoding/json"
	"log/slog"
)

// LogEmitter implements Emitter by writing each event as a structured
// slog record, adapted from the teacher's graph/emit.LogEmitter
// (which wrote to a raw io.Writer); this project's ambient logging is
// log/slog throughout, so the event emitter rides the same logger
// rather than opening its own writer.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter returns a LogEmitter writing through logger. A nil
// logger uses slog.Default().
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger}
}

// Emit logs the event at Info level, or Warn for AgentFailed/
// SystemIntervention which deserve operator attention.
func (l *LogEmitter) Emit(event Event) {
	level := slog.LevelInfo
	if event.EventType == AgentFailed || event.EventType == SystemIntervention {
		level = slog.LevelWarn
	}
	var payload interface{} = json.RawMessage(event.Payload)
	l.logger.Log(context.Background(), level, string(event.EventType),
		"event_id", event.EventID,
		"run_id", event.RunID,
		"agent_id", event.AgentID,
		"payload", payload,
	)
}

// Flush is a no-op: slog.Logger writes synchronously through its
// handler, which owns any buffering of its own.
func (l *LogEmitter) Flush(_ context.Context) error {
	return nil
}
