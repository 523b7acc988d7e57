package audit

import (
	"context"
	"log/slog"
)

// LogSink writes audit events to the structured log. It is the default sink
// when no external audit transport is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Append(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit",
		"action", event.Action,
		"contact_id", event.ContactID,
		"primary_id", event.PrimaryID,
		"request_id", event.RequestID,
		"detail", event.Detail,
	)
	return nil
}
