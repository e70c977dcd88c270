package audit

import (
	"context"

	"github.com/markb/plcgate/internal/log"
)

// LogSink writes audit events to the application log. Intended for local
// development where no AWS sink is available.
type LogSink struct{}

// NewLogSink creates a log-backed sink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Write logs the event at info level.
func (l *LogSink) Write(ctx context.Context, event Event) error {
	log.Info("audit event",
		"action", event.Action,
		"user_id", event.UserID,
		"email", event.Email,
		"source_ip", event.SourceIP,
		"result", event.Result,
		"error", event.Error,
	)
	return nil
}
