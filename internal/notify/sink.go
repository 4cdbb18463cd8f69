// Package notify delivers settle-up summaries to group members.
// Delivery is fire-and-forget: a failed send is logged, never fatal.
package notify

import (
	"context"
	"log/slog"
)

// Sink is the outbound notification boundary.
type Sink interface {
	// Send delivers one message. Implementations decide the transport.
	Send(ctx context.Context, to, subject, body string) error
}

// LogSink writes notifications to the log instead of sending them. Used in
// development and whenever no mail provider is configured.
type LogSink struct{}

// Send logs the message and always succeeds.
func (LogSink) Send(ctx context.Context, to, subject, body string) error {
	slog.Info("Notification (log sink)", "to", to, "subject", subject, "body", body)
	return nil
}
