// Package messaging defines the event publishing contract used by the catalog core.
package messaging

import (
	"context"
	"log/slog"
)

// Event is a notification with a routing subject and an encoded body.
type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

// Publisher delivers events to subscribers. Callers treat delivery as best effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// LogPublisher writes events to a logger at debug level instead of a broker.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "events")}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := event.Payload()
	if err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "catalog event", "subject", event.Subject(), "payload", string(payload))
	return nil
}
