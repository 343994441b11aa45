package broker

import (
	"context"

	"ccbot/internal/dispatch"
)

// Producer publishes dispatch audit events. Implementations must be safe for
// concurrent use.
type Producer interface {
	PublishDispatch(ctx context.Context, event dispatch.AuditEvent) error
	Close() error
}

// NopProducer discards every event.
type NopProducer struct{}

func (NopProducer) PublishDispatch(context.Context, dispatch.AuditEvent) error { return nil }

func (NopProducer) Close() error { return nil }
