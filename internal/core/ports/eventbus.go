package ports

import "context"

// EventBus publishes domain events onto the gateway's durable streams
// (§6). Handlers are responsible for their own ack/retry semantics; the
// publisher only guarantees the message reached the broker.
type EventBus interface {
	Publish(ctx context.Context, subject string, payload []byte) error
	Close() error
}
