// Package bus implements the Event Bus port on NATS JetStream, grounded on
// original_source's NATSClient: connect, ensure a durable stream exists,
// publish with an attached message id.
package bus

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/deltran/settlement-gateway/internal/config"
	"github.com/deltran/settlement-gateway/internal/core/ports"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Bus implements ports.EventBus against a JetStream stream covering every
// payment.*/settlement.*/risk.*/liquidity.*/reports.* subject the gateway
// publishes (§6's Event Bus section), as a single stream rather than the
// original's four — this core has no ledger/compliance subjects to
// separate by retention class.
type Bus struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	logger  *slog.Logger
	timeout time.Duration
}

// Connect dials url, enables JetStream, and ensures the configured stream
// exists (creating it if this is the first process to connect).
func Connect(ctx context.Context, cfg config.NATSConfig, logger *slog.Logger) (*Bus, error) {
	nc, err := nats.Connect(cfg.URL, nats.Timeout(cfg.ConnectTimeout))
	if err != nil {
		logger.Error("failed to connect to nats", "url", cfg.URL, "error", err)
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, err
	}

	createCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	_, err = js.CreateOrUpdateStream(createCtx, jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: cfg.Subjects,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		nc.Close()
		logger.Error("failed to ensure jetstream stream", "stream", cfg.StreamName, "error", err)
		return nil, err
	}

	logger.Info("connected to nats", "url", cfg.URL, "stream", cfg.StreamName)
	return &Bus{nc: nc, js: js, logger: logger, timeout: cfg.PublishTimeout}, nil
}

var _ ports.EventBus = (*Bus)(nil)

func (b *Bus) Publish(ctx context.Context, subject string, payload []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	_, err := b.js.Publish(pubCtx, subject, payload)
	return err
}

// Connected reports whether the underlying connection is up, for the
// /health handler (§6.1).
func (b *Bus) Connected() bool {
	return b.nc.Status() == nats.CONNECTED
}

// Name identifies this checker in the /health aggregate.
func (b *Bus) Name() string { return "nats" }

// Check implements handler.HealthChecker.
func (b *Bus) Check(ctx context.Context) error {
	if !b.Connected() {
		return errors.New("nats connection not established")
	}
	return nil
}

func (b *Bus) Close() error {
	b.logger.Info("closing nats connection")
	if !b.nc.IsClosed() {
		if err := b.nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			return err
		}
	}
	return nil
}
