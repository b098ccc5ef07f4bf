package ports

import (
	"context"
	"time"
)

// Cache is the key-value store used by the Idempotency Core and the Risk
// Controller's staleness-tolerant config mirror. Reads must tolerate a
// backend outage (the caller falls back to the durable store) per §4.1.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX sets value only if key is absent, returning whether it won the
	// race — the in-flight marker backing near-single-flight idempotency.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	// GetDel atomically reads and removes key, returning (nil, nil) if it
	// was already gone — the primitive single-use quote execution relies on
	// so two concurrent callers can't both observe the value before either
	// deletes it.
	GetDel(ctx context.Context, key string) ([]byte, error)
}
