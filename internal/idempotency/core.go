// Package idempotency implements the Idempotency Core (§4.1): a
// Redis-backed dedup layer that lets POST handlers be safely retried.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
)

// inFlightTTL bounds how long a marker survives if the handler crashes
// before completing, so a stuck key doesn't block retries forever.
const inFlightTTL = 30 * time.Second

// Core coordinates idempotent request handling against a Cache backend.
type Core struct {
	cache  ports.Cache
	logger *slog.Logger
}

func NewCore(cache ports.Cache, logger *slog.Logger) *Core {
	return &Core{cache: cache, logger: logger}
}

func cacheKey(key string) string { return "idempotency:" + key }

func inFlightKey(key string) string { return "idempotency:inflight:" + key }

// Lookup returns a previously completed record for key, if any. A backend
// read failure is tolerated: the caller proceeds as if no record existed
// rather than fail the request over a cache outage.
func (c *Core) Lookup(ctx context.Context, key string) (*domain.IdempotencyRecord, bool) {
	raw, err := c.cache.Get(ctx, cacheKey(key))
	if err != nil {
		c.logger.Warn("idempotency cache read failed, proceeding without dedup", "key", key, "error", err)
		return nil, false
	}
	if raw == nil {
		return nil, false
	}
	var record domain.IdempotencyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		c.logger.Warn("idempotency cache record corrupt, discarding", "key", key, "error", err)
		return nil, false
	}
	return &record, true
}

// ErrAlreadyInFlight is returned by ClaimInFlight when another request with
// the same key is currently being processed.
var ErrAlreadyInFlight = errors.New("idempotency key already in flight")

// ClaimInFlight marks key as being processed, approximating single-flight
// semantics for concurrent duplicate submissions without a distributed
// lock: the SETNX either wins (caller proceeds) or loses (caller waits for
// the winner's stored record via WaitForCompletion).
func (c *Core) ClaimInFlight(ctx context.Context, key string) error {
	won, err := c.cache.SetNX(ctx, inFlightKey(key), []byte("1"), inFlightTTL)
	if err != nil {
		// Backend failure: allow the request through rather than block on
		// a cache outage; a rare duplicate execution is preferable to
		// gateway-wide unavailability.
		c.logger.Warn("idempotency in-flight claim failed, proceeding without lock", "key", key, "error", err)
		return nil
	}
	if !won {
		return ErrAlreadyInFlight
	}
	return nil
}

// ReleaseInFlight clears the in-flight marker once the handler has
// finished, successfully or not.
func (c *Core) ReleaseInFlight(ctx context.Context, key string) {
	if err := c.cache.Delete(ctx, inFlightKey(key)); err != nil {
		c.logger.Warn("idempotency in-flight release failed", "key", key, "error", err)
	}
}

// pollInterval and pollBudget bound how long a losing duplicate waits for
// the in-flight winner to finish before giving up.
const (
	pollInterval = 100 * time.Millisecond
	pollBudget   = 5 * time.Second
)

// ErrInFlightTimeout is returned by WaitForCompletion when the winner hasn't
// stored a result within pollBudget.
var ErrInFlightTimeout = errors.New("timed out waiting for in-flight request to complete")

// WaitForCompletion polls for the record the in-flight winner is expected to
// Store, so a losing duplicate converges on the same response (§4.1,
// Scenario 1) instead of failing with a spurious conflict.
func (c *Core) WaitForCompletion(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	deadline := time.Now().Add(pollBudget)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if record, ok := c.Lookup(ctx, key); ok {
			return record, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrInFlightTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Store persists a completed response, but only for 2xx status codes per
// §4.1 — a failed attempt must not poison future retries with a cached
// error.
func (c *Core) Store(ctx context.Context, key string, statusCode int, headers map[string]string, body []byte) {
	if statusCode < 200 || statusCode >= 300 {
		return
	}
	record := domain.IdempotencyRecord{
		Key:        key,
		Status:     domain.IdempotencyCompleted,
		StatusCode: statusCode,
		Headers:    headers,
		Body:       body,
		CreatedAt:  time.Now(),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		c.logger.Error("idempotency record marshal failed", "key", key, "error", err)
		return
	}
	if err := c.cache.Set(ctx, cacheKey(key), raw, domain.IdempotencyTTL); err != nil {
		c.logger.Warn("idempotency cache write failed", "key", key, "error", err)
	}
}
