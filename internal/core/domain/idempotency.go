package domain

import "time"

// IdempotencyRecordStatus tracks whether a replay is safe to serve yet.
type IdempotencyRecordStatus string

const (
	IdempotencyInFlight  IdempotencyRecordStatus = "IN_FLIGHT"
	IdempotencyCompleted IdempotencyRecordStatus = "COMPLETED"
)

// IdempotencyTTL is the default cache lifetime for a stored response (§4.1).
const IdempotencyTTL = 3600 * time.Second

// IdempotencyRecord is what the Idempotency Core stores under
// "idempotency:<key>". Only 2xx responses are persisted as COMPLETED; a
// request that is mid-flight is marked by a separate in-flight key, and a
// concurrent duplicate waits for the stored record instead of re-executing
// the handler.
type IdempotencyRecord struct {
	Key        string
	Status     IdempotencyRecordStatus
	StatusCode int
	Headers    map[string]string
	Body       []byte
	CreatedAt  time.Time
}

// IsReplayable reports whether the record can be served directly to a
// duplicate request without re-running the handler.
func (r *IdempotencyRecord) IsReplayable() bool {
	return r.Status == IdempotencyCompleted
}
