package domain

import "github.com/google/uuid"

// NewTransactionID returns a time-ordered identifier (I1: globally unique
// and monotone in creation time). Used for transaction_id, batch_id, and
// quote_id.
func NewTransactionID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the OS entropy source is broken; a
		// random v4 still satisfies uniqueness, just not ordering.
		return uuid.New()
	}
	return id
}

// NewReference returns an opaque random identifier (UETR, idempotency keys
// generated server-side).
func NewReference() uuid.UUID {
	return uuid.New()
}

// ParseIdempotencyKey validates that key is a well-formed UUID, as spec §4.1
// requires for the client-supplied Idempotency-Key header.
func ParseIdempotencyKey(key string) (uuid.UUID, error) {
	return uuid.Parse(key)
}
