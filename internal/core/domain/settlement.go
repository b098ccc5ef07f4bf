package domain

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus is the lifecycle of a settlement batch. CLOSED is currently
// the only status this core ever produces; the column is TEXT rather than
// an enum to leave room for a future FAILED/REOPENED state without a
// migration.
type BatchStatus string

const (
	BatchClosed BatchStatus = "CLOSED"
)

// SettlementBatch groups payments sharing a settlement window for
// multilateral netting. Once CLOSED it is immutable.
type SettlementBatch struct {
	BatchID           uuid.UUID
	Window            string
	TotalTransactions int
	TotalAmount       Money
	Status            BatchStatus
	ClosedAt          time.Time
}

// NetDirection is the instruction attached to a net position.
type NetDirection string

const (
	DirectionPay     NetDirection = "PAY"
	DirectionReceive NetDirection = "RECEIVE"
)

// NetPositionKey identifies one account/currency bucket being netted.
type NetPositionKey struct {
	AccountID string
	Currency  string
}

// NetPosition is one account's net obligation after multilateral netting
// over a batch: negative running totals become a PAY instruction, positive
// totals a RECEIVE instruction.
type NetPosition struct {
	BatchID   uuid.UUID
	AccountID string
	Currency  string
	Amount    Money
	Direction NetDirection
}

// nettingTolerance is the rounding tolerance (I3): positions within ±0.01
// are dropped as noise rather than settled.
const nettingTolerance = "0.01"

// NettingTolerance returns the rounding tolerance used to drop near-zero
// net positions after multilateral netting.
func NettingTolerance() string { return nettingTolerance }

// ResolveDirection assigns PAY/RECEIVE based on the sign of a net amount.
func ResolveDirection(amount Money) NetDirection {
	if amount.IsPositive() {
		return DirectionReceive
	}
	return DirectionPay
}
