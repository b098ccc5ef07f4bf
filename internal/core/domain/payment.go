package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the payment lifecycle state (spec §3).
type PaymentStatus string

const (
	StatusInitiated PaymentStatus = "INITIATED"
	StatusValidated PaymentStatus = "VALIDATED"
	StatusScreened  PaymentStatus = "SCREENED"
	StatusApproved  PaymentStatus = "APPROVED"
	StatusSettled   PaymentStatus = "SETTLED"
	StatusCompleted PaymentStatus = "COMPLETED"
	StatusRejected  PaymentStatus = "REJECTED"
	StatusCancelled PaymentStatus = "CANCELLED"
	StatusFailed    PaymentStatus = "FAILED"
)

// PaymentPurpose is an enumerated reason code for the payment.
type PaymentPurpose string

const (
	PurposeTrade    PaymentPurpose = "TRADE"
	PurposeServices PaymentPurpose = "SERVICES"
	PurposePayroll  PaymentPurpose = "PAYROLL"
	PurposeRemit    PaymentPurpose = "REMITTANCE"
	PurposeOther    PaymentPurpose = "OTHER"
)

// SettlementMethod is the rail requested for the payment.
type SettlementMethod string

const (
	MethodInstant       SettlementMethod = "INSTANT"
	MethodPVP           SettlementMethod = "PVP"
	MethodNetting       SettlementMethod = "NETTING"
	MethodCorrespondent SettlementMethod = "CORRESPONDENT"
)

// Payment is a single obligation moving through the gateway.
type Payment struct {
	TransactionID       uuid.UUID
	UETR                uuid.UUID
	Amount              Money
	Currency            string
	DebtorAccount       string
	CreditorAccount     string
	Purpose             PaymentPurpose
	SettlementMethod    SettlementMethod
	Status              PaymentStatus
	IdempotencyKey      uuid.UUID
	SettlementBatchID   *uuid.UUID
	CurrentStep         *string
	EstimatedCompletion *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TransactionReportFilter narrows GET /reports/transactions; zero-value
// fields are unfiltered (Limit <= 0 falls back to a default cap).
type TransactionReportFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Currency  string
	Status    PaymentStatus
	Limit     int
}

// terminalStatuses are states with no further outbound transition.
var terminalStatuses = map[PaymentStatus]bool{
	StatusCompleted: true,
	StatusRejected:  true,
	StatusCancelled: true,
	StatusFailed:    true,
}

// nonTerminalPredecessors lists, for each target status, the statuses a
// payment may legally transition from (spec §3's state machine).
var nonTerminalPredecessors = map[PaymentStatus][]PaymentStatus{
	StatusValidated: {StatusInitiated},
	StatusScreened:  {StatusValidated},
	StatusApproved:  {StatusScreened, StatusValidated, StatusInitiated},
	StatusSettled:   {StatusApproved},
	StatusCompleted: {StatusSettled},
	StatusRejected:  {StatusInitiated, StatusValidated, StatusScreened},
	StatusCancelled: {StatusInitiated, StatusValidated, StatusScreened, StatusApproved},
	StatusFailed:    {StatusInitiated, StatusValidated, StatusScreened, StatusApproved},
}

// IsTerminal reports whether the payment has reached a status with no
// further transitions.
func (p *Payment) IsTerminal() bool {
	return terminalStatuses[p.Status]
}

// CanTransitionTo validates a status transition per the state machine in
// spec §3: "only non-terminal predecessors may transition; CANCELLED is
// legal only from states preceding SETTLED".
func (p *Payment) CanTransitionTo(target PaymentStatus) error {
	if p.IsTerminal() {
		return NewError(ErrCodeConflict, "payment "+string(p.Status)+" is terminal, cannot transition to "+string(target))
	}
	allowedFrom, ok := nonTerminalPredecessors[target]
	if !ok {
		return NewError(ErrCodeValidation, "unknown target status "+string(target))
	}
	for _, from := range allowedFrom {
		if p.Status == from {
			return nil
		}
	}
	return NewError(ErrCodeConflict, "cannot transition from "+string(p.Status)+" to "+string(target))
}

// IsSettledOrLater reports whether the payment has progressed at least to
// SETTLED — the cancellation gate in spec §4.2/§8 (P8) checks the inverse.
func (p *Payment) IsSettledOrLater() bool {
	return p.Status == StatusSettled || p.Status == StatusCompleted
}
