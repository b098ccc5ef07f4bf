package domain

import (
	"time"

	"github.com/google/uuid"
)

// UsdRates is the static USD conversion table backing both reports; a
// currency absent here is treated as already USD-denominated.
var UsdRates = map[string]float64{
	"USD": 1.0,
	"EUR": 1.18,
	"GBP": 1.33,
	"JPY": 0.009,
	"AED": 0.27,
	"INR": 0.012,
}

func UsdRate(currency string) float64 {
	if r, ok := UsdRates[currency]; ok {
		return r
	}
	return 1.0
}

// ReserveMultiplier is the mocked reserve ratio applied to settled volume;
// the real reserve source is unspecified (§9 open question).
const ReserveMultiplier = 1.10

// CurrencyBalance is one currency's settled/pending sums over the lookback
// window a Proof-of-Reserves report covers.
type CurrencyBalance struct {
	Currency      string
	SettledAmount Money
	PendingAmount Money
}

// CurrencyReserve is a CurrencyBalance after reserve/liability derivation
// and USD conversion.
type CurrencyReserve struct {
	Currency       string
	SettledAmount  Money
	PendingAmount  Money
	ReservesUSD    float64
	LiabilitiesUSD float64
}

// ProofOfReserves attests that reserve balances cover outstanding
// obligations at the report timestamp. The reserve ratio and USD rate
// table are mocked figures, consistent with spec §4 since there is no
// real custodian integration in scope.
type ProofOfReserves struct {
	ReportID            uuid.UUID
	GeneratedAt         time.Time
	TotalReservesUSD    float64
	TotalLiabilitiesUSD float64
	ReserveRatio        float64
	Currencies          []CurrencyReserve
	AttestationHash     string
	ValidUntil          time.Time
}

// ISO20022Manifest is the camt.053.001.08-shaped settlement manifest
// embedded in a ProofOfSettlement.
type ISO20022Manifest struct {
	MessageType          string
	CreationDateTime     time.Time
	NumberOfTransactions int
	ControlSum           float64
	SettlementMethod     string
	BatchReferences      []string
}

// SettledBatchSummary is one settlement batch's contribution to a
// Proof-of-Settlement report.
type SettledBatchSummary struct {
	BatchID        string
	Window         string
	ClosedAt       time.Time
	TransactionIDs []string
	TotalAmountUSD float64
}

// ProofOfSettlement is an ISO 20022 camt.053.001.08-shaped manifest of the
// batches closed on a settlement date, with a merkle root computed over
// the sorted transaction ids so the manifest can be independently
// verified.
type ProofOfSettlement struct {
	ReportID                 uuid.UUID
	SettlementDate           string
	GeneratedAt              time.Time
	TotalSettledTransactions int
	TotalSettledAmountUSD    float64
	Batches                  []SettledBatchSummary
	Manifest                 ISO20022Manifest
	MerkleRoot               string
}
