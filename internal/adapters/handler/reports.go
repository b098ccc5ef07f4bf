package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
)

// handleProofOfReserves generates, persists and returns a new reserves
// attestation on every call.
// @Summary      Get proof of reserves
// @Tags         reports
// @Produce      json
// @Success      200  {object}  domain.ProofOfReserves
// @Router       /reports/proof-of-reserves [get]
func (h *Handler) handleProofOfReserves(w http.ResponseWriter, r *http.Request) {
	report, err := h.reporting.ProofOfReserves(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// handleProofOfSettlement returns the settlement attestation for a given
// calendar date.
// @Summary      Get proof of settlement
// @Tags         reports
// @Produce      json
// @Param        settlement_date  query  string  true  "YYYY-MM-DD"
// @Success      200  {object}  domain.ProofOfSettlement
// @Failure      400  {object}  envelope
// @Router       /reports/proof-of-settlement [get]
func (h *Handler) handleProofOfSettlement(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("settlement_date")
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		WriteError(w, domain.NewValidationError("settlement_date", "must be YYYY-MM-DD"))
		return
	}

	report, err := h.reporting.ProofOfSettlement(r.Context(), date)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// handleTransactionReport returns payments matching the query filters,
// newest first.
// @Summary      Get transaction report
// @Tags         reports
// @Produce      json
// @Param        start_date  query  string  false  "YYYY-MM-DD"
// @Param        end_date    query  string  false  "YYYY-MM-DD"
// @Param        currency    query  string  false  "ISO 4217 currency code"
// @Param        status      query  string  false  "Payment status"
// @Param        limit       query  int     false  "Max rows (default 100)"
// @Success      200  {array}  domain.Payment
// @Failure      400  {object}  envelope
// @Router       /reports/transactions [get]
func (h *Handler) handleTransactionReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.TransactionReportFilter{
		Currency: q.Get("currency"),
		Status:   domain.PaymentStatus(q.Get("status")),
	}

	if raw := q.Get("start_date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			WriteError(w, domain.NewValidationError("start_date", "must be YYYY-MM-DD"))
			return
		}
		filter.StartDate = &d
	}
	if raw := q.Get("end_date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			WriteError(w, domain.NewValidationError("end_date", "must be YYYY-MM-DD"))
			return
		}
		filter.EndDate = &d
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, domain.NewValidationError("limit", "must be a positive integer"))
			return
		}
		filter.Limit = n
	}

	payments, err := h.reporting.TransactionReport(r.Context(), filter)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, payments)
}
