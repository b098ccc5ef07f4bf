package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/service"
	"github.com/google/uuid"
)

type initiateRequest struct {
	Amount           string `json:"amount" validate:"required"`
	Currency         string `json:"currency" validate:"required,len=3"`
	DebtorAccount    string `json:"debtor_account" validate:"required"`
	CreditorAccount  string `json:"creditor_account" validate:"required"`
	Purpose          string `json:"purpose" validate:"required"`
	SettlementMethod string `json:"settlement_method" validate:"required"`
}

// handleInitiate processes a payment initiation request.
// @Summary      Initiate a cross-border payment
// @Description  Opens a new payment in INITIATED status; the Idempotency-Key header is mandatory and makes retries of this call safe.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string            true  "Unique key to prevent duplicate requests"
// @Param        request          body    initiateRequest   true  "Payment details"
// @Success      201  {object}  service.PaymentResponse
// @Failure      400  {object}  envelope
// @Router       /payments/initiate [post]
func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req initiateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		WriteError(w, domain.NewValidationError("body", "malformed JSON"))
		return
	}

	idemKeyStr := r.Header.Get("Idempotency-Key")
	if idemKeyStr == "" {
		WriteError(w, domain.NewValidationError("Idempotency-Key", "header is required"))
		return
	}
	idemKey, err := uuid.Parse(idemKeyStr)
	if err != nil {
		WriteError(w, domain.NewValidationError("Idempotency-Key", "must be a UUID"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		WriteError(w, domain.NewValidationError("body", err.Error()))
		return
	}

	amount, err := domain.ParseMoney(req.Amount)
	if err != nil {
		WriteError(w, domain.NewValidationError("amount", "must be a decimal string"))
		return
	}

	resp, err := h.orchestrator.Initiate(r.Context(), service.InitiateRequest{
		Amount:           amount,
		Currency:         req.Currency,
		DebtorAccount:    req.DebtorAccount,
		CreditorAccount:  req.CreditorAccount,
		Purpose:          domain.PaymentPurpose(req.Purpose),
		SettlementMethod: domain.SettlementMethod(req.SettlementMethod),
	}, idemKey)
	if err != nil {
		WriteError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

// handleGetStatus returns a payment's current status.
// @Summary      Get payment status
// @Tags         payments
// @Produce      json
// @Param        id  path  string  true  "Transaction ID"
// @Success      200  {object}  domain.Payment
// @Failure      404  {object}  envelope
// @Router       /payments/{id}/status [get]
func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, domain.NewValidationError("id", "must be a UUID"))
		return
	}

	payment, err := h.orchestrator.GetStatus(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, payment)
}

// handleCancel cancels a payment that has not yet settled.
// @Summary      Cancel a payment
// @Tags         payments
// @Produce      json
// @Param        id  path  string  true  "Transaction ID"
// @Success      200  {object}  domain.Payment
// @Failure      409  {object}  envelope
// @Router       /payments/{id}/cancel [post]
func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, domain.NewValidationError("id", "must be a UUID"))
		return
	}

	payment, err := h.orchestrator.Cancel(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, payment)
}
