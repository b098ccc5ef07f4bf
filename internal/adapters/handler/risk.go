package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/google/uuid"
)

// handleGetRiskMode returns the currently active risk mode.
// @Summary      Get active risk mode
// @Tags         risk
// @Produce      json
// @Success      200  {object}  domain.RiskConfig
// @Router       /risk/mode [get]
func (h *Handler) handleGetRiskMode(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.risk.GetMode(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

type setRiskModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=LOW MEDIUM HIGH"`
}

// handleSetRiskMode installs a new active risk mode.
// @Summary      Set active risk mode
// @Tags         risk
// @Accept       json
// @Produce      json
// @Param        request  body  setRiskModeRequest  true  "New mode"
// @Success      200  {object}  domain.RiskConfig
// @Failure      400  {object}  envelope
// @Router       /risk/mode [post]
func (h *Handler) handleSetRiskMode(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req setRiskModeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		WriteError(w, domain.NewValidationError("body", "malformed JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, domain.NewValidationError("mode", "must be one of LOW, MEDIUM, HIGH"))
		return
	}

	cfg, err := h.risk.SetMode(r.Context(), domain.RiskMode(req.Mode))
	if err != nil {
		WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// handleRiskMetrics returns the risk metrics. It passes no quote samples,
// so the figures are the fixed no-sample baseline scored against the
// active thresholds; no recorded quotes are read.
// @Summary      Get risk metrics
// @Tags         risk
// @Produce      json
// @Success      200  {object}  domain.RiskMetrics
// @Router       /risk/metrics [get]
func (h *Handler) handleRiskMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.risk.Metrics(r.Context(), nil)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

// handleRiskThresholds returns the threshold table backing the active mode.
// @Summary      Get active risk thresholds
// @Tags         risk
// @Produce      json
// @Success      200  {object}  domain.RiskThresholds
// @Router       /risk/thresholds [get]
func (h *Handler) handleRiskThresholds(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.risk.GetMode(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg.Thresholds)
}

// handleAssess screens a single payment and persists the resulting
// assessment.
// @Summary      Assess a payment's risk
// @Tags         risk
// @Produce      json
// @Param        txn  path  string  true  "Transaction ID"
// @Success      200  {object}  domain.RiskAssessment
// @Failure      404  {object}  envelope
// @Router       /risk/assess/{txn} [post]
func (h *Handler) handleAssess(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("txn"))
	if err != nil {
		WriteError(w, domain.NewValidationError("txn", "must be a UUID"))
		return
	}

	payment, err := h.payments.FindByID(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	recentCount, err := h.payments.CountRecentByAccount(r.Context(), payment.DebtorAccount, h.riskFreqWindow)
	if err != nil {
		WriteError(w, err)
		return
	}

	assessment, err := h.risk.Assess(r.Context(), payment, recentCount)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, assessment)
}
