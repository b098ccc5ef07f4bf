package handler

import (
	"net/http"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/service"
	"github.com/google/uuid"
)

// handleCloseBatch closes the current settlement window, assigning open
// payments to a batch and computing net positions.
// @Summary      Close a settlement batch
// @Tags         settlement
// @Produce      json
// @Param        window  query  string  false  "intraday or EOD"  default(intraday)
// @Success      200  {object}  service.BatchClosedSummary
// @Router       /settlement/close-batch [post]
func (h *Handler) handleCloseBatch(w http.ResponseWriter, r *http.Request) {
	window := service.SettlementWindow(r.URL.Query().Get("window"))
	if window == "" {
		window = service.WindowIntraday
	}

	summary, err := h.settlement.CloseBatch(r.Context(), window)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

type settlementStatus struct {
	IntradayLookbackSince time.Time `json:"intraday_lookback_since"`
	EODWindowSince        time.Time `json:"eod_window_since"`
}

// handleSettlementStatus reports the current window boundaries, letting a
// caller reason about what a close-batch call would pick up right now.
// @Summary      Get settlement window status
// @Tags         settlement
// @Produce      json
// @Success      200  {object}  settlementStatus
// @Router       /settlement/status [get]
func (h *Handler) handleSettlementStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	respondJSON(w, http.StatusOK, settlementStatus{
		IntradayLookbackSince: service.WindowLowerBound(service.WindowIntraday, now, h.settleLookback),
		EODWindowSince:        service.WindowLowerBound(service.WindowEOD, now, h.settleLookback),
	})
}

type batchView struct {
	*domain.SettlementBatch
	NetPositions []*domain.NetPosition `json:"net_positions"`
}

// handleGetBatch retrieves a settlement batch and its net positions.
// @Summary      Get a settlement batch
// @Tags         settlement
// @Produce      json
// @Param        id  path  string  true  "Batch ID"
// @Success      200  {object}  batchView
// @Failure      404  {object}  envelope
// @Router       /settlement/batches/{id} [get]
func (h *Handler) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, domain.NewValidationError("id", "must be a UUID"))
		return
	}

	batch, err := h.batches.FindBatchByID(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	positions, err := h.batches.FindNetPositionsByBatch(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, batchView{SettlementBatch: batch, NetPositions: positions})
}
