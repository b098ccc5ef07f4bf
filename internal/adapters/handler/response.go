// Package handler implements the HTTP surface (§6) as plain net/http
// handlers on a ServeMux, grounded on the teacher's
// internal/adapters/handler package (request struct + validator +
// respondWithJSON/respondWithError shape), generalized from 4 routes to
// the full payments/settlement/risk/liquidity/reports/health surface.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/deltran/settlement-gateway/internal/core/domain"
)

// envelope is the {"error":{"code","message","details"}} shape spec §7
// requires at the edge; successful responses carry their payload
// unwrapped rather than under a generic "data" key, matching each route's
// documented response body in §6.
type envelope struct {
	Error *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError maps a GatewayError (or any other error) to the §7 status
// table and error envelope. Errors that aren't a *domain.GatewayError are
// normalized to ErrCodeInternal rather than leaking their shape.
func WriteError(w http.ResponseWriter, err error) {
	code := domain.CodeOf(err)
	status := (&domain.GatewayError{Code: code}).HTTPStatus()

	var details map[string]any
	message := "internal error"
	var gerr *domain.GatewayError
	if errors.As(err, &gerr) {
		message = gerr.Message
		details = gerr.Details
	}

	respondJSON(w, status, envelope{Error: &errorBody{Code: string(code), Message: message, Details: details}})
}
