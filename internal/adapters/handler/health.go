package handler

import (
	"net/http"
)

type healthEntry struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status string        `json:"status"`
	Checks []healthEntry `json:"checks"`
}

// handleHealth aggregates every registered HealthChecker (Postgres, Redis,
// NATS) into a single 200/503 response (§6.1).
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  healthResponse
// @Failure      503  {object}  healthResponse
// @Router       /health [get]
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	for _, check := range h.healthChecks {
		entry := healthEntry{Name: check.Name(), Status: "ok"}
		if err := check.Check(r.Context()); err != nil {
			entry.Status = "down"
			entry.Error = err.Error()
			resp.Status = "degraded"
		}
		resp.Checks = append(resp.Checks, entry)
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}
