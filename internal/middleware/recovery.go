// Package middleware provides the request-level crosscutting concerns
// wrapping the handler mux: panic recovery, a request timeout, and
// idempotency-key enforcement, grounded on the teacher's rest/middleware
// package and rewired onto handler.WriteError/domain.GatewayError.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/deltran/settlement-gateway/internal/adapters/handler"
	"github.com/deltran/settlement-gateway/internal/core/domain"
)

// Recovery recovers from a panic in next and returns INTERNAL_ERROR rather
// than letting the connection die mid-response.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						"panic", rec,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					handler.WriteError(w, domain.WrapError(domain.ErrCodeInternal, "internal error", fmt.Errorf("panic: %v", rec)))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
