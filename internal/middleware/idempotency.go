package middleware

import (
	"bytes"
	"net/http"

	"github.com/deltran/settlement-gateway/internal/adapters/handler"
	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/idempotency"
)

// recorder buffers a handler's response so a successful attempt can be
// cached verbatim and replayed byte-for-byte on retry.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rec *recorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *recorder) Write(p []byte) (int, error) {
	rec.body.Write(p)
	return rec.ResponseWriter.Write(p)
}

// Idempotency wraps next with the Idempotency Core (§4.1): a request
// carrying a previously-seen Idempotency-Key replays the cached response
// instead of re-executing next; a key currently in flight makes the loser
// poll until the winner's result lands, converging on the same response
// rather than racing to a conflict. Only mount this on routes §6 documents
// as requiring the header.
func Idempotency(core *idempotency.Core) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				handler.WriteError(w, domain.NewError(domain.ErrCodeMissingIdemKey, "Idempotency-Key header is required"))
				return
			}

			if record, ok := core.Lookup(r.Context(), key); ok {
				for name, value := range record.Headers {
					w.Header().Set(name, value)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(record.StatusCode)
				_, _ = w.Write(record.Body)
				return
			}

			if err := core.ClaimInFlight(r.Context(), key); err != nil {
				record, waitErr := core.WaitForCompletion(r.Context(), key)
				if waitErr != nil {
					handler.WriteError(w, domain.NewError(domain.ErrCodeConflict, "a request with this idempotency key is already in progress"))
					return
				}
				for name, value := range record.Headers {
					w.Header().Set(name, value)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(record.StatusCode)
				_, _ = w.Write(record.Body)
				return
			}
			defer core.ReleaseInFlight(r.Context(), key)

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			core.Store(r.Context(), key, rec.status, nil, rec.body.Bytes())
		})
	}
}
