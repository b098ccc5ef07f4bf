package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/deltran/settlement-gateway/internal/adapters/handler"
	"github.com/deltran/settlement-gateway/internal/core/domain"
)

type timeoutWriter struct {
	http.ResponseWriter
	h    http.Header
	code int
}

func (tw *timeoutWriter) Header() http.Header { return tw.h }

func (tw *timeoutWriter) Write(p []byte) (int, error) {
	return tw.ResponseWriter.Write(p)
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.code = code
	tw.ResponseWriter.WriteHeader(code)
}

// Timeout bounds every request to timeout, responding TIMEOUT_ERROR if next
// hasn't written a status by the deadline. next keeps running in its own
// goroutine after the deadline fires — callers must still respect
// r.Context() cancellation downstream to actually stop work.
func Timeout(timeout time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			r = r.WithContext(ctx)

			tw := &timeoutWriter{ResponseWriter: w, h: make(http.Header)}

			done := make(chan struct{})
			panicChan := make(chan any, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicChan <- p
					}
				}()
				next.ServeHTTP(tw, r)
				close(done)
			}()

			select {
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded && tw.code == 0 {
					logger.Warn("request timed out", "path", r.URL.Path, "method", r.Method)
					handler.WriteError(w, domain.NewError(domain.ErrCodeTimeout, "request timed out"))
				}
			case p := <-panicChan:
				panic(p)
			case <-done:
			}
		})
	}
}
