package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type contextKeyLog string

const principalCarrierKey contextKeyLog = "principal_carrier"

// principalCarrier lets the session middleware, which runs inside the
// logging middleware, hand the resolved identity back out to the log line.
// Context values only flow inward, so the carrier is seeded here and filled
// in by Authenticate.
type principalCarrier struct {
	principal *Principal
}

// Logger returns an HTTP middleware that emits one structured log line per
// request: method, path, status, elapsed time, response size, request ID,
// remote address, and the session user when one was resolved. 4xx logs at
// warn and 5xx at error so failures stand out without a status filter.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			carrier := &principalCarrier{}
			r = r.WithContext(context.WithValue(r.Context(), principalCarrierKey, carrier))

			next.ServeHTTP(rec, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"elapsed_ms", float64(time.Since(start).Microseconds()) / 1000.0,
				"bytes", rec.bytes,
				"request_id", GetRequestID(r.Context()),
				"remote_addr", r.RemoteAddr,
			}
			if p := carrier.principal; p != nil {
				attrs = append(attrs, "user_id", p.UserID, "role", p.Role)
			}
			logger.Log(r.Context(), levelForStatus(rec.status), "request", attrs...)
		})
	}
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// reportPrincipal records the session identity for the request log line.
func reportPrincipal(ctx context.Context, p *Principal) {
	if carrier, ok := ctx.Value(principalCarrierKey).(*principalCarrier); ok {
		carrier.principal = p
	}
}

// statusRecorder wraps http.ResponseWriter to capture the status code and
// body size after the handler runs.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap returns the underlying ResponseWriter, required for http.Flusher
// and other interface assertions through middleware chains.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
