package metrics

import (
	"net/http"
	"time"

	"github.com/johnboyce/golf-outing-manager/internal/logger"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush keeps server-sent events working through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware logs and records every request passing through next.
func Middleware(rec *Recorder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		rec.RecordHTTPRequest(r.Method, r.URL.Path, sw.status, elapsed)
		logger.Debug("request complete",
			"method", r.Method,
			"path", r.URL.Path,
			logger.FieldStatus, sw.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}
