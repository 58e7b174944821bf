package gateway

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/update-gateway/internal/logger"
)

// requestIDHeader echoes the request id so operators can correlate client reports with logs.
const requestIDHeader = "X-Request-Id"

// statusRecorder captures what the handler sent.
type statusRecorder struct {
	http.ResponseWriter

	status int
	bytes  int64
}

// WriteHeader implements http.ResponseWriter.
func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}

	r.ResponseWriter.WriteHeader(code)
}

// Write implements io.Writer.
func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}

	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)

	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// accessLog attaches a request-scoped logger and logs every request once it completes.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			started   = time.Now()
			requestID = uuid.NewString()
			recorder  = &statusRecorder{ResponseWriter: w}
		)

		ctx := logger.WithName(r.Context(), "http")
		ctx = logger.WithKV(ctx, "request_id", requestID)

		w.Header().Set(requestIDHeader, requestID)

		next.ServeHTTP(recorder, r.WithContext(ctx))

		if recorder.status == 0 {
			recorder.status = http.StatusOK
		}

		logger.InfoKV(ctx, "Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"bytes", recorder.bytes,
			"duration", time.Since(started),
			"remote", r.RemoteAddr)
	})
}
