package middleware

import (
	"context"
	"net/http"
	"time"

	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/stats"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const requestIDKey contextKey = "requestID"

// RequestID returns the ID assigned to the request by LoggingMiddleware
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// ResponseRecorder captures the status code and body size of a response
type ResponseRecorder struct {
	http.ResponseWriter
	StatusCode int
	BodySize   int
}

// NewResponseRecorder wraps w with a 200 default status
func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{ResponseWriter: w, StatusCode: http.StatusOK}
}

func (r *ResponseRecorder) WriteHeader(code int) {
	r.StatusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *ResponseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.BodySize += n
	return n, err
}

func getStatusColor(code int) string {
	switch {
	case code >= 500:
		return logcolors.Red
	case code >= 400:
		return logcolors.Yellow
	case code >= 300:
		return logcolors.Cyan
	case code >= 200:
		return logcolors.Green
	default:
		return logcolors.Reset
	}
}

// LoggingMiddleware tags every request with an X-Request-ID, logs it once it
// completes and feeds the request counters
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)

		rec := NewResponseRecorder(w)
		next.ServeHTTP(rec, r.WithContext(ctx))

		duration := time.Since(start)
		s := stats.Get()
		s.RecordRequest(r.URL.Path)
		s.RecordStatusCode(rec.StatusCode)
		s.RecordResponseTime(duration)

		log.WithFields(log.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.StatusCode,
			"bytes":      rec.BodySize,
			"duration":   duration.String(),
		}).Infof("%s %s %s %s%d%s", logcolors.LogRequest, r.Method, r.URL.Path, getStatusColor(rec.StatusCode), rec.StatusCode, logcolors.Reset)
	})
}
