package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/stats"
)

func TestGetStatusColor(t *testing.T) {
	tests := []struct {
		codes    []int
		expected string
	}{
		{[]int{http.StatusOK, http.StatusCreated, http.StatusNoContent}, logcolors.Green},
		{[]int{http.StatusMovedPermanently, http.StatusNotModified}, logcolors.Cyan},
		{[]int{http.StatusBadRequest, http.StatusNotFound, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity, http.StatusTooManyRequests}, logcolors.Yellow},
		{[]int{http.StatusInternalServerError, http.StatusServiceUnavailable}, logcolors.Red},
		{[]int{http.StatusContinue, 199}, logcolors.Reset},
	}

	for _, tt := range tests {
		for _, code := range tt.codes {
			if got := getStatusColor(code); got != tt.expected {
				t.Errorf("getStatusColor(%d) = %q, want %q", code, got, tt.expected)
			}
		}
	}
}

func TestResponseRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := NewResponseRecorder(w)

	if rec.StatusCode != http.StatusOK || rec.BodySize != 0 {
		t.Fatalf("Expected 200 and empty body by default, got %d/%d", rec.StatusCode, rec.BodySize)
	}

	rec.WriteHeader(http.StatusUnprocessableEntity)
	for _, chunk := range []string{`{"error":`, `"ttml: paragraph has no time range"`, `}`} {
		if _, err := rec.Write([]byte(chunk)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	if rec.StatusCode != http.StatusUnprocessableEntity || w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status to reach both recorders, got %d/%d", rec.StatusCode, w.Code)
	}
	if rec.BodySize != w.Body.Len() {
		t.Errorf("Expected body size %d, got %d", w.Body.Len(), rec.BodySize)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var seenID string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestID(r.Context())
		w.Write([]byte("parsed"))
	})

	req := httptest.NewRequest("POST", "/parse", nil)
	rec := httptest.NewRecorder()
	LoggingMiddleware(handler).ServeHTTP(rec, req)

	if body := rec.Body.String(); body != "parsed" {
		t.Errorf("Expected body 'parsed', got %q", body)
	}
	id := rec.Header().Get("X-Request-ID")
	if len(id) != 36 {
		t.Errorf("Expected a UUID request ID, got %q", id)
	}
	if seenID != id {
		t.Errorf("Expected handler to see request ID %q, got %q", id, seenID)
	}
}

func TestLoggingMiddleware_KeepsIncomingRequestID(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	LoggingMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("Expected incoming request ID to be kept, got %q", got)
	}
}

func TestLoggingMiddleware_RecordsStats(t *testing.T) {
	s := stats.Get()
	parseBefore := s.ParseRequests.Load()
	failuresBefore := s.Status4xx.Load()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})
	rec := httptest.NewRecorder()
	LoggingMiddleware(handler).ServeHTTP(rec, httptest.NewRequest("POST", "/parse", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status to pass through, got %d", rec.Code)
	}
	if s.ParseRequests.Load() != parseBefore+1 {
		t.Error("Expected the /parse request to be counted")
	}
	if s.Status4xx.Load() != failuresBefore+1 {
		t.Error("Expected the 4xx status to be counted")
	}
}
