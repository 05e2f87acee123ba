package main

import (
	"encoding/json"
	"net/http"

	"lyrics-parser-go/middleware"
)

// APIResponse handles consistent header setting and JSON responses.
// It centralizes X-Cache-Status, X-Format and X-RateLimit-Type.
type APIResponse struct {
	w           http.ResponseWriter
	r           *http.Request
	cacheStatus string
	format      string
}

// Respond creates a response helper from request context
func Respond(w http.ResponseWriter, r *http.Request) *APIResponse {
	return &APIResponse{w: w, r: r}
}

// SetCacheStatus sets the X-Cache-Status header value
func (a *APIResponse) SetCacheStatus(status string) *APIResponse {
	a.cacheStatus = status
	return a
}

// SetFormat sets the X-Format header value
func (a *APIResponse) SetFormat(format string) *APIResponse {
	a.format = format
	return a
}

func (a *APIResponse) writeHeaders() {
	a.w.Header().Set("Content-Type", "application/json")

	if a.cacheStatus != "" {
		a.w.Header().Set("X-Cache-Status", a.cacheStatus)
	}
	if a.format != "" {
		a.w.Header().Set("X-Format", a.format)
	}
	if t := middleware.RateLimitType(a.r.Context()); t != "" {
		a.w.Header().Set("X-RateLimit-Type", t)
	}
}

// JSON writes headers and encodes data as JSON (200 OK)
func (a *APIResponse) JSON(data interface{}) error {
	a.writeHeaders()
	return json.NewEncoder(a.w).Encode(data)
}

// Error writes headers, sets status code, and encodes error response
func (a *APIResponse) Error(statusCode int, data interface{}) error {
	a.writeHeaders()
	a.w.WriteHeader(statusCode)
	return json.NewEncoder(a.w).Encode(data)
}

// ErrorMessage writes a {"error": message} body with the given status
func (a *APIResponse) ErrorMessage(statusCode int, message string) error {
	return a.Error(statusCode, map[string]interface{}{"error": message})
}
