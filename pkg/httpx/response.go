// Package httpx holds small HTTP helpers shared by the handlers: JSON
// responses, middleware chaining, and rate limiting.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the OAuth2-style error body used across the API.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an OAuth2-style error body.
func WriteError(w http.ResponseWriter, code int, oauthErr, description string) {
	WriteJSON(w, code, ErrorResponse{Error: oauthErr, ErrorDescription: description})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// Required for credential-bearing responses.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
