package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorResponse is the JSON shape returned for every error.
type ErrorResponse struct {
	Error string `json:"error"`
	// Optional machine-readable fields attached by specific handlers
	// (e.g. plan limit rejections).
	Details map[string]any `json:"details,omitempty"`
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error writes a JSON error response with the given status code.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// ErrorWithDetails writes a JSON error response carrying machine-readable
// detail fields so clients can react programmatically.
func ErrorWithDetails(w http.ResponseWriter, status int, message string, details map[string]any) {
	JSON(w, status, ErrorResponse{Error: message, Details: details})
}

// Decode reads a JSON request body into v. The body size is capped at 1MB
// and unknown fields are tolerated (payment gateways add fields freely).
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrInvalidBody, err)
	}
	return nil
}
