package kit

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": msg}. The request id travels in the
// X-Request-Id response header, set by RequestIDHeader.
func WriteError(w http.ResponseWriter, _ *http.Request, status int, msg string, details any) {
	WriteJSON(w, status, ErrorResponse{
		Error:   msg,
		Details: details,
	})
}

func WriteText(w http.ResponseWriter, status int, format string, args ...any) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, format, args...)
}
