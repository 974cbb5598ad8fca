// Package shared holds response helpers used by every HTTP handler so error
// envelopes stay consistent across features.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "mercato/pkg/domain-errors"
)

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError translates a domain error into a JSON error envelope.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, dErrors.ToHTTPStatus(err), map[string]string{
		"error":   string(dErrors.CodeOf(err)),
		"message": err.Error(),
	})
}
