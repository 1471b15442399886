package middleware

import (
	"encoding/json"
	"net/http"
	"time"
)

type errorBody struct {
	Error             string `json:"error"`
	Message           string `json:"message,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
	Timestamp         string `json:"timestamp"`
}

// WriteJSONError writes a {"error","message","timestamp"} body with status.
func WriteJSONError(w http.ResponseWriter, status int, code, message string) {
	writeErrorBody(w, status, errorBody{Error: code, Message: message})
}

func writeErrorBody(w http.ResponseWriter, status int, body errorBody) {
	body.Timestamp = time.Now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
