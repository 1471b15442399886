package httpauth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/forumguard"
	"github.com/MrEthical07/forumguard/middleware"
)

type envelope struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, code, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Code:      code,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// statusFor maps engine errors to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, forumguard.ErrInvalidCredentials),
		errors.Is(err, forumguard.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, forumguard.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired"
	case errors.Is(err, forumguard.ErrTokenInvalid):
		return http.StatusUnauthorized, "token_invalid"
	case errors.Is(err, forumguard.ErrRefreshTokenMissing):
		return http.StatusUnauthorized, "refresh_token_missing"
	case errors.Is(err, forumguard.ErrRefreshTokenInvalid):
		return http.StatusUnauthorized, "refresh_token_invalid"
	case errors.Is(err, forumguard.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	middleware.WriteJSONError(w, status, code, "")
}
