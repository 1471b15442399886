package forumguard

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventRefreshSuccess     = "refresh_success"
	auditEventRefreshInvalid     = "refresh_invalid"
	auditEventRefreshFailure     = "refresh_failure"
	auditEventTokenExpired       = "token_expired"
	auditEventTokenInvalid       = "token_invalid"
	auditEventLogout             = "logout"
	auditEventLogoutAll          = "logout_all"
	auditEventRateLimitTriggered = "rate_limit_triggered"
	auditEventCSRFRejected       = "csrf_rejected"
)

// AuditErrorCode is the stable error string stored on audit events.
type AuditErrorCode string

// auditCodes is checked in order; the first sentinel matched wins, so
// ErrTokenExpired must precede ErrTokenInvalid.
var auditCodes = [...]struct {
	err  error
	code AuditErrorCode
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrUserNotFound, "unauthorized"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrRateLimited, "rate_limited"},
	{ErrTokenExpired, "token_expired"},
	{ErrTokenInvalid, "token_invalid"},
	{ErrRefreshTokenMissing, "refresh_token_missing"},
	{ErrRefreshTokenInvalid, "refresh_token_invalid"},
	{ErrCSRFMissing, "csrf_missing"},
	{ErrCSRFMismatch, "csrf_mismatch"},
	{ErrStoreUnavailable, "store_unavailable"},
}

// emitAudit queues one event. meta is only invoked when auditing is on.
func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, userID int64, err error, meta func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	ev := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        ClientIPFromContext(ctx),
		RequestID: RequestIDFromContext(ctx),
		Success:   success,
		Error:     string(auditErrorCode(err)),
	}
	if meta != nil {
		ev.Metadata = meta()
	}
	e.audit.Emit(ctx, ev)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}
	for _, c := range auditCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal_error"
}
