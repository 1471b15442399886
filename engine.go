package forumguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	internalaudit "github.com/MrEthical07/forumguard/internal/audit"
	"github.com/MrEthical07/forumguard/internal/flows"
	"github.com/MrEthical07/forumguard/jwt"
	"github.com/MrEthical07/forumguard/refresh"
)

// Engine issues, rotates and validates forum credentials. It is built once
// by [Builder.Build] and is safe for concurrent use.
type Engine struct {
	config   Config
	jwt      *jwt.Manager
	store    refresh.Store
	users    UserProvider
	verifier PasswordVerifier
	flowDeps flows.Deps
	metrics  *Metrics
	audit    *internalaudit.Dispatcher
	logger   *slog.Logger
	now      func() time.Time

	sweepMu     sync.Mutex
	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
	closeOnce   sync.Once
}

// Close stops the background sweeper and drains pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		e.stopSweeper()
		e.audit.Close()
	})
}

// AuditDropped returns how many audit events were discarded on overflow.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) AccessTTL() time.Duration  { return e.config.JWT.AccessTTL }
func (e *Engine) RefreshTTL() time.Duration { return e.config.JWT.RefreshTTL }

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

/*
====================================
LOGIN
====================================
*/

// Login verifies email and password and issues a fresh token pair.
// Unknown, deleted and wrong-password accounts all yield
// ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunLogin(ctx, email, password, e.flowDeps.Login)
	if res.Failure == flows.LoginFailureNone {
		e.metricInc(MetricLoginSuccess)
		e.emitAudit(ctx, auditEventLoginSuccess, true, res.UserID, nil, nil)
		return &TokenPair{
			UserID:           res.UserID,
			AccessToken:      res.AccessToken,
			RefreshToken:     res.RefreshToken,
			RefreshExpiresAt: res.RefreshExpiresAt,
		}, nil
	}

	var err error
	switch res.Failure {
	case flows.LoginFailureInvalidCredentials:
		err = ErrInvalidCredentials
	case flows.LoginFailureUserLookup, flows.LoginFailureStore:
		err = e.storeUnavailable(ctx, "login", res.Err)
	case flows.LoginFailureIssueAccess:
		err = fmt.Errorf("issue access token: %w", res.Err)
	case flows.LoginFailureNextSecret:
		err = fmt.Errorf("generate refresh secret: %w", res.Err)
	default:
		err = ErrInvalidCredentials
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, err, nil)
	return nil, err
}

/*
====================================
REFRESH
====================================
*/

// Refresh exchanges a refresh secret for a new access token and a new
// secret. The presented secret is consumed; reusing it afterwards returns
// ErrRefreshTokenInvalid.
func (e *Engine) Refresh(ctx context.Context, raw string) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunRefresh(ctx, raw, e.flowDeps.Refresh)
	if res.Failure == flows.RefreshFailureNone {
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.UserID, nil, nil)
		return &TokenPair{
			UserID:           res.UserID,
			AccessToken:      res.AccessToken,
			RefreshToken:     res.RefreshToken,
			RefreshExpiresAt: res.RefreshExpiresAt,
		}, nil
	}

	var err error
	switch res.Failure {
	case flows.RefreshFailureMissing:
		err = ErrRefreshTokenMissing
		e.metricInc(MetricRefreshInvalid)
	case flows.RefreshFailureNotFound:
		err = ErrRefreshTokenInvalid
		e.metricInc(MetricRefreshInvalid)
		e.logger.InfoContext(ctx, "refresh token invalid")
	case flows.RefreshFailureLostRace:
		err = ErrRefreshTokenInvalid
		e.metricInc(MetricRefreshLostRace)
		e.logger.InfoContext(ctx, "refresh token lost rotation race", slog.Int64("user_id", res.UserID))
	case flows.RefreshFailureUserGone:
		err = ErrUnauthorized
		e.metricInc(MetricRefreshUnauthorized)
	case flows.RefreshFailureLookup, flows.RefreshFailureUserLookup, flows.RefreshFailureRotate:
		err = e.storeUnavailable(ctx, "refresh", res.Err)
	case flows.RefreshFailureIssueAccess:
		err = fmt.Errorf("issue access token: %w", res.Err)
	case flows.RefreshFailureNextSecret:
		err = fmt.Errorf("generate refresh secret: %w", res.Err)
	default:
		err = ErrRefreshTokenInvalid
	}

	event := auditEventRefreshFailure
	if errors.Is(err, ErrRefreshTokenInvalid) || errors.Is(err, ErrRefreshTokenMissing) {
		event = auditEventRefreshInvalid
	}
	e.emitAudit(ctx, event, false, res.UserID, err, func() map[string]string {
		return map[string]string{"reason": refreshFailureReason(res.Failure)}
	})
	return nil, err
}

func refreshFailureReason(kind flows.RefreshFailureKind) string {
	switch kind {
	case flows.RefreshFailureMissing:
		return "missing"
	case flows.RefreshFailureNotFound:
		return "not_found"
	case flows.RefreshFailureLostRace:
		return "lost_race"
	case flows.RefreshFailureUserGone:
		return "user_gone"
	case flows.RefreshFailureLookup, flows.RefreshFailureUserLookup:
		return "lookup"
	case flows.RefreshFailureRotate:
		return "rotate"
	default:
		return "internal"
	}
}

/*
====================================
VALIDATE
====================================
*/

// Validate checks an access token without any I/O. Expired tokens yield
// ErrTokenExpired; every other failure yields ErrTokenInvalid.
func (e *Engine) Validate(ctx context.Context, token string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}
	res := flows.RunValidate(token, e.flowDeps.Validate)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	switch res.Status {
	case flows.ValidateOK:
		return &AuthResult{UserID: res.UserID}, nil
	case flows.ValidateExpired:
		e.metricInc(MetricTokenExpired)
		e.emitAudit(ctx, auditEventTokenExpired, false, 0, ErrTokenExpired, nil)
		return nil, ErrTokenExpired
	default:
		e.metricInc(MetricTokenInvalid)
		e.emitAudit(ctx, auditEventTokenInvalid, false, 0, ErrTokenInvalid, nil)
		return nil, ErrTokenInvalid
	}
}

// CurrentUser validates token and loads its account. A token whose user
// is gone or deleted yields ErrUnauthorized.
func (e *Engine) CurrentUser(ctx context.Context, token string) (UserRecord, error) {
	res, err := e.Validate(ctx, token)
	if err != nil {
		return UserRecord{}, err
	}
	return e.UserByID(ctx, res.UserID)
}

// UserByID loads an active account.
func (e *Engine) UserByID(ctx context.Context, userID int64) (UserRecord, error) {
	if e == nil {
		return UserRecord{}, ErrEngineNotReady
	}
	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return UserRecord{}, ErrUnauthorized
		}
		return UserRecord{}, e.storeUnavailable(ctx, "user lookup", err)
	}
	if !user.Active() {
		return UserRecord{}, ErrUnauthorized
	}
	return user, nil
}

/*
====================================
LOGOUT
====================================
*/

// Logout deletes the refresh record of raw. An empty or unknown secret is
// not an error.
func (e *Engine) Logout(ctx context.Context, userID int64, raw string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := flows.RunLogout(ctx, raw, e.flowDeps.Logout); err != nil {
		err = e.storeUnavailable(ctx, "logout", err)
		e.emitAudit(ctx, auditEventLogout, false, userID, err, nil)
		return err
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, nil, nil)
	return nil
}

// LogoutAll deletes every refresh record of userID and returns how many
// were removed. Outstanding access tokens stay valid until they expire.
func (e *Engine) LogoutAll(ctx context.Context, userID int64) (int64, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	n, err := flows.RunLogoutAll(ctx, userID, e.flowDeps.Logout)
	if err != nil {
		err = e.storeUnavailable(ctx, "logout all", err)
		e.emitAudit(ctx, auditEventLogoutAll, false, userID, err, nil)
		return 0, err
	}
	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, nil, func() map[string]string {
		return map[string]string{"removed": strconv.FormatInt(n, 10)}
	})
	return n, nil
}

/*
====================================
REQUEST DEFENSE REPORTING
====================================
*/

// RecordRejection accounts for a request refused before reaching a
// handler. err is ErrRateLimited, ErrCSRFMissing or ErrCSRFMismatch.
func (e *Engine) RecordRejection(ctx context.Context, err error, path string) {
	if e == nil || err == nil {
		return
	}
	event := auditEventCSRFRejected
	if errors.Is(err, ErrRateLimited) {
		e.metricInc(MetricRateLimitHit)
		event = auditEventRateLimitTriggered
	} else {
		e.metricInc(MetricCSRFRejected)
	}
	e.emitAudit(ctx, event, false, 0, err, func() map[string]string {
		return map[string]string{"path": path}
	})
}

func (e *Engine) storeUnavailable(ctx context.Context, op string, cause error) error {
	e.metricInc(MetricStoreUnavailable)
	e.logger.ErrorContext(ctx, "auth backend failure",
		slog.String("op", op),
		slog.Any("error", cause),
	)
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, cause)
}
