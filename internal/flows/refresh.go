package flows

import (
	"context"
	"time"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureMissing
	RefreshFailureNotFound
	RefreshFailureLookup
	RefreshFailureUserGone
	RefreshFailureUserLookup
	RefreshFailureIssueAccess
	RefreshFailureNextSecret
	RefreshFailureLostRace
	RefreshFailureRotate
)

// RefreshResult carries either the rotated credentials or failure metadata.
type RefreshResult struct {
	Failure          RefreshFailureKind
	Err              error
	UserID           int64
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RefreshRecord is the flow-local view of a stored refresh record.
type RefreshRecord struct {
	UserID    int64
	ExpiresAt time.Time
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	LookupRefresh    func(ctx context.Context, raw string) (RefreshRecord, error)
	IsNotFound       func(error) bool
	GetUserByID      func(ctx context.Context, userID int64) (User, error)
	IsUserNotFound   func(error) bool
	IssueAccessToken func(userID int64) (string, error)
	NewRefreshSecret func() (string, error)
	RotateRefresh    func(ctx context.Context, oldRaw, newRaw string, userID int64, expiresAt time.Time) error
	RefreshTTL       time.Duration
	Now              func() time.Time
}

// RunRefresh exchanges a refresh secret for a new access token and a new
// secret. Only the final rotation mutates the store; losing a concurrent
// rotation reports RefreshFailureLostRace.
func RunRefresh(ctx context.Context, raw string, deps RefreshDeps) RefreshResult {
	if raw == "" {
		return RefreshResult{Failure: RefreshFailureMissing}
	}
	now := nowOrDefault(deps.Now)

	rec, err := deps.LookupRefresh(ctx, raw)
	if err != nil {
		if deps.IsNotFound(err) {
			return RefreshResult{Failure: RefreshFailureNotFound, Err: err}
		}
		return RefreshResult{Failure: RefreshFailureLookup, Err: err}
	}

	user, err := deps.GetUserByID(ctx, rec.UserID)
	if err != nil {
		if deps.IsUserNotFound(err) {
			return RefreshResult{Failure: RefreshFailureUserGone, Err: err, UserID: rec.UserID}
		}
		return RefreshResult{Failure: RefreshFailureUserLookup, Err: err, UserID: rec.UserID}
	}
	if !user.Active {
		return RefreshResult{Failure: RefreshFailureUserGone, UserID: rec.UserID}
	}

	access, err := deps.IssueAccessToken(user.ID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssueAccess, Err: err, UserID: user.ID}
	}

	next, err := deps.NewRefreshSecret()
	if err != nil {
		return RefreshResult{Failure: RefreshFailureNextSecret, Err: err, UserID: user.ID}
	}

	expiresAt := now().Add(deps.RefreshTTL)
	if err := deps.RotateRefresh(ctx, raw, next, user.ID, expiresAt); err != nil {
		if deps.IsNotFound(err) {
			return RefreshResult{Failure: RefreshFailureLostRace, Err: err, UserID: user.ID}
		}
		return RefreshResult{Failure: RefreshFailureRotate, Err: err, UserID: user.ID}
	}

	return RefreshResult{
		UserID:           user.ID,
		AccessToken:      access,
		RefreshToken:     next,
		RefreshExpiresAt: expiresAt,
	}
}
