package flows

import (
	"context"
	"errors"
	"time"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInvalidCredentials
	LoginFailureUserLookup
	LoginFailureIssueAccess
	LoginFailureNextSecret
	LoginFailureStore
)

// LoginResult carries either the issued credentials or failure metadata.
type LoginResult struct {
	Failure          LoginFailureKind
	Err              error
	UserID           int64
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	// GetUserByEmail returns ErrUserNotFound (any error matched by
	// IsUserNotFound) for unknown or deleted accounts.
	GetUserByEmail   func(ctx context.Context, email string) (User, error)
	IsUserNotFound   func(error) bool
	VerifyPassword   func(plain, hash string) bool
	DummyHash        string
	IssueAccessToken func(userID int64) (string, error)
	NewRefreshSecret func() (string, error)
	CreateRefresh    func(ctx context.Context, userID int64, raw string, expiresAt time.Time) error
	RefreshTTL       time.Duration
	Now              func() time.Time
}

// RunLogin verifies credentials and issues an access token plus a stored
// refresh secret. Unknown accounts still pay for one password verification.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	now := nowOrDefault(deps.Now)

	user, err := deps.GetUserByEmail(ctx, email)
	found := err == nil && user.Active
	if err != nil && (deps.IsUserNotFound == nil || !deps.IsUserNotFound(err)) {
		// Equalise timing before surfacing a backend failure.
		deps.VerifyPassword(password, deps.DummyHash)
		return LoginResult{Failure: LoginFailureUserLookup, Err: err}
	}

	hash := deps.DummyHash
	if found {
		hash = user.PasswordHash
	}
	valid := deps.VerifyPassword(password, hash)

	if !found || !valid || password == "" {
		return LoginResult{
			Failure: LoginFailureInvalidCredentials,
			Err:     errors.New("invalid credentials"),
			UserID:  user.ID,
		}
	}

	access, err := deps.IssueAccessToken(user.ID)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssueAccess, Err: err, UserID: user.ID}
	}

	raw, err := deps.NewRefreshSecret()
	if err != nil {
		return LoginResult{Failure: LoginFailureNextSecret, Err: err, UserID: user.ID}
	}

	expiresAt := now().Add(deps.RefreshTTL)
	if err := deps.CreateRefresh(ctx, user.ID, raw, expiresAt); err != nil {
		return LoginResult{Failure: LoginFailureStore, Err: err, UserID: user.ID}
	}

	return LoginResult{
		UserID:           user.ID,
		AccessToken:      access,
		RefreshToken:     raw,
		RefreshExpiresAt: expiresAt,
	}
}
