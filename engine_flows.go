package forumguard

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/forumguard/internal/flows"
	"github.com/MrEthical07/forumguard/jwt"
	"github.com/MrEthical07/forumguard/refresh"
)

func (e *Engine) initFlowDeps() {
	isUserNotFound := func(err error) bool { return errors.Is(err, ErrUserNotFound) }
	isRefreshNotFound := func(err error) bool { return errors.Is(err, refresh.ErrNotFound) }

	e.flowDeps = flows.Deps{
		Login: flows.LoginDeps{
			GetUserByEmail: func(ctx context.Context, email string) (flows.User, error) {
				u, err := e.users.GetUserByEmail(ctx, email)
				if err != nil {
					return flows.User{}, err
				}
				return toFlowUser(u), nil
			},
			IsUserNotFound:   isUserNotFound,
			VerifyPassword:   e.verifier.Verify,
			DummyHash:        e.verifier.DummyHash(),
			IssueAccessToken: e.jwt.CreateAccess,
			NewRefreshSecret: refresh.NewSecret,
			CreateRefresh:    e.store.Create,
			RefreshTTL:       e.config.JWT.RefreshTTL,
			Now:              e.now,
		},
		Refresh: flows.RefreshDeps{
			LookupRefresh: func(ctx context.Context, raw string) (flows.RefreshRecord, error) {
				rec, err := e.store.Lookup(ctx, raw)
				if err != nil {
					return flows.RefreshRecord{}, err
				}
				return flows.RefreshRecord{UserID: rec.UserID, ExpiresAt: rec.ExpiresAt}, nil
			},
			IsNotFound: isRefreshNotFound,
			GetUserByID: func(ctx context.Context, userID int64) (flows.User, error) {
				u, err := e.users.GetUserByID(ctx, userID)
				if err != nil {
					return flows.User{}, err
				}
				return toFlowUser(u), nil
			},
			IsUserNotFound:   isUserNotFound,
			IssueAccessToken: e.jwt.CreateAccess,
			NewRefreshSecret: refresh.NewSecret,
			RotateRefresh: func(ctx context.Context, oldRaw, newRaw string, userID int64, expiresAt time.Time) error {
				return e.store.Rotate(ctx, oldRaw, newRaw, userID, expiresAt)
			},
			RefreshTTL: e.config.JWT.RefreshTTL,
			Now:        e.now,
		},
		Validate: flows.ValidateDeps{
			ParseAccess: e.jwt.ParseAccess,
			IsExpired:   func(err error) bool { return errors.Is(err, jwt.ErrExpired) },
		},
		Logout: flows.LogoutDeps{
			DeleteRefresh:    e.store.Delete,
			DeleteAllForUser: e.store.DeleteAllForUser,
		},
	}
}

func toFlowUser(u UserRecord) flows.User {
	return flows.User{
		ID:           u.ID,
		PasswordHash: u.PasswordHash,
		Active:       u.Active(),
	}
}
