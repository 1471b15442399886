package flows

import "context"

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	DeleteRefresh    func(ctx context.Context, raw string) error
	DeleteAllForUser func(ctx context.Context, userID int64) (int64, error)
}

// RunLogout deletes the caller's refresh record. A missing secret is a no-op
// so that clients without a cookie can still log out.
func RunLogout(ctx context.Context, raw string, deps LogoutDeps) error {
	if raw == "" {
		return nil
	}
	return deps.DeleteRefresh(ctx, raw)
}

// RunLogoutAll deletes every refresh record of userID.
func RunLogoutAll(ctx context.Context, userID int64, deps LogoutDeps) (int64, error) {
	return deps.DeleteAllForUser(ctx, userID)
}
