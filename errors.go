package forumguard

import "errors"

var (
	// ErrTokenInvalid is returned when an access token fails any check other
	// than expiry.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned when an access token is well formed,
	// correctly signed and only past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrRefreshTokenMissing is returned when a refresh request carries no
	// secret.
	ErrRefreshTokenMissing = errors.New("refresh token missing")
	// ErrRefreshTokenInvalid is returned when a refresh secret is unknown,
	// expired or lost a rotation race.
	ErrRefreshTokenInvalid = errors.New("refresh token invalid")
	// ErrRateLimited is returned by the rate-limit gate.
	ErrRateLimited = errors.New("rate limited")
	// ErrCSRFMissing is returned when the CSRF cookie or header is absent.
	ErrCSRFMissing = errors.New("csrf token missing")
	// ErrCSRFMismatch is returned when the CSRF cookie and header differ.
	ErrCSRFMismatch = errors.New("csrf token mismatch")
	// ErrStoreUnavailable is returned when the refresh-token store fails or
	// times out. No state was changed.
	ErrStoreUnavailable = errors.New("token store unavailable")
	// ErrUnauthorized is returned when the user behind a valid credential no
	// longer exists or is deactivated.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned for a wrong email or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by UserProvider implementations.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is returned when an Engine method is called on a nil
	// or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
