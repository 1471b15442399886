// Package httpauth exposes the forum's authentication endpoints over
// net/http:
//
//	POST   /v1/auth/session        login, sets the refresh cookie
//	DELETE /v1/auth/session        logout (bearer required), clears it
//	POST   /v1/auth/token/refresh  rotates the refresh cookie
//	GET    /v1/auth/me             current user (bearer required)
//	GET    /health                 liveness
//
// Handlers translate HTTP into Engine calls and Engine errors into status
// codes. They hold no authentication logic of their own.
package httpauth
