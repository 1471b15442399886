// Package middleware holds the HTTP request-defense and authentication
// layers that sit in front of the forum handlers.
//
// # Filters
//
//   - [CSRFGuard] enforces the double-submit cookie pattern on
//     state-changing requests and mints the cookie on safe ones.
//   - [RateLimitGate] admits or rejects writes per client IP using a
//     per-route sliding-window policy table.
//
// Filters are composed with a [Pipeline]. The deployment order is
//
//	LogRequest -> CSRFGuard -> RateLimitGate -> mux (-> Guard -> handler)
//
// so that forged requests never consume rate-limit budget. The order is
// assembly configuration; no filter depends on another.
//
// # Guards
//
// [Guard] reads the Authorization bearer token, calls Engine.Validate and
// injects the result into the request context. Expired and invalid tokens
// are reported with distinct error codes.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Touch the refresh-token store.
//   - Write a response once a filter has admitted the request.
package middleware
