// Package forumguard provides authentication and request defense for a
// community-forum backend: short-lived JWT access tokens, rotating opaque
// refresh tokens with atomic rotation, and the configuration shared by the
// rate-limit and CSRF middleware.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// forumguard is the public surface. It exposes [Engine], [Builder],
// [Config] and value types. Flow orchestration, the sliding-window
// limiter and audit dispatch live under internal/. Refresh-token
// persistence lives in the refresh package and is reached only through the
// [refresh.Store] interface.
//
// # What this package must NOT do
//
//   - Expose Redis clients or SQL handles in its public API.
//   - Perform I/O outside of Engine methods.
//   - Import any sub-package that re-imports forumguard.
//
// # Performance contract
//
// Validate is the hot path. It performs no store round-trips. Login,
// Refresh and Logout perform a bounded number of store calls, each limited
// by Store.OpTimeout.
package forumguard
