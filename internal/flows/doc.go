// Package flows contains the pure orchestration behind each Engine
// operation.
//
// Each Run function takes a dependency struct of funcs and returns a tagged
// result (a failure kind plus payload). Mapping kinds to public errors,
// metrics and audit events is the Engine's job.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import forumguard (to avoid import cycles).
//   - Perform I/O directly; all I/O goes through dependency funcs.
package flows
