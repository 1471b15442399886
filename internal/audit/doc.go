// Package audit dispatches security-relevant auth events asynchronously.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, slog, no-op).
//   - [Dispatcher]: buffered relay with drop-if-full or block-if-full delivery.
//   - [Event]: timestamp, type, user, client IP, request id and metadata.
//
// The engine decides which events exist; this package only moves them.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import forumguard or any sibling internal package.
package audit
