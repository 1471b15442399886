// Package rate provides the in-memory sliding-window limiter used by the
// request admission gate.
//
// # Window semantics
//
// Each key keeps the timestamps of its admitted requests inside the trailing
// window. A request is admitted while fewer than max timestamps remain after
// pruning; rejected requests are not recorded.
//
// # Memory bound
//
// The number of tracked keys is capped. When the cap is reached, the tenth of
// keys that were seen least recently is evicted in one batch before the
// current request is processed.
//
// # Locking
//
// Keys are spread over shards. A shard lock guards only map lookup and
// insertion; prune/decide/append runs under the per-key lock. The eviction
// lock is taken only by the batch eviction sweep.
//
// # What this package must NOT do
//
//   - Resolve client addresses (see package clientip).
//   - Know about HTTP routes or policies (those live in middleware).
//   - Be imported outside the forumguard module.
package rate
