// ABOUTME: Package documentation for the recipe-draft lifecycle.
// ABOUTME: Describes the state machine and the idempotency contract.

// Package drafts implements the recipe-draft state machine: a draft starts
// in DRAFT, accumulates ingredients and steps, and terminally becomes
// PUBLISHED when an immutable Recipe snapshot is taken.
//
// Every multi-step mutation runs in a single store transaction and ends by
// recomputing the draft's nutrition figures, so partially-applied mutations
// are never observable.
//
// # Idempotency
//
// Mutations accept an optional client-supplied key. A keyed call stores its
// marshaled result in the same transaction; replays return those exact bytes
// without re-executing side effects. Records are scoped per operation and
// per target entity. When two callers race on the same key, the loser's
// transaction rolls back and the winner's stored result is returned, so
// retries always observe a single consistent outcome.
package drafts
