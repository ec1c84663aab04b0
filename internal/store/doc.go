// Package store provides persistent storage for the gateway using SQLite.
//
// # Architecture
//
// A single Store interface covers every entity the services touch: users and
// profiles, catalog products, recipe drafts with their ingredients and steps,
// published recipes, and idempotency records. SQLiteStore implements it on
// modernc.org/sqlite; MemoryStore implements it with maps for tests.
//
// # Transactions
//
// WithTx runs a function against a transactional view of the store. Every
// multi-step draft mutation (lookup, write, nutrition recompute, idempotency
// record insert) happens inside one WithTx call so partial application is
// never observable. Nested WithTx calls reuse the open transaction.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// The schema is created automatically on startup. The UNIQUE index on
// idempotency_records(operation, key, entity_id) is the backstop that
// serializes concurrent replays of the same keyed mutation.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrDuplicateIdempotencyKey: Composite idempotency key already recorded
//
// All methods accept context.Context for cancellation support.
package store
