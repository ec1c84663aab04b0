// ABOUTME: Idempotency mechanism embedded in keyed draft mutations.
// ABOUTME: Replays stored results and resolves concurrent same-key races.

package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/macrolog/macro-gateway/internal/store"
)

// withIdempotency wraps a mutation in a transaction with at-most-once
// semantics. Without a key the mutation simply runs transactionally. With a
// key, a stored record for (operation, key, entityID) short-circuits the
// mutation and returns the original bytes; otherwise the mutation runs and
// its result is recorded in the same transaction.
//
// When the record insert loses a race against a concurrently-committed record
// for the same composite key, the whole transaction rolls back and the
// winner's result is re-fetched in a fresh read. Callers retrying with the
// same key therefore always observe a single consistent outcome; the conflict
// itself is never surfaced.
func (s *Service) withIdempotency(ctx context.Context, operation, key, entityID string, fn func(tx store.Store) (any, error)) (json.RawMessage, error) {
	if key == "" {
		var out json.RawMessage
		err := s.store.WithTx(ctx, func(tx store.Store) error {
			result, err := fn(tx)
			if err != nil {
				return err
			}
			out, err = json.Marshal(result)
			return err
		})
		return out, err
	}

	var out json.RawMessage
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		rec, err := tx.GetIdempotencyRecord(ctx, operation, key, entityID)
		if err == nil {
			// Replay: return the stored payload without re-executing side effects.
			out = rec.Result
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("looking up idempotency record: %w", err)
		}

		result, err := fn(tx)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		if err := tx.InsertIdempotencyRecord(ctx, &store.IdempotencyRecord{
			Operation: operation,
			Key:       key,
			EntityID:  entityID,
			Result:    payload,
		}); err != nil {
			return err
		}
		out = payload
		return nil
	})

	if errors.Is(err, store.ErrDuplicateIdempotencyKey) {
		// A concurrent replay won; our transaction rolled back. Return the
		// winner's result from a fresh read.
		rec, fetchErr := s.store.GetIdempotencyRecord(ctx, operation, key, entityID)
		if fetchErr != nil {
			return nil, fmt.Errorf("fetching winning idempotency record: %w", fetchErr)
		}
		s.logger.Debug("idempotency conflict resolved to winning record",
			"operation", operation, "entity_id", entityID)
		return rec.Result, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
