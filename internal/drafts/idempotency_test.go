// ABOUTME: Tests for keyed-mutation idempotency under concurrency.
// ABOUTME: Covers parallel identical-key calls and the lost-insert-race path.

package drafts

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrolog/macro-gateway/internal/store"
)

func TestConcurrentKeyedCreates(t *testing.T) {
	svc, _ := newService(t)

	const workers = 8
	results := make([]json.RawMessage, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			raw, err := svc.Create(context.Background(), testUser, CreateInput{
				Title:          "Borscht",
				IdempotencyKey: "k-race",
			})
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			results[i] = raw
		}(i)
	}
	wg.Wait()

	// Every caller observes the same stored payload, so only one draft id
	// was ever handed out.
	require.NotEmpty(t, results[0])
	for i := 1; i < workers; i++ {
		assert.Equal(t, string(results[0]), string(results[i]), "worker %d diverged", i)
	}
}

// loserStore simulates losing the record-insert race: the in-transaction
// lookup misses, the insert collides, and the fresh post-rollback read sees
// the record a concurrent caller committed.
type loserStore struct {
	*store.MemoryStore
	winner *store.IdempotencyRecord
}

func (s *loserStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return s.MemoryStore.WithTx(ctx, func(tx store.Store) error {
		return fn(&loserTx{Store: tx})
	})
}

func (s *loserStore) GetIdempotencyRecord(ctx context.Context, operation, key, entityID string) (*store.IdempotencyRecord, error) {
	return s.winner, nil
}

type loserTx struct {
	store.Store
}

func (t *loserTx) GetIdempotencyRecord(ctx context.Context, operation, key, entityID string) (*store.IdempotencyRecord, error) {
	return nil, store.ErrNotFound
}

func (t *loserTx) InsertIdempotencyRecord(ctx context.Context, rec *store.IdempotencyRecord) error {
	return store.ErrDuplicateIdempotencyKey
}

func TestKeyedCreateLosingRaceReturnsWinner(t *testing.T) {
	winner := json.RawMessage(`{"id":"winner-draft","title":"Borscht","status":"DRAFT"}`)
	st := &loserStore{
		MemoryStore: store.NewMemoryStore(),
		winner:      &store.IdempotencyRecord{Result: winner},
	}
	svc := NewService(st, nil)

	raw, err := svc.Create(context.Background(), testUser, CreateInput{
		Title:          "Borscht",
		IdempotencyKey: "k-contested",
	})
	require.NoError(t, err)
	assert.JSONEq(t, string(winner), string(raw))
}
