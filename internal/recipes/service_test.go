// ABOUTME: Tests for the published-recipes read service.

package recipes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrolog/macro-gateway/internal/store"
)

func seed(t *testing.T, st *store.MemoryStore, n int) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		require.NoError(t, st.CreateRecipe(context.Background(), &store.Recipe{
			ID:        string(rune('a'+i%26)) + "-" + string(rune('0'+i/26)),
			Title:     "Recipe",
			Servings:  1,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestGetMissingRecipe(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil)
	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListNewestFirstAndClamped(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st, nil)
	seed(t, st, 60)

	out, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, out, 50)
	assert.True(t, out[0].CreatedAt.After(out[1].CreatedAt))

	out, err = svc.List(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, out, 5)
}
