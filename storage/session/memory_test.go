package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }()

	store := NewMemoryStore()

	val, err := store.Get(ctx, "k", "f")
	assert.NoError(t, err)
	assert.Empty(t, val)

	assert.NoError(t, store.Set(ctx, "k", "f", "v", time.Hour))
	val, _ = store.Get(ctx, "k", "f")
	assert.Equal(t, "v", val)

	val, _ = store.Get(ctx, "k", "other")
	assert.Empty(t, val)

	// expired
	now = now.Add(time.Hour)
	val, _ = store.Get(ctx, "k", "f")
	assert.Empty(t, val)

	assert.NoError(t, store.Set(ctx, "k", "f", "v2", 0))
	val, _ = store.Get(ctx, "k", "f")
	assert.Equal(t, "v2", val)

	assert.NoError(t, store.Delete(ctx, "k"))
	val, _ = store.Get(ctx, "k", "f")
	assert.Empty(t, val)
}
