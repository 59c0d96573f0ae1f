package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Hour)
}

func TestRedisStoreCreateGetUpdate(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	conv := &Conversation{ID: "c1", OrgID: "org1"}
	require.NoError(t, store.Create(ctx, conv))
	assert.Equal(t, int64(1), conv.Version)

	got, err := store.Get(ctx, "org1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, int64(1), got.Version)

	got.Turns = append(got.Turns, TurnResult{Text: "eerste beurt", UrgencyTier: TierNormal})
	require.NoError(t, store.Update(ctx, got))
	assert.Equal(t, int64(2), got.Version)

	fresh, err := store.Get(ctx, "org1", "c1")
	require.NoError(t, err)
	require.Len(t, fresh.Turns, 1)
	assert.Equal(t, "eerste beurt", fresh.Turns[0].Text)
}

func TestRedisStoreCreateTwiceConflicts(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Conversation{ID: "c1", OrgID: "org1"}))
	assert.ErrorIs(t, store.Create(ctx, &Conversation{ID: "c1", OrgID: "org1"}), ErrStoreConflict)
}

func TestRedisStoreGetMissing(t *testing.T) {
	store := newTestRedisStore(t)
	_, err := store.Get(context.Background(), "org1", "missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestRedisStoreUpdateStaleVersionConflicts(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Conversation{ID: "c1", OrgID: "org1"}))

	a, err := store.Get(ctx, "org1", "c1")
	require.NoError(t, err)
	b, err := store.Get(ctx, "org1", "c1")
	require.NoError(t, err)

	a.Turns = append(a.Turns, TurnResult{Text: "first"})
	require.NoError(t, store.Update(ctx, a))

	b.Turns = append(b.Turns, TurnResult{Text: "second"})
	assert.ErrorIs(t, store.Update(ctx, b), ErrStoreConflict)
}

func TestRedisStoreUpdateMissingConversation(t *testing.T) {
	store := newTestRedisStore(t)
	err := store.Update(context.Background(), &Conversation{ID: "ghost", OrgID: "org1", Version: 1})
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Hour)
	mr.Close()

	_, err := store.Get(context.Background(), "org1", "c1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
