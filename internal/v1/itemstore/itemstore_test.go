package itemstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, rc.Ping(context.Background()).Err())

	st := &Store{client: rc, cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "itemstore-test"})}
	return st, mr
}

func TestStore_AddAndSample(t *testing.T) {
	st, mr := newTestStore(t)
	defer mr.Close()

	ctx := context.Background()

	st.Add(ctx, "pizza", "🍕")
	st.Add(ctx, "tacos", "🌮")

	got := st.Sample(ctx, 2)
	assert.Len(t, got, 2)

	texts := map[string]bool{}
	for _, s := range got {
		texts[s.Text] = true
	}
	assert.True(t, texts["pizza"] || texts["tacos"])
}

func TestStore_Sample_EmptyStoreReturnsEmpty(t *testing.T) {
	st, mr := newTestStore(t)
	defer mr.Close()

	got := st.Sample(context.Background(), 5)
	assert.Empty(t, got)
}

func TestStore_Sample_NilReceiverSafe(t *testing.T) {
	var st *Store
	assert.Empty(t, st.Sample(context.Background(), 5))
	assert.NoError(t, st.Ping(context.Background()))
	assert.Nil(t, st.Client())
	assert.NoError(t, st.Close())
}

func TestStore_Sample_NilClientSafe(t *testing.T) {
	st := &Store{}
	assert.Empty(t, st.Sample(context.Background(), 5))
}

func TestStore_Ping(t *testing.T) {
	st, mr := newTestStore(t)
	defer mr.Close()
	assert.NoError(t, st.Ping(context.Background()))

	mr.Close()
	assert.Error(t, st.Ping(context.Background()))
}

func TestStore_Client_ReturnsUnderlying(t *testing.T) {
	st, mr := newTestStore(t)
	defer mr.Close()
	assert.NotNil(t, st.Client())
}
