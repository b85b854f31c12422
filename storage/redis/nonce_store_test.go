package redisstore_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PaulFidika/quickauth/nonce"
	redisstore "github.com/PaulFidika/quickauth/storage/redis"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ nonce.Store          = (*redisstore.NonceStore)(nil)
	_ nonce.AtomicConsumer = (*redisstore.NonceStore)(nil)
)

func newStore(t *testing.T) (*redisstore.NonceStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redisstore.NewNonceStore(rdb, ""), mr, rdb
}

func TestNonceStore_PutGetDelete(t *testing.T) {
	s, mr, _ := newStore(t)
	ctx := context.Background()
	exp := time.Now().Add(5 * time.Minute).UnixMilli()

	require.NoError(t, s.Put(ctx, "n1", exp))
	assert.True(t, mr.Exists("quickauth:nonce:n1"))
	assert.Greater(t, mr.TTL("quickauth:nonce:n1"), 4*time.Minute)

	got, ok, err := s.Get(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, exp, got)

	require.NoError(t, s.Delete(ctx, "n1"))
	_, ok, err = s.Get(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNonceStore_KeyExpiresWithNonce(t *testing.T) {
	s, mr, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "n1", time.Now().Add(5*time.Minute).UnixMilli()))

	mr.FastForward(6 * time.Minute)
	_, ok, err := s.Get(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNonceStore_ConsumeActive(t *testing.T) {
	s, mr, _ := newStore(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()
	exp := now + 300_000

	ok, err := s.ConsumeActive(ctx, "missing", now)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "n1", exp))
	ok, err = s.ConsumeActive(ctx, "n1", exp)
	require.NoError(t, err)
	assert.False(t, ok, "expired at equality")
	assert.True(t, mr.Exists("quickauth:nonce:n1"), "expired consume does not mutate")

	ok, err = s.ConsumeActive(ctx, "n1", now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists("quickauth:nonce:n1"))

	ok, err = s.ConsumeActive(ctx, "n1", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNonceStore_SingleUseAcrossServices(t *testing.T) {
	s, _, rdb := newStore(t)
	ctx := context.Background()

	// Two services with separate in-process locks share one Redis.
	a := nonce.NewService(s, nil)
	b := nonce.NewService(redisstore.NewNonceStore(rdb, ""), nil)
	_, err := a.Initialize(ctx, "shared")
	require.NoError(t, err)

	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		svc := a
		if i%2 == 1 {
			svc = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.Consume(ctx, "shared")
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), wins.Load())
}
