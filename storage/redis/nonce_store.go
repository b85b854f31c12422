package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript deletes KEYS[1] only while its stored expiry is still ahead of ARGV[1].
var consumeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then return 0 end
if tonumber(ARGV[1]) >= tonumber(v) then return 0 end
redis.call('DEL', KEYS[1])
return 1
`)

// NonceStore keeps nonce expiries in Redis. Keys expire at the nonce's own
// expiry, so no sweeping is needed.
type NonceStore struct {
	rdb   *redis.Client
	keyNS string
}

// NewNonceStore creates a Redis-backed nonce store.
func NewNonceStore(rdb *redis.Client, keyPrefix string) *NonceStore {
	if keyPrefix == "" {
		keyPrefix = "quickauth:nonce:"
	}
	return &NonceStore{rdb: rdb, keyNS: keyPrefix}
}

func (s *NonceStore) key(id string) string { return s.keyNS + id }

// Put stores expiresAt and sets the key to expire at the same instant.
func (s *NonceStore) Put(ctx context.Context, id string, expiresAt int64) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.key(id), expiresAt, 0)
	pipe.PExpireAt(ctx, s.key(id), time.UnixMilli(expiresAt))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *NonceStore) Get(ctx context.Context, id string) (int64, bool, error) {
	v, err := s.rdb.Get(ctx, s.key(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (s *NonceStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.key(id)).Err()
}

// ConsumeActive atomically checks and deletes the nonce.
func (s *NonceStore) ConsumeActive(ctx context.Context, id string, now int64) (bool, error) {
	n, err := consumeScript.Run(ctx, s.rdb, []string{s.key(id)}, now).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
