package redislimiter

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit is the number of requests allowed per Window.
type Limit struct {
	Limit  int
	Window time.Duration
}

var fallback = Limit{Limit: 100, Window: time.Minute}

// slideScript trims KEYS[1] to the window starting at ARGV[2] and records
// ARGV[1] under member ARGV[3] if fewer than ARGV[4] remain. Returns 1 when
// recorded.
var slideScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[2])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[4]) then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// Limiter is a sliding-window limiter on Redis sorted sets, shared by every
// instance pointed at the same Redis.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	limits map[string]Limit
}

func New(rdb *redis.Client, limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{rdb: rdb, prefix: "quickauth:rl:", limits: limits}
}

func (l *Limiter) limitFor(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return fallback
}

// Allow reports whether key may make another request in bucket. The check and
// the record happen in one script, so concurrent callers cannot overshoot.
func (l *Limiter) Allow(ctx context.Context, bucket, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, errors.New("redislimiter: bucket and key required")
	}
	lim := l.limitFor(bucket)
	now := time.Now()
	nowMs := now.UnixMilli()

	n, err := slideScript.Run(ctx, l.rdb, []string{l.prefix + key + ":" + bucket},
		nowMs,
		nowMs-lim.Window.Milliseconds(),
		// Nanoseconds keep bursts within one millisecond distinct.
		strconv.FormatInt(now.UnixNano(), 10),
		lim.Limit,
		(lim.Window + time.Second).Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
