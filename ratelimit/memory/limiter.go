package memorylimiter

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Limit is the number of requests allowed per Window.
type Limit struct {
	Limit  int
	Window time.Duration
}

var fallback = Limit{Limit: 100, Window: time.Minute}

type windowKey struct {
	bucket string
	caller string
}

// Limiter is a single-node sliding-window limiter for deployments without Redis.
type Limiter struct {
	mu     sync.Mutex
	limits map[string]Limit
	// buckets holds accepted request times in unix millis, oldest first.
	buckets map[windowKey][]int64
	now     func() time.Time
}

// New builds a limiter. Buckets missing from limits use the "default" entry,
// or 100 per minute when there is none.
func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{
		limits:  limits,
		buckets: make(map[windowKey][]int64),
		now:     time.Now,
	}
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

// WithClock overrides the time source.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow reports whether key may make another request in bucket and records it
// if so. Denied attempts are not recorded. A nil Limiter allows everything.
func (l *Limiter) Allow(_ context.Context, bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, errors.New("memorylimiter: bucket and key required")
	}

	lim := l.limitFor(bucket)
	now := l.now().UnixMilli()
	wk := windowKey{bucket: bucket, caller: key}

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := trim(l.buckets[wk], now-lim.Window.Milliseconds())
	if len(hits) >= lim.Limit {
		l.buckets[wk] = hits
		return false, nil
	}
	l.buckets[wk] = append(hits, now)
	return true, nil
}

// trim drops hits older than cutoff.
func trim(hits []int64, cutoff int64) []int64 {
	i := sort.Search(len(hits), func(i int) bool { return hits[i] >= cutoff })
	return hits[i:]
}

// Sweep forgets callers with no requests left in their window.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now().UnixMilli()
	for wk, hits := range l.buckets {
		cutoff := now - l.limitFor(wk.bucket).Window.Milliseconds()
		if len(trim(hits, cutoff)) == 0 {
			delete(l.buckets, wk)
		}
	}
}
