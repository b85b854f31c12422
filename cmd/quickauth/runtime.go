package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/PaulFidika/quickauth"
	"github.com/PaulFidika/quickauth/adapters/ginutil"
	"github.com/PaulFidika/quickauth/config"
	"github.com/PaulFidika/quickauth/core"
	"github.com/PaulFidika/quickauth/logging"
	"github.com/PaulFidika/quickauth/nonce"
	memorylimiter "github.com/PaulFidika/quickauth/ratelimit/memory"
	redislimiter "github.com/PaulFidika/quickauth/ratelimit/redis"
	riverscheduler "github.com/PaulFidika/quickauth/scheduler/river"
	memorystore "github.com/PaulFidika/quickauth/storage/memory"
	pgstore "github.com/PaulFidika/quickauth/storage/postgres"
	redisstore "github.com/PaulFidika/quickauth/storage/redis"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// runtime owns the backends a command needs and tears them down in reverse.
type runtime struct {
	s     config.Settings
	rdb   *redis.Client
	pool  *pgxpool.Pool
	river *riverscheduler.Scheduler

	background []func(context.Context) error
	closers    []func()
}

func newRuntime(ctx context.Context, s config.Settings) (*runtime, error) {
	rt := &runtime{s: s}
	if s.RedisURL != "" {
		opts, err := redis.ParseURL(s.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rt.rdb = redis.NewClient(opts)
		rt.closers = append(rt.closers, func() { _ = rt.rdb.Close() })
		if err := rt.rdb.Ping(ctx).Err(); err != nil {
			rt.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}
	if s.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, s.DatabaseURL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.pool = pool
		rt.closers = append(rt.closers, pool.Close)
	}
	return rt, nil
}

// Dispatcher builds the token verifier for the configured strategy.
func (rt *runtime) Dispatcher(ctx context.Context) (*core.Dispatcher, error) {
	strategy, err := core.ParseStrategy(rt.s.Strategy)
	if err != nil {
		return nil, err
	}
	return quickauth.New(
		quickauth.WithContext(ctx),
		quickauth.WithStrategy(strategy),
		quickauth.WithHTTPClient(&http.Client{Timeout: rt.s.HTTPTimeout}),
		quickauth.WithJWKSRefresh(rt.s.JWKSRefresh),
	)
}

// Nonces picks a store (Postgres, then Redis, then memory) and an alarm
// scheduler, and registers the sweeper for stores that keep expired rows.
func (rt *runtime) Nonces() (*nonce.Service, error) {
	var store nonce.Store
	switch {
	case rt.pool != nil:
		store = pgstore.NewNonceStore(rt.pool)
	case rt.rdb != nil:
		store = redisstore.NewNonceStore(rt.rdb, "")
	default:
		store = memorystore.NewNonceStore()
	}

	var sched nonce.Scheduler
	switch rt.s.Scheduler {
	case "river":
		if rt.pool == nil {
			return nil, errors.New("river scheduler requires a database")
		}
		rs, err := riverscheduler.New(rt.pool, riverscheduler.Config{})
		if err != nil {
			return nil, err
		}
		rt.river = rs
		sched = rs
	default:
		ts := nonce.NewTimerScheduler()
		rt.closers = append(rt.closers, ts.Stop)
		sched = ts
	}

	svc := nonce.NewService(store, sched, nonce.WithTTL(rt.s.NonceTTL))

	if exp, ok := store.(nonce.Expirer); ok {
		sw, err := nonce.NewSweeper(exp, rt.s.SweepSchedule)
		if err != nil {
			return nil, fmt.Errorf("sweep schedule: %w", err)
		}
		rt.background = append(rt.background, func(ctx context.Context) error {
			sw.Start()
			<-ctx.Done()
			sw.Stop(context.Background())
			return nil
		})
	}
	return svc, nil
}

// Limiter returns a Redis limiter when Redis is configured, otherwise an
// in-memory one swept on a cron schedule.
func (rt *runtime) Limiter() (ginutil.RateLimiter, error) {
	w := rt.s.RateLimitWindow
	if rt.rdb != nil {
		return redislimiter.New(rt.rdb, map[string]redislimiter.Limit{
			ginutil.RLNonceIssue: {Limit: rt.s.NonceIssueLimit, Window: w},
			ginutil.RLSIWFVerify: {Limit: rt.s.SIWFVerifyLimit, Window: w},
			ginutil.RLVerifyJWT:  {Limit: rt.s.VerifyJWTLimit, Window: w},
		}), nil
	}
	lim := memorylimiter.New(map[string]memorylimiter.Limit{
		ginutil.RLNonceIssue: {Limit: rt.s.NonceIssueLimit, Window: w},
		ginutil.RLSIWFVerify: {Limit: rt.s.SIWFVerifyLimit, Window: w},
		ginutil.RLVerifyJWT:  {Limit: rt.s.VerifyJWTLimit, Window: w},
	})
	c := cron.New()
	if _, err := c.AddFunc(rt.s.SweepSchedule, lim.Sweep); err != nil {
		return nil, fmt.Errorf("limiter sweep schedule: %w", err)
	}
	rt.background = append(rt.background, func(ctx context.Context) error {
		c.Start()
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	})
	return lim, nil
}

// Start launches background work; it stops when ctx ends.
func (rt *runtime) Start(ctx context.Context) error {
	if rt.river != nil {
		if err := rt.river.Start(ctx); err != nil {
			return fmt.Errorf("start river: %w", err)
		}
	}
	for _, fn := range rt.background {
		go func() {
			if err := fn(ctx); err != nil {
				logging.Module("runtime").WithError(err).Error("background task failed")
			}
		}()
	}
	return nil
}

// Close stops the scheduler and releases connections.
func (rt *runtime) Close() {
	if rt.river != nil {
		if err := rt.river.Stop(context.Background()); err != nil {
			logging.Module("runtime").WithError(err).Warn("river stop")
		}
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}
