// Package nonce implements single-use sign-in nonces with a bounded lifetime.
//
// Each nonce id behaves like its own actor: operations on one id are
// serialized, operations on different ids run in parallel. A nonce is active
// from Initialize until it is consumed or its expiry passes, after which no
// state remains for it.
package nonce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PaulFidika/quickauth/logging"
	"github.com/sirupsen/logrus"
)

// DefaultTTL is how long an initialized nonce stays consumable.
const DefaultTTL = 5 * time.Minute

// ErrEmptyID is returned for operations on an empty nonce id.
var ErrEmptyID = errors.New("nonce: empty id")

// Store persists the expiry (unix millis) of active nonces. Get must report
// ok=false for ids without state.
type Store interface {
	Put(ctx context.Context, id string, expiresAt int64) error
	Get(ctx context.Context, id string) (expiresAt int64, ok bool, err error)
	Delete(ctx context.Context, id string) error
}

// AtomicConsumer is implemented by stores that can check-and-delete in one
// step, which keeps consumption single-use across processes sharing the store.
type AtomicConsumer interface {
	// ConsumeActive deletes id and returns true only if it exists with expiresAt > now.
	ConsumeActive(ctx context.Context, id string, now int64) (bool, error)
}

// Expirer is implemented by stores that need periodic purging of expired state.
type Expirer interface {
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}

// AlarmHandler receives expiry callbacks.
type AlarmHandler interface {
	Alarm(ctx context.Context, id string, scheduledFor int64) error
}

// Scheduler arranges one-shot expiry callbacks. Scheduling an id again
// replaces its pending callback.
type Scheduler interface {
	Schedule(ctx context.Context, id string, at int64) error
	Bind(h AlarmHandler)
}

// Service runs the nonce lifecycle over a Store and an optional Scheduler.
type Service struct {
	store Store
	sched Scheduler
	ttl   time.Duration
	now   func() time.Time
	locks *keyedMutex
	log   *logrus.Entry
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLogger sets the log entry used by the service.
func WithLogger(l *logrus.Entry) Option { return func(s *Service) { s.log = l } }

// NewService creates a Service and binds it as the scheduler's alarm handler.
// sched may be nil when the store expires state on its own; consumption still
// treats expired state as absent.
func NewService(store Store, sched Scheduler, opts ...Option) *Service {
	s := &Service{
		store: store,
		sched: sched,
		ttl:   DefaultTTL,
		now:   time.Now,
		locks: newKeyedMutex(),
		log:   logging.Module("nonce"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if sched != nil {
		sched.Bind(s)
	}
	return s
}

// TTL reports the configured lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Initialize makes id active for one TTL from now. Calling it again on an
// active id resets the window and replaces the pending expiry.
func (s *Service) Initialize(ctx context.Context, id string) (bool, error) {
	if _, err := s.initialize(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) initialize(ctx context.Context, id string) (int64, error) {
	if id == "" {
		return 0, ErrEmptyID
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	expiresAt := s.now().Add(s.ttl).UnixMilli()
	if err := s.store.Put(ctx, id, expiresAt); err != nil {
		return 0, fmt.Errorf("persist nonce: %w", err)
	}
	if s.sched != nil {
		if err := s.sched.Schedule(ctx, id, expiresAt); err != nil {
			if derr := s.store.Delete(ctx, id); derr != nil {
				s.log.WithError(derr).WithField("nonce", id).Warn("rollback after failed schedule")
			}
			return 0, fmt.Errorf("schedule expiry: %w", err)
		}
	}
	return expiresAt, nil
}

// Consume returns true exactly once for an active id and removes its state.
// Missing or expired ids return false and leave the store untouched.
func (s *Service) Consume(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyID
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	now := s.now().UnixMilli()
	if ac, ok := s.store.(AtomicConsumer); ok {
		return ac.ConsumeActive(ctx, id, now)
	}

	expiresAt, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if !ok || now >= expiresAt {
		return false, nil
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// Alarm clears the state of id. It is safe to deliver more than once. A
// non-zero scheduledFor that no longer matches the stored expiry belongs to a
// callback replaced by a later Initialize and is ignored.
func (s *Service) Alarm(ctx context.Context, id string, scheduledFor int64) error {
	if id == "" {
		return ErrEmptyID
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	expiresAt, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if scheduledFor != 0 && scheduledFor != expiresAt {
		s.log.WithField("nonce", id).Debug("superseded alarm ignored")
		return nil
	}
	return s.store.Delete(ctx, id)
}

// Generate creates a fresh random nonce, initializes it and returns it with
// its expiry.
func (s *Service) Generate(ctx context.Context) (string, time.Time, error) {
	id, err := GenerateID()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt, err := s.initialize(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}
	return id, time.UnixMilli(expiresAt), nil
}

// Actor returns the handle for a single nonce id.
func (s *Service) Actor(id string) *Actor {
	return &Actor{svc: s, id: id}
}

// Actor is the per-identifier view of the service.
type Actor struct {
	svc *Service
	id  string
}

// ID returns the nonce id this actor is bound to.
func (a *Actor) ID() string { return a.id }

func (a *Actor) Initialize(ctx context.Context) (bool, error) { return a.svc.Initialize(ctx, a.id) }
func (a *Actor) Consume(ctx context.Context) (bool, error)    { return a.svc.Consume(ctx, a.id) }

// Alarm clears the actor's state unconditionally.
func (a *Actor) Alarm(ctx context.Context) error { return a.svc.Alarm(ctx, a.id, 0) }
