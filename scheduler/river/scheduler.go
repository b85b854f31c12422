// Package riverscheduler delivers nonce expiry alarms as river jobs on
// Postgres, so pending alarms survive restarts and are shared by every
// instance using the same database.
package riverscheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/PaulFidika/quickauth/logging"
	"github.com/PaulFidika/quickauth/nonce"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/sirupsen/logrus"
)

// ErrNoHandler is returned by the worker when no alarm handler has been bound.
var ErrNoHandler = errors.New("riverscheduler: no alarm handler bound")

// ExpireArgs is the job payload for one nonce alarm.
type ExpireArgs struct {
	ID        string `json:"id"`
	ExpiresAt int64  `json:"expires_at"`
}

func (ExpireArgs) Kind() string { return "quickauth_nonce_expire" }

// ExpireWorker hands expiry jobs to the bound alarm handler.
type ExpireWorker struct {
	river.WorkerDefaults[ExpireArgs]
	sched *Scheduler
}

func (w *ExpireWorker) Work(ctx context.Context, job *river.Job[ExpireArgs]) error {
	h := w.sched.boundHandler()
	if h == nil {
		return ErrNoHandler
	}
	return h.Alarm(ctx, job.Args.ID, job.Args.ExpiresAt)
}

// Config tunes the river client.
type Config struct {
	// MaxWorkers bounds concurrent alarm deliveries. Defaults to 10.
	MaxWorkers int
}

// Scheduler implements nonce.Scheduler with river.
type Scheduler struct {
	client *river.Client[pgx.Tx]
	log    *logrus.Entry

	mu      sync.RWMutex
	handler nonce.AlarmHandler
}

// New builds a Scheduler on pool. The river schema must already exist
// (migrations.MigrateRiver).
func New(pool *pgxpool.Pool, cfg Config) (*Scheduler, error) {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 10
	}
	s := &Scheduler{log: logging.Module("nonce.river")}

	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, &ExpireWorker{sched: s}); err != nil {
		return nil, err
	}
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, err
	}
	s.client = client
	return s, nil
}

// Bind implements nonce.Scheduler.
func (s *Scheduler) Bind(h nonce.AlarmHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *Scheduler) boundHandler() nonce.AlarmHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

// Schedule implements nonce.Scheduler. Earlier jobs for the same id are left
// in place; the handler ignores alarms whose expiry no longer matches.
func (s *Scheduler) Schedule(ctx context.Context, id string, at int64) error {
	_, err := s.client.Insert(ctx, ExpireArgs{ID: id, ExpiresAt: at}, &river.InsertOpts{
		ScheduledAt: time.UnixMilli(at),
	})
	return err
}

// Start begins working alarm jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.log.Info("starting alarm workers")
	return s.client.Start(ctx)
}

// Stop waits for running jobs to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	return s.client.Stop(ctx)
}
