package nonce

import (
	"context"
	"time"

	"github.com/PaulFidika/quickauth/logging"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSweepSchedule runs the sweeper once a minute.
const DefaultSweepSchedule = "@every 1m"

// Sweeper periodically purges expired state from stores that keep it around,
// covering alarms lost to restarts.
type Sweeper struct {
	cron  *cron.Cron
	store Expirer
	now   func() time.Time
	log   *logrus.Entry
}

// NewSweeper schedules purges of store on a cron spec (e.g. "@every 1m").
func NewSweeper(store Expirer, spec string) (*Sweeper, error) {
	if spec == "" {
		spec = DefaultSweepSchedule
	}
	s := &Sweeper{
		cron:  cron.New(),
		store: store,
		now:   time.Now,
		log:   logging.Module("nonce.sweeper"),
	}
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.log.WithError(err).Error("sweep failed")
		}
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Sweep deletes everything that has expired by now.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now().UnixMilli())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.WithField("count", n).Debug("expired nonces purged")
	}
	return n, nil
}

// Start runs the schedule in the background.
func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running sweep to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
