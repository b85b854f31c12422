package nonce

import (
	"context"
	"sync"
	"time"

	"github.com/PaulFidika/quickauth/logging"
	"github.com/sirupsen/logrus"
)

// TimerScheduler delivers alarms in-process with time.AfterFunc. Pending
// alarms are lost on restart; pair it with a store that expires on its own or
// with a Sweeper.
type TimerScheduler struct {
	mu      sync.Mutex
	pending map[string]pendingAlarm
	handler AlarmHandler
	stopped bool
	log     *logrus.Entry
}

type pendingAlarm struct {
	timer *time.Timer
	at    int64
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{
		pending: make(map[string]pendingAlarm),
		log:     logging.Module("nonce.timer"),
	}
}

// Bind implements Scheduler.
func (s *TimerScheduler) Bind(h AlarmHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Schedule implements Scheduler. A previous alarm for id is cancelled.
func (s *TimerScheduler) Schedule(_ context.Context, id string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	if prev, ok := s.pending[id]; ok {
		prev.timer.Stop()
	}
	d := time.Until(time.UnixMilli(at))
	s.pending[id] = pendingAlarm{
		at:    at,
		timer: time.AfterFunc(d, func() { s.fire(id, at) }),
	}
	return nil
}

func (s *TimerScheduler) fire(id string, at int64) {
	s.mu.Lock()
	if p, ok := s.pending[id]; ok && p.at == at {
		delete(s.pending, id)
	}
	h := s.handler
	s.mu.Unlock()
	if h == nil {
		return
	}
	if err := h.Alarm(context.Background(), id, at); err != nil {
		s.log.WithError(err).WithField("nonce", id).Error("alarm failed")
	}
}

// Pending reports how many alarms are waiting to fire.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels every pending alarm and ignores later schedules.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
}
