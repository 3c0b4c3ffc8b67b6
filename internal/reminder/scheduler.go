// Package reminder runs the scheduled notification checks for medication
// reminders: a periodic sweep finds due reminders and hands them to the
// notification dispatcher.
package reminder

import (
	"context"
	"log"
	"sync"
	"time"

	"carelink/health-portal/internal/domain"
	"carelink/health-portal/internal/repository"
)

// Notifier delivers a reminder to its owner. Best-effort; the scheduler
// marks the reminder fired once it is handed off.
type Notifier interface {
	NotifyReminder(reminder domain.Reminder)
}

// Scheduler periodically sweeps enabled reminders and dispatches the due
// ones. Each reminder fires at most once per day.
type Scheduler struct {
	repo     repository.ReminderRepository
	notifier Notifier
	interval time.Duration
	now      func() time.Time // overridable in tests

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewScheduler constructs a stopped scheduler.
func NewScheduler(repo repository.ReminderRepository, notifier Notifier, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		repo:     repo,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(context.Background())
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop halts the sweep loop. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
}

// Sweep runs one pass: load enabled reminders, dispatch the due ones, and
// stamp them fired. Exported so a sweep can be driven directly in tests.
func (s *Scheduler) Sweep(ctx context.Context) {
	reminders, err := s.repo.GetEnabled(ctx)
	if err != nil {
		log.Printf("ERROR: reminder sweep failed to load reminders: %v", err)
		return
	}

	now := s.now()
	for i := range reminders {
		r := reminders[i]
		if !r.Due(now) {
			continue
		}
		s.notifier.NotifyReminder(r)
		if err := s.repo.MarkFired(ctx, r.ID, now.UTC()); err != nil {
			// Next sweep may fire this reminder again; acceptable for a
			// best-effort channel, but worth the log line.
			log.Printf("WARN: failed to mark reminder %s fired: %v", r.ID.Hex(), err)
		}
	}
}
