// internal/sweeper/scheduler.go
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/ruralcare/medreserve/internal/config"
	"github.com/ruralcare/medreserve/internal/pkg/clock"
	"github.com/sirupsen/logrus"
)

// Locker hands out named, expiring locks so only one replica runs a job at a time
type Locker interface {
	// TryLock returns acquired=false without error when someone else holds key
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

// Scheduler runs each job on its own ticker
type Scheduler struct {
	sweeper   *Sweeper
	locker    Locker
	clock     clock.Clock
	intervals map[Job]time.Duration
	lockTTL   time.Duration
	logger    logrus.FieldLogger
	wg        sync.WaitGroup
}

// NewScheduler creates a scheduler using the job intervals from cfg
func NewScheduler(sweeper *Sweeper, locker Locker, clk clock.Clock, cfg *config.Config, logger logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		sweeper: sweeper,
		locker:  locker,
		clock:   clk,
		intervals: map[Job]time.Duration{
			JobExpire:   cfg.Jobs.ExpirySweepInterval,
			JobStatus:   cfg.Jobs.StatusRefreshInterval,
			JobLowStock: cfg.Jobs.LowStockAlertInterval,
		},
		lockTTL: cfg.Jobs.LockTTL,
		logger:  logger.WithField("component", "scheduler"),
	}
}

// Start launches one loop per job. The loops stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range Jobs {
		interval := s.intervals[job]
		if interval <= 0 {
			s.logger.WithField("job", job).Info("Job disabled, no interval configured")
			continue
		}

		s.wg.Add(1)
		go func(job Job, interval time.Duration) {
			defer s.wg.Done()
			s.loop(ctx, job, interval)
		}(job, interval)
	}
}

// Wait blocks until every loop has returned
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.WithFields(logrus.Fields{"job": job, "interval": interval.String()}).Info("Job scheduled")

	// Run immediately on start
	s.RunOnce(ctx, job)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx, job)
		}
	}
}

// RunOnce runs job under its lock. ran is false when another holder had the lock.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) (report Report, ran bool) {
	release, acquired, err := s.locker.TryLock(ctx, "sweep:"+string(job), s.lockTTL)
	if err != nil {
		s.logger.WithError(err).WithField("job", job).Error("Failed to take job lock")
		return Report{Job: job, Error: err.Error()}, false
	}
	if !acquired {
		s.logger.WithField("job", job).Debug("Job already running elsewhere, skipping")
		return Report{Job: job}, false
	}
	defer release()

	report, err = s.sweeper.Run(ctx, job, s.clock.Now())
	if err != nil {
		s.logger.WithError(err).WithField("job", job).Error("Job failed")
	}
	return report, true
}

// LocalLocker is an in-process Locker for single-node deployments
type LocalLocker struct {
	mu    sync.Mutex
	clock clock.Clock
	held  map[string]lease
	seq   uint64
}

type lease struct {
	token   uint64
	expires time.Time
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker(clk clock.Clock) *LocalLocker {
	return &LocalLocker{clock: clk, held: make(map[string]lease)}
}

// TryLock implements Locker. An expired lease is taken over.
func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if current, ok := l.held[key]; ok && now.Before(current.expires) {
		return nil, false, nil
	}

	l.seq++
	mine := lease{token: l.seq, expires: now.Add(ttl)}
	l.held[key] = mine

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if current, ok := l.held[key]; ok && current.token == mine.token {
			delete(l.held, key)
		}
	}, true, nil
}
