package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/ruralcare/medreserve/internal/pkg/clock"
	"github.com/ruralcare/medreserve/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	clk := clock.NewManual(start)
	l := NewLocalLocker(clk)
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, "sweep:expire", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "sweep:expire", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = l.TryLock(ctx, "sweep:status", time.Minute)
	assert.True(t, ok)

	release()
	release2, ok, _ := l.TryLock(ctx, "sweep:expire", time.Minute)
	require.True(t, ok)

	// A stale holder cannot release a lease it lost
	clk.Advance(2 * time.Minute)
	_, ok, _ = l.TryLock(ctx, "sweep:expire", time.Minute)
	require.True(t, ok)
	release2()
	_, ok, _ = l.TryLock(ctx, "sweep:expire", time.Minute)
	assert.False(t, ok)
}

func TestSchedulerRunOnceHonoursLock(t *testing.T) {
	f := newFixture(t)
	locker := NewLocalLocker(f.clock)
	s := NewScheduler(f.sweeper, locker, f.clock, f.config, logger.Discard())

	release, ok, err := locker.TryLock(context.Background(), "sweep:expire", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ran := s.RunOnce(context.Background(), JobExpire)
	assert.False(t, ran)

	release()
	report, ran := s.RunOnce(context.Background(), JobExpire)
	assert.True(t, ran)
	assert.Equal(t, JobExpire, report.Job)
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.stock(t, 1, 10, 1, 5, nil)
	s := NewScheduler(f.sweeper, NewLocalLocker(clock.Real{}), f.clock, f.config, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	// Each loop runs once immediately; the low stock job emits one alert
	require.Eventually(t, func() bool { return len(f.recorder.Events()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
