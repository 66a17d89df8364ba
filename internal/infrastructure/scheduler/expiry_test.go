package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/keyreg/pkg/errors"
	"github.com/turtacn/keyreg/pkg/logger"
)

type countingExpirer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *countingExpirer) TickExpirations(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return []string{"k1"}, e.err
}

func (e *countingExpirer) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func runAsync(s *ExpiryScheduler, ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	return done
}

func TestExpiryScheduler_SweepsUntilCancelled(t *testing.T) {
	expirer := &countingExpirer{}
	s := NewExpiryScheduler(expirer, 5*time.Millisecond, logger.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(s, ctx)

	require.Eventually(t, func() bool { return expirer.Calls() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	stopped := expirer.Calls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, expirer.Calls())
}

func TestExpiryScheduler_KeepsRunningAfterFailure(t *testing.T) {
	expirer := &countingExpirer{err: errors.ErrInternal("store unavailable", nil)}
	s := NewExpiryScheduler(expirer, 5*time.Millisecond, logger.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runAsync(s, ctx)

	require.Eventually(t, func() bool { return expirer.Calls() >= 2 }, time.Second, time.Millisecond)
}

func TestExpiryScheduler_DisabledInterval(t *testing.T) {
	expirer := &countingExpirer{}
	s := NewExpiryScheduler(expirer, 0, logger.NewNoopLogger())

	done := runAsync(s, context.Background())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled scheduler should return immediately")
	}
	assert.Zero(t, expirer.Calls())
}
