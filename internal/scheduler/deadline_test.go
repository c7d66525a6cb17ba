package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"docverify/internal/common/config"
	"docverify/internal/common/logger"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeCloser struct {
	closed bool
	err    error
	calls  int
	seen   []time.Time
}

func (f *fakeCloser) CloseIfDeadlinePassed(ctx context.Context, now time.Time) (bool, error) {
	f.calls++
	f.seen = append(f.seen, now)
	return f.closed, f.err
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate(ctx context.Context) {
	f.calls++
}

func newScheduler(t *testing.T, closer *fakeCloser, invalidator *fakeInvalidator) *DeadlineScheduler {
	return NewDeadlineScheduler(closer, invalidator, config.WindowConfig{CronSpec: "* * * * *"}, logger.NewTestLogger(t))
}

// ==========================
// Tick Tests
// ==========================

func TestDeadlineScheduler_Tick_ClosesAndInvalidates(t *testing.T) {
	closer := &fakeCloser{closed: true}
	invalidator := &fakeInvalidator{}
	s := newScheduler(t, closer, invalidator)

	s.Tick(context.Background())

	assert.Equal(t, 1, closer.calls)
	assert.Equal(t, 1, invalidator.calls)
}

func TestDeadlineScheduler_Tick_NothingToCloseIsNoOp(t *testing.T) {
	closer := &fakeCloser{closed: false}
	invalidator := &fakeInvalidator{}
	s := newScheduler(t, closer, invalidator)

	s.Tick(context.Background())

	assert.Equal(t, 1, closer.calls)
	assert.Zero(t, invalidator.calls)
}

func TestDeadlineScheduler_Tick_ErrorIsSwallowed(t *testing.T) {
	closer := &fakeCloser{err: fmt.Errorf("db down")}
	invalidator := &fakeInvalidator{}
	s := newScheduler(t, closer, invalidator)

	// Must not panic and must keep the scheduler usable.
	s.Tick(context.Background())
	closer.err = nil
	closer.closed = true
	s.Tick(context.Background())

	assert.Equal(t, 2, closer.calls)
	assert.Equal(t, 1, invalidator.calls)
}

func TestDeadlineScheduler_Tick_UsesInjectedClock(t *testing.T) {
	closer := &fakeCloser{}
	s := newScheduler(t, closer, nil)
	fixed := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.Tick(context.Background())

	assert.Equal(t, []time.Time{fixed}, closer.seen)
}

func TestDeadlineScheduler_StartStop(t *testing.T) {
	closer := &fakeCloser{}
	s := newScheduler(t, closer, nil)

	assert.NoError(t, s.Start())
	s.Stop()
}
