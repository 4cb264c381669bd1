package sim

import (
	"context"
	"testing"
	"time"

	"github.com/lmendia/DevHouseTycoon/internal/platform/logger"
)

// testClock wires a clock to a mutable phase and a tick counter, driven
// entirely by synthetic timestamps.
type testClock struct {
	clock *Clock
	phase Phase
	ticks int
	base  time.Time
}

func newTestClock(interval time.Duration, maxCatchUp int) *testClock {
	tc := &testClock{phase: PhaseActive, base: time.Unix(0, 0)}
	tc.clock = NewClock(interval, maxCatchUp,
		func() time.Time { return tc.base },
		func() Phase { return tc.phase },
		func() { tc.ticks++ },
		logger.NewLogger(),
	)
	return tc
}

func (tc *testClock) advanceBy(d time.Duration) int {
	tc.base = tc.base.Add(d)
	return tc.clock.Advance(tc.base)
}

func TestFixedTimestepProducesExactTickCount(t *testing.T) {
	tc := newTestClock(100*time.Millisecond, 100)

	if got := tc.advanceBy(50 * time.Millisecond); got != 0 {
		t.Errorf("Expected 0 ticks below one interval, got %d", got)
	}
	if got := tc.advanceBy(60 * time.Millisecond); got != 1 {
		t.Errorf("Expected 1 tick once the interval fills, got %d", got)
	}
	if got := tc.advanceBy(1 * time.Second); got != 10 {
		t.Errorf("Expected 10 ticks for one second, got %d", got)
	}
	if tc.ticks != 11 {
		t.Errorf("Expected 11 total ticks, got %d", tc.ticks)
	}
}

func TestAccumulatorClampLimitsCatchUpBurst(t *testing.T) {
	tc := newTestClock(100*time.Millisecond, 10)

	// A ten-minute host stall must not burst thousands of catch-up ticks.
	if got := tc.advanceBy(10 * time.Minute); got != 10 {
		t.Errorf("Expected burst clamped to 10 ticks, got %d", got)
	}
	if got := tc.advanceBy(100 * time.Millisecond); got != 1 {
		t.Errorf("Expected normal ticking after the clamp, got %d", got)
	}
}

func TestNoTicksBankedOutsideTickablePhases(t *testing.T) {
	tc := newTestClock(100*time.Millisecond, 10)

	tc.phase = PhaseReview
	if got := tc.advanceBy(1 * time.Second); got != 0 {
		t.Errorf("Expected 0 ticks in REVIEW, got %d", got)
	}

	// Time spent in Review is discarded, not banked for later.
	tc.phase = PhaseActive
	if got := tc.advanceBy(50 * time.Millisecond); got != 0 {
		t.Errorf("Expected Review time discarded, got %d ticks from a 50ms advance", got)
	}
}

func TestDrainAbortsWhenPhaseLeavesTickableMidBurst(t *testing.T) {
	tc := newTestClock(100*time.Millisecond, 20)

	// The third tick ends the sprint; remaining accumulated time must die
	// with it.
	count := 0
	tc.clock.onTick = func() {
		count++
		if count == 3 {
			tc.phase = PhaseReview
		}
	}

	if got := tc.advanceBy(1 * time.Second); got != 3 {
		t.Errorf("Expected drain to abort after 3 ticks, got %d", got)
	}

	tc.phase = PhaseActive
	if got := tc.advanceBy(90 * time.Millisecond); got != 0 {
		t.Errorf("Expected empty accumulator after abort, got %d ticks", got)
	}
}

func TestBackwardTimestampsAreIgnored(t *testing.T) {
	tc := newTestClock(100*time.Millisecond, 10)
	tc.advanceBy(100 * time.Millisecond)

	if got := tc.clock.Advance(tc.base.Add(-1 * time.Second)); got != 0 {
		t.Errorf("Expected no ticks for a backward timestamp, got %d", got)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	tc := newTestClock(100*time.Millisecond, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if tc.clock.Running() {
		t.Fatal("Clock must start stopped")
	}
	tc.clock.Start(ctx)
	tc.clock.Start(ctx)
	if !tc.clock.Running() {
		t.Fatal("Clock must be running after Start")
	}
	tc.clock.Stop()
	tc.clock.Stop()
	if tc.clock.Running() {
		t.Fatal("Clock must be stopped after Stop")
	}
}
