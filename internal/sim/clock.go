package sim

import (
	"context"
	"sync"
	"time"

	"github.com/lmendia/DevHouseTycoon/internal/platform/logger"
)

// Clock is the fixed-timestep driver. It accumulates elapsed host time and
// invokes the tick callback a deterministic number of times regardless of
// how often the host wakes it up.
//
// The host clock source and the tick callback are injected so tests can
// drive Advance directly with synthetic timestamps.
type Clock struct {
	interval   time.Duration
	maxCatchUp int // accumulator clamp, in ticks
	now        func() time.Time
	phase      func() Phase
	onTick     func()
	logger     *logger.Logger

	mu          sync.Mutex
	accumulator time.Duration
	last        time.Time
	running     bool
	stopChan    chan struct{}
}

// NewClock creates a stopped clock.
func NewClock(interval time.Duration, maxCatchUp int, now func() time.Time, phase func() Phase, onTick func(), log *logger.Logger) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{
		interval:   interval,
		maxCatchUp: maxCatchUp,
		now:        now,
		phase:      phase,
		onTick:     onTick,
		logger:     log,
		last:       now(),
	}
}

// Start begins scheduling periodic wake-ups. Idempotent; resets the
// accumulator and the last-timestamp marker.
func (c *Clock) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.accumulator = 0
	c.last = c.now()
	c.stopChan = make(chan struct{})
	stop := c.stopChan
	c.mu.Unlock()

	c.logger.Info("Simulation clock started.")

	go func() {
		// Wake more often than the tick interval so a single slow frame
		// never delays a tick by more than a fraction of one.
		wake := time.NewTicker(c.interval / 4)
		defer wake.Stop()

		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Simulation clock stopped by context.")
				return
			case <-stop:
				c.logger.Info("Simulation clock stopped.")
				return
			case <-wake.C:
				c.Advance(c.now())
			}
		}
	}()
}

// Stop cancels pending wake-ups and discards the accumulator. Idempotent.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	c.accumulator = 0
	close(c.stopChan)
}

// Running reports whether the clock is scheduling wake-ups.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Advance consumes the host time elapsed since the previous call and runs
// zero or more ticks. Returns how many ticks ran.
//
// Outside a tickable phase the elapsed time is discarded, so no ticks are
// banked while the game sits in Review or Idle. The accumulator is clamped
// to maxCatchUp intervals so a suspended host cannot burst dozens of
// catch-up ticks on resume. The phase is re-checked after every single
// tick: a sprint can end inside a tick, and the drain must abort there.
//
// Both callbacks run with c.mu released. They take locks of their own, and
// a callback that ends up restarting the clock must not find c.mu held.
func (c *Clock) Advance(now time.Time) int {
	tickable := c.phase().Tickable()

	c.mu.Lock()
	delta := now.Sub(c.last)
	c.last = now
	if delta < 0 {
		delta = 0
	}

	if !tickable {
		c.accumulator = 0
		c.mu.Unlock()
		return 0
	}

	c.accumulator += delta
	if limit := time.Duration(c.maxCatchUp) * c.interval; c.accumulator > limit {
		c.accumulator = limit
	}

	ticks := 0
	for c.accumulator >= c.interval {
		c.accumulator -= c.interval
		c.mu.Unlock()
		c.onTick()
		tickable = c.phase().Tickable()
		c.mu.Lock()
		ticks++

		if !tickable {
			c.accumulator = 0
			break
		}
	}
	c.mu.Unlock()
	return ticks
}
