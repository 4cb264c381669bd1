// Package metrics provides observability for the simulation host.
// Counters are cheap enough to leave on in production games.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance counters for one simulation host.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64

	// Event ledger metrics
	EventsWritten    int64
	EventWriteErrors int64

	// Simulation outcomes
	StoriesCompleted int64
	BlockersSpawned  int64
	SprintsClosed    int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesOut       int64
	WSErrors            int64

	startTime    time.Time
	lastTickTime time.Time
	mu           sync.RWMutex
}

// NewCollector creates a collector. Each simulation host owns its own
// instance; there is no package-level singleton.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// RecordTick records a completed tick and its processing latency.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}
	c.mu.Lock()
	c.lastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordEventWrite records an event append to the ledger.
func (c *Collector) RecordEventWrite(err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordStoryCompleted increments the completed-story counter.
func (c *Collector) RecordStoryCompleted() {
	atomic.AddInt64(&c.StoriesCompleted, 1)
}

// RecordBlockerSpawned increments the blocker counter.
func (c *Collector) RecordBlockerSpawned() {
	atomic.AddInt64(&c.BlockersSpawned, 1)
}

// RecordSprintClosed increments the closed-sprint counter.
func (c *Collector) RecordSprintClosed() {
	atomic.AddInt64(&c.SprintsClosed, 1)
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records an outbound WebSocket message.
func (c *Collector) RecordWSMessage() {
	atomic.AddInt64(&c.WSMessagesOut, 1)
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot is the JSON shape served by the metrics endpoint.
type Snapshot struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	TickCount        int64   `json:"tick_count"`
	TickLatencyAvgUs int64   `json:"tick_latency_avg_us"`
	TickLatencyMaxUs int64   `json:"tick_latency_max_us"`
	EventsWritten    int64   `json:"events_written"`
	EventWriteErrors int64   `json:"event_write_errors"`
	StoriesCompleted int64   `json:"stories_completed"`
	BlockersSpawned  int64   `json:"blockers_spawned"`
	SprintsClosed    int64   `json:"sprints_closed"`
	WSConnections    int64   `json:"ws_connections"`
	WSMessagesOut    int64   `json:"ws_messages_out"`
	WSErrors         int64   `json:"ws_errors"`
}

// TakeSnapshot captures the current counter values.
func (c *Collector) TakeSnapshot() Snapshot {
	ticks := atomic.LoadInt64(&c.TickCount)
	var avgUs int64
	if ticks > 0 {
		avgUs = atomic.LoadInt64(&c.TickLatencySum) / ticks / int64(time.Microsecond)
	}
	return Snapshot{
		UptimeSeconds:    time.Since(c.startTime).Seconds(),
		TickCount:        ticks,
		TickLatencyAvgUs: avgUs,
		TickLatencyMaxUs: atomic.LoadInt64(&c.TickLatencyMax) / int64(time.Microsecond),
		EventsWritten:    atomic.LoadInt64(&c.EventsWritten),
		EventWriteErrors: atomic.LoadInt64(&c.EventWriteErrors),
		StoriesCompleted: atomic.LoadInt64(&c.StoriesCompleted),
		BlockersSpawned:  atomic.LoadInt64(&c.BlockersSpawned),
		SprintsClosed:    atomic.LoadInt64(&c.SprintsClosed),
		WSConnections:    atomic.LoadInt64(&c.WSConnectionsActive),
		WSMessagesOut:    atomic.LoadInt64(&c.WSMessagesOut),
		WSErrors:         atomic.LoadInt64(&c.WSErrors),
	}
}

// Handler serves the metrics snapshot as JSON.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(c.TakeSnapshot())
	}
}
