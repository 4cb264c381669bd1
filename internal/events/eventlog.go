// Package events provides the append-only ledger of simulation events.
// Every phase transition, completion, disruption, and payout leaves an
// immutable record here; the UI timeline and persistence both feed off it.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type defines the category of a studio event.
type Type string

const (
	TypeDayAdvanced       Type = "DAY_ADVANCED"
	TypePhaseChanged      Type = "PHASE_CHANGED"
	TypeContractAccepted  Type = "CONTRACT_ACCEPTED"
	TypeWorkCommitted     Type = "WORK_COMMITTED"
	TypeWorkUncommitted   Type = "WORK_UNCOMMITTED"
	TypeStoryCompleted    Type = "STORY_COMPLETED"
	TypeBlockerSpawned    Type = "BLOCKER_SPAWNED"
	TypeBlockerDismissed  Type = "BLOCKER_DISMISSED"
	TypeEarlyShipReady    Type = "EARLY_SHIP_READY"
	TypeShippedEarly      Type = "SHIPPED_EARLY"
	TypeSprintClosed      Type = "SPRINT_CLOSED"
	TypeContractClosed    Type = "CONTRACT_CLOSED"
	TypePayoutIssued      Type = "PAYOUT_ISSUED"
	TypeCandidatesRolled  Type = "CANDIDATES_ROLLED"
	TypeContributorHired  Type = "CONTRIBUTOR_HIRED"
)

// StudioEvent represents an immutable record of something that happened
// in the simulation.
type StudioEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      Type      `json:"type"`
	ActorID   string    `json:"actor_id"`  // Who caused it ("SYSTEM_SIM" for the tick processor)
	TargetID  string    `json:"target_id"` // Affected entity (optional)
	Payload   any       `json:"payload"`   // Event-specific data
	Sprint    int       `json:"sprint"`
	Day       int       `json:"day"`
}

// Persister defines how an event is durably stored.
type Persister interface {
	Append(event StudioEvent) error
}

// Log is the in-memory append-only log of studio events, with optional
// write-through to a Persister.
type Log struct {
	mu        sync.RWMutex
	events    []StudioEvent
	persister Persister
}

// NewLog creates a new event log with an optional persister.
func NewLog(persister Persister) *Log {
	return &Log{
		events:    make([]StudioEvent, 0),
		persister: persister,
	}
}

// Append adds a new event to the log. Events are immutable once appended.
func (l *Log) Append(event StudioEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)

	if l.persister != nil {
		// Write through to persistent storage off the tick path.
		go func(e StudioEvent) {
			_ = l.persister.Append(e)
		}(event)
	}
}

// Replay returns the full history of events.
func (l *Log) Replay() []StudioEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.events
}

// Len returns the number of appended events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Since returns all events appended after offset, for incremental pollers.
func (l *Log) Since(offset int) []StudioEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if offset < 0 || offset >= len(l.events) {
		return nil
	}
	return l.events[offset:]
}

// GetByType returns all events of a specific type.
func (l *Log) GetByType(t Type) []StudioEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []StudioEvent
	for _, e := range l.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// GetBySprint returns all events that occurred during a specific sprint.
func (l *Log) GetBySprint(sprint int) []StudioEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []StudioEvent
	for _, e := range l.events {
		if e.Sprint == sprint {
			result = append(result, e)
		}
	}
	return result
}

// NewEventID creates a unique event identifier.
func NewEventID() string {
	return uuid.NewString()
}
