package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/lmendia/DevHouseTycoon/internal/domain/contract"
	"github.com/lmendia/DevHouseTycoon/internal/events"
	"github.com/lmendia/DevHouseTycoon/internal/platform/logger"
)

// Phase is the lifecycle state of the active contract.
type Phase string

const (
	PhaseIdle     Phase = "IDLE"
	PhasePlanning Phase = "PLANNING"
	PhaseActive   Phase = "ACTIVE"
	PhaseReview   Phase = "REVIEW"
)

// Tickable reports whether the clock should run ticks in this phase.
func (p Phase) Tickable() bool {
	return p == PhasePlanning || p == PhaseActive
}

// PhaseChangedPayload records a phase transition for the ledger.
type PhaseChangedPayload struct {
	From   Phase  `json:"from"`
	To     Phase  `json:"to"`
	Reason string `json:"reason"`
	Sprint int    `json:"sprint"`
}

// PhaseMachine governs the Idle → Planning → Active → Review lifecycle of a
// contract. Illegal transitions are no-ops returning false: the caller is
// expected to check the phase before acting, and a silent no-op is safer
// than an error mid-tick.
//
// The machine carries its own lock because the clock goroutine reads the
// phase between ticks while action goroutines transition it. The lock is a
// leaf: nothing is called while holding it that can take another lock in
// this package.
type PhaseMachine struct {
	mu       sync.RWMutex
	phase    Phase
	contract *contract.Contract
	eventLog *events.Log
	logger   *logger.Logger
}

// NewPhaseMachine creates a machine in the Idle phase with no contract.
func NewPhaseMachine(eventLog *events.Log, log *logger.Logger) *PhaseMachine {
	return &PhaseMachine{
		phase:    PhaseIdle,
		eventLog: eventLog,
		logger:   log,
	}
}

// Phase returns the current phase. Safe to call from any goroutine.
func (m *PhaseMachine) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// Contract returns the active contract, or nil when Idle.
func (m *PhaseMachine) Contract() *contract.Contract {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.contract
}

// AcceptContract moves Idle → Planning with a fresh contract.
func (m *PhaseMachine) AcceptContract(c *contract.Contract) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseIdle || c == nil {
		return false
	}
	m.contract = c
	m.contract.CurrentSprint = 1
	m.transition(PhasePlanning, "contract accepted")
	return true
}

// PlanningDayElapsed moves Planning → Active once the planning day's ticks
// have drained.
func (m *PhaseMachine) PlanningDayElapsed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhasePlanning {
		return false
	}
	m.transition(PhaseActive, "planning day elapsed")
	return true
}

// PeriodBoundaryReached moves Active → Review when the sprint's day budget
// is exhausted. Fired by the tick processor.
func (m *PhaseMachine) PeriodBoundaryReached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseActive {
		return false
	}
	m.transition(PhaseReview, "sprint day budget exhausted")
	return true
}

// ShipEarly moves Active → Review before the day budget runs out. The
// caller is responsible for the eligibility check (all committed work done,
// no live blocker).
func (m *PhaseMachine) ShipEarly() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseActive {
		return false
	}
	m.transition(PhaseReview, "shipped early")
	return true
}

// AdvanceToNextSprint moves Review → Planning, legal only while sprints
// remain. Increments the contract's sprint index.
func (m *PhaseMachine) AdvanceToNextSprint() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseReview || m.contract == nil || m.contract.OnFinalSprint() {
		return false
	}
	m.contract.CurrentSprint++
	m.transition(PhasePlanning, "advanced to next sprint")
	return true
}

// CloseContract moves Review → Idle, legal only on the final sprint.
// The contract is discarded.
func (m *PhaseMachine) CloseContract() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseReview || m.contract == nil || !m.contract.OnFinalSprint() {
		return false
	}
	m.transition(PhaseIdle, "contract closed")
	m.contract = nil
	return true
}

// transition records a phase change. Callers hold m.mu.
func (m *PhaseMachine) transition(to Phase, reason string) {
	from := m.phase
	m.phase = to

	sprint := 0
	if m.contract != nil {
		sprint = m.contract.CurrentSprint
	}
	m.eventLog.Append(events.StudioEvent{
		ID:        events.NewEventID(),
		Timestamp: time.Now(),
		Type:      events.TypePhaseChanged,
		ActorID:   "SYSTEM_SIM",
		Payload: PhaseChangedPayload{
			From:   from,
			To:     to,
			Reason: reason,
			Sprint: sprint,
		},
		Sprint: sprint,
	})
	m.logger.Event("PHASE_CHANGED", "SYSTEM_SIM", fmt.Sprintf("%s -> %s (%s)", from, to, reason))
}
