package sim

import (
	"testing"

	"github.com/lmendia/DevHouseTycoon/internal/domain/contract"
	"github.com/lmendia/DevHouseTycoon/internal/domain/work"
	"github.com/lmendia/DevHouseTycoon/internal/events"
	"github.com/lmendia/DevHouseTycoon/internal/platform/logger"
)

func newTestMachine() *PhaseMachine {
	return NewPhaseMachine(events.NewLog(nil), logger.NewLogger())
}

func testContract(sprints int) *contract.Contract {
	return &contract.Contract{
		ID:           "K1",
		Client:       "Acme",
		FullBacklog:  []*work.Item{work.NewStory("S1", "login page", 5)},
		BasePayout:   1000,
		TotalSprints: sprints,
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	m := newTestMachine()

	if m.Phase() != PhaseIdle {
		t.Fatalf("Expected fresh machine in IDLE, got %s", m.Phase())
	}
	if !m.AcceptContract(testContract(2)) {
		t.Fatal("AcceptContract from IDLE must succeed")
	}
	if m.Phase() != PhasePlanning || m.Contract().CurrentSprint != 1 {
		t.Fatalf("Expected PLANNING at sprint 1, got %s sprint %d", m.Phase(), m.Contract().CurrentSprint)
	}
	if !m.PlanningDayElapsed() {
		t.Fatal("PlanningDayElapsed from PLANNING must succeed")
	}
	if !m.PeriodBoundaryReached() {
		t.Fatal("PeriodBoundaryReached from ACTIVE must succeed")
	}
	if !m.AdvanceToNextSprint() {
		t.Fatal("AdvanceToNextSprint with sprints remaining must succeed")
	}
	if m.Contract().CurrentSprint != 2 {
		t.Errorf("Expected sprint 2, got %d", m.Contract().CurrentSprint)
	}
	m.PlanningDayElapsed()
	m.PeriodBoundaryReached()
	if !m.CloseContract() {
		t.Fatal("CloseContract on the final sprint must succeed")
	}
	if m.Phase() != PhaseIdle || m.Contract() != nil {
		t.Errorf("Expected IDLE with no contract after close, got %s", m.Phase())
	}
}

func TestIllegalTransitionsAreNoOps(t *testing.T) {
	m := newTestMachine()

	if m.PlanningDayElapsed() || m.PeriodBoundaryReached() || m.ShipEarly() ||
		m.AdvanceToNextSprint() || m.CloseContract() {
		t.Fatal("No transition except AcceptContract may fire from IDLE")
	}
	if m.Phase() != PhaseIdle {
		t.Fatalf("Illegal transitions must not change phase, got %s", m.Phase())
	}

	m.AcceptContract(testContract(1))
	if m.AcceptContract(testContract(1)) {
		t.Error("AcceptContract must be rejected while a contract is open")
	}
	if m.PeriodBoundaryReached() {
		t.Error("PeriodBoundaryReached must be rejected during PLANNING")
	}

	m.PlanningDayElapsed()
	m.PeriodBoundaryReached()
	if m.AdvanceToNextSprint() {
		t.Error("AdvanceToNextSprint must be rejected on the final sprint")
	}
	if !m.CloseContract() {
		t.Error("CloseContract must succeed on the final sprint")
	}
}

func TestShipEarlyOnlyFromActive(t *testing.T) {
	m := newTestMachine()
	m.AcceptContract(testContract(1))

	if m.ShipEarly() {
		t.Error("ShipEarly must be rejected during PLANNING")
	}
	m.PlanningDayElapsed()
	if !m.ShipEarly() {
		t.Error("ShipEarly from ACTIVE must succeed")
	}
	if m.Phase() != PhaseReview {
		t.Errorf("Expected REVIEW after ShipEarly, got %s", m.Phase())
	}
}

func TestAcceptContractRejectsNil(t *testing.T) {
	m := newTestMachine()
	if m.AcceptContract(nil) {
		t.Fatal("AcceptContract(nil) must be rejected")
	}
}

func TestTickablePhases(t *testing.T) {
	if PhaseIdle.Tickable() || PhaseReview.Tickable() {
		t.Error("IDLE and REVIEW must not be tickable")
	}
	if !PhasePlanning.Tickable() || !PhaseActive.Tickable() {
		t.Error("PLANNING and ACTIVE must be tickable")
	}
}

func TestPhaseTransitionsAreLedgered(t *testing.T) {
	log := events.NewLog(nil)
	m := NewPhaseMachine(log, logger.NewLogger())

	m.AcceptContract(testContract(1))
	m.PlanningDayElapsed()

	changes := log.GetByType(events.TypePhaseChanged)
	if len(changes) != 2 {
		t.Fatalf("Expected 2 PHASE_CHANGED events, got %d", len(changes))
	}
	payload, ok := changes[1].Payload.(PhaseChangedPayload)
	if !ok {
		t.Fatalf("Unexpected payload type %T", changes[1].Payload)
	}
	if payload.From != PhasePlanning || payload.To != PhaseActive {
		t.Errorf("Expected PLANNING -> ACTIVE, got %s -> %s", payload.From, payload.To)
	}
}
