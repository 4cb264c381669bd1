package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lmendia/DevHouseTycoon/internal/domain/contract"
	"github.com/lmendia/DevHouseTycoon/internal/domain/contributor"
	"github.com/lmendia/DevHouseTycoon/internal/domain/work"
	"github.com/lmendia/DevHouseTycoon/internal/events"
	"github.com/lmendia/DevHouseTycoon/internal/platform/logger"
	"github.com/lmendia/DevHouseTycoon/internal/platform/metrics"
	"github.com/lmendia/DevHouseTycoon/internal/platform/tuning"
)

// Config wires a Simulation's collaborators. Zero-value fields get working
// in-memory defaults.
type Config struct {
	Tuning   tuning.Tuning
	Rand     Rand
	Board    Board
	Roster   Roster
	Notifier Notifier
	EventLog *events.Log
	Logger   *logger.Logger
	Metrics  *metrics.Collector
}

// Simulation is the central orchestrator: it owns the clock, the phase
// machine, and the tick processor, and exposes the external actions the
// host UI calls between ticks.
//
// A single mutex serializes ticks and external actions, enforcing the
// single-writer discipline the core assumes.
type Simulation struct {
	mu sync.Mutex

	tun      tuning.Tuning
	logger   *logger.Logger
	eventLog *events.Log
	metrics  *metrics.Collector
	notifier Notifier

	machine      *PhaseMachine
	processor    *TickProcessor
	clock        *Clock
	board        Board
	roster       Roster
	contractGen  *ContractGenerator
	candidateGen *CandidateGenerator

	ctx        context.Context
	bank       float64
	lastResult *contract.PeriodResult
	results    []contract.PeriodResult
}

// New builds a simulation from the config, filling in-memory defaults.
func New(cfg Config) *Simulation {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewLogger()
	}
	if cfg.EventLog == nil {
		cfg.EventLog = events.NewLog(nil)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewCollector()
	}
	if cfg.Board == nil {
		cfg.Board = NewMemBoard()
	}
	if cfg.Roster == nil {
		cfg.Roster = NewMemRoster()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}
	if cfg.Rand == nil {
		seed, err := NewSeed()
		if err != nil {
			seed = time.Now().UnixNano()
		}
		cfg.Rand = NewRand(seed)
	}

	s := &Simulation{
		tun:      cfg.Tuning,
		logger:   cfg.Logger,
		eventLog: cfg.EventLog,
		metrics:  cfg.Metrics,
		notifier: cfg.Notifier,
		board:    cfg.Board,
		roster:   cfg.Roster,
	}
	s.machine = NewPhaseMachine(cfg.EventLog, cfg.Logger)
	s.contractGen = NewContractGenerator(cfg.Rand, cfg.Tuning)
	s.candidateGen = NewCandidateGenerator(cfg.Rand)
	s.processor = NewTickProcessor(
		cfg.Tuning, s.machine, cfg.Board, cfg.Roster, s.contractGen,
		cfg.Notifier, cfg.Rand, cfg.EventLog, cfg.Logger, cfg.Metrics,
	)
	s.processor.SetOnSprintClosed(s.onSprintClosed)
	s.clock = NewClock(cfg.Tuning.TickInterval.Std(), cfg.Tuning.MaxCatchUpTicks,
		nil, s.Phase, s.Tick, cfg.Logger)
	return s
}

// Start begins real-time clock scheduling. Headless hosts skip Start and
// drive Advance directly.
func (s *Simulation) Start(ctx context.Context) {
	s.ctx = ctx
	s.clock.Start(ctx)
}

// Stop halts clock scheduling. Any tick already in flight completes.
func (s *Simulation) Stop() {
	s.clock.Stop()
}

// Tick runs one fixed simulation step. Invoked by the clock; exposed so
// tests and headless drivers can step deterministically.
func (s *Simulation) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processor.Step()
}

// Advance feeds a host timestamp to the fixed-timestep clock, running as
// many ticks as the elapsed time covers. For headless drivers.
func (s *Simulation) Advance(now time.Time) int {
	return s.clock.Advance(now)
}

// Phase returns the current lifecycle phase. The machine carries its own
// lock, so this is safe from any goroutine, including the clock's.
func (s *Simulation) Phase() Phase { return s.machine.Phase() }

// Contract returns the active contract, or nil.
func (s *Simulation) Contract() *contract.Contract { return s.machine.Contract() }

// Day returns the 1-based day within the current phase.
func (s *Simulation) Day() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processor.Day()
}

// Bank returns the studio's cash balance.
func (s *Simulation) Bank() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bank
}

// LastResult returns the most recent sprint result, or nil.
func (s *Simulation) LastResult() *contract.PeriodResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

// Results returns every sprint result produced so far.
func (s *Simulation) Results() []contract.PeriodResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]contract.PeriodResult, len(s.results))
	copy(out, s.results)
	return out
}

// SetBank overwrites the cash balance. Boot-time restore only.
func (s *Simulation) SetBank(amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bank = amount
}

// StateView is a read-only snapshot of the simulation for API consumers.
type StateView struct {
	Phase      Phase                      `json:"phase"`
	Day        int                        `json:"day"`
	Sprint     int                        `json:"sprint"`
	Bank       float64                    `json:"bank"`
	Contract   *contract.Contract         `json:"contract,omitempty"`
	Board      []*work.Item               `json:"board"`
	Roster     []*contributor.Contributor `json:"roster"`
	Candidates []contributor.Candidate    `json:"candidates"`
	LastResult *contract.PeriodResult     `json:"last_result,omitempty"`
}

// StateView captures the whole simulation state under one lock.
func (s *Simulation) StateView() StateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StateView{
		Phase:      s.machine.Phase(),
		Day:        s.processor.Day(),
		Sprint:     s.currentSprint(),
		Bank:       s.bank,
		Contract:   s.machine.Contract(),
		Board:      s.board.Items(),
		Roster:     s.roster.Contributors(),
		Candidates: s.roster.Candidates(),
		LastResult: s.lastResult,
	}
}

// Board exposes the sprint board for host reads.
func (s *Simulation) Board() Board { return s.board }

// Roster exposes the roster for host reads.
func (s *Simulation) Roster() Roster { return s.roster }

// onSprintClosed runs inside the tick (or ship-early action) that closed
// the sprint, before the phase transition. The clock stops as part of the
// Active → Review transition.
func (s *Simulation) onSprintClosed(result contract.PeriodResult) {
	s.lastResult = &result
	s.results = append(s.results, result)
	s.clock.Stop()
}

// AcceptContract generates a fresh contract and moves Idle → Planning.
// No-op (nil, false) outside Idle.
func (s *Simulation) AcceptContract() (*contract.Contract, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Phase() != PhaseIdle {
		return nil, false
	}
	c := s.contractGen.Generate()
	if !s.machine.AcceptContract(c) {
		return nil, false
	}
	s.processor.ResetSprint()
	s.board.Replace(nil)

	s.eventLog.Append(events.StudioEvent{
		ID:        events.NewEventID(),
		Timestamp: time.Now(),
		Type:      events.TypeContractAccepted,
		ActorID:   "PLAYER",
		TargetID:  c.ID,
		Payload:   c,
		Sprint:    1,
	})
	s.logger.Event("CONTRACT_ACCEPTED", "PLAYER",
		fmt.Sprintf("%s: %d stories over %d sprints for %.0f", c.Client, len(c.FullBacklog), c.TotalSprints, c.BasePayout))
	s.notifier.Notify(fmt.Sprintf("Contract signed with %s.", c.Client))
	s.restartClock()
	return c, true
}

// CommitStory moves a backlog story onto the sprint board during Planning.
func (s *Simulation) CommitStory(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.machine.Contract()
	if c == nil || s.machine.Phase() != PhasePlanning {
		return false
	}
	for _, it := range c.FullBacklog {
		if it.ID == itemID && it.Status == work.StatusBacklog {
			it.Status = work.StatusQueued
			s.board.Append(it)
			s.appendAction(events.TypeWorkCommitted, it.ID, c.CurrentSprint)
			return true
		}
	}
	return false
}

// UncommitStory returns a queued story to the backlog during Planning.
func (s *Simulation) UncommitStory(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.machine.Contract()
	if c == nil || s.machine.Phase() != PhasePlanning {
		return false
	}
	items := s.board.Items()
	for i, it := range items {
		if it.ID == itemID && it.Status == work.StatusQueued {
			it.Status = work.StatusBacklog
			s.board.Replace(append(items[:i:i], items[i+1:]...))
			s.appendAction(events.TypeWorkUncommitted, it.ID, c.CurrentSprint)
			return true
		}
	}
	return false
}

// RollCandidates draws a fresh batch of three hire offers.
func (s *Simulation) RollCandidates() []contributor.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.candidateGen.Generate(s.roster.Contributors())
	s.roster.SetCandidates(batch)
	s.appendAction(events.TypeCandidatesRolled, "", s.currentSprint())
	return batch
}

// HireCandidate promotes a candidate to the roster, deducting the hire
// cost. Fails when the candidate is unknown or the bank cannot cover it.
func (s *Simulation) HireCandidate(candidateID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cand := range s.roster.Candidates() {
		if cand.ID != candidateID {
			continue
		}
		if cand.HireCost > s.bank {
			return false
		}
		s.bank -= cand.HireCost
		hired := cand.Contributor
		s.roster.Hire(&hired)
		s.roster.SetCandidates(nil)
		s.appendAction(events.TypeContributorHired, hired.ID, s.currentSprint())
		s.logger.Event("CONTRIBUTOR_HIRED", "PLAYER",
			fmt.Sprintf("%s (%s) velocity=%.2f cost=%.0f", hired.Name, hired.Archetype, hired.Velocity, cand.HireCost))
		s.notifier.Notify(fmt.Sprintf("%s joined the studio.", hired.Name))
		return true
	}
	return false
}

// DismissBlocker resolves an active blocker during the sprint.
func (s *Simulation) DismissBlocker(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Phase() != PhaseActive {
		return false
	}
	for _, it := range s.board.Items() {
		if it.ID == itemID && it.IsActiveBlocker() {
			it.Status = work.StatusDone
			s.processor.NoteBlockerDismissed()
			s.appendAction(events.TypeBlockerDismissed, it.ID, s.currentSprint())
			s.notifier.Notify(fmt.Sprintf("Blocker cleared: %s", it.Title))
			return true
		}
	}
	return false
}

// ShipEarly closes the sprint ahead of schedule. Only legal while Active
// with every committed story done and no live blocker.
func (s *Simulation) ShipEarly() (*contract.PeriodResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.machine.Contract()
	if c == nil || s.machine.Phase() != PhaseActive || !s.processor.EarlyShipEligible() {
		return nil, false
	}
	result := s.processor.FinalizeEarly(c)
	return &result, true
}

// CollectPayout acknowledges the Review screen. On an interim sprint it
// advances to the next Planning day; on the final sprint it banks the
// payout and closes the contract.
func (s *Simulation) CollectPayout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.machine.Contract()
	if c == nil || s.machine.Phase() != PhaseReview || s.lastResult == nil {
		return false
	}

	if c.OnFinalSprint() {
		total := s.lastResult.Total()
		s.bank += total
		s.eventLog.Append(events.StudioEvent{
			ID:        events.NewEventID(),
			Timestamp: time.Now(),
			Type:      events.TypePayoutIssued,
			ActorID:   "PLAYER",
			TargetID:  c.ID,
			Payload:   *s.lastResult,
			Sprint:    c.CurrentSprint,
		})
		s.logger.Event("PAYOUT_ISSUED", "PLAYER",
			fmt.Sprintf("%.0f banked (grade %s)", total, s.lastResult.Grade))
		s.appendAction(events.TypeContractClosed, c.ID, c.CurrentSprint)
		s.board.Replace(nil)
		return s.machine.CloseContract()
	}

	if !s.machine.AdvanceToNextSprint() {
		return false
	}
	s.cleanupBoard(c)
	s.processor.ResetSprint()
	s.restartClock()
	return true
}

// Restore re-seats a previously persisted contract at the Planning phase
// of the sprint it was interrupted in. Boot-time only.
func (s *Simulation) Restore(c *contract.Contract, sprint int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Phase() != PhaseIdle || c == nil {
		return false
	}
	if !s.machine.AcceptContract(c) {
		return false
	}
	if sprint > 1 && sprint <= c.TotalSprints {
		c.CurrentSprint = sprint
	}
	s.processor.ResetSprint()
	s.board.Replace(nil)
	s.restartClock()
	return true
}

// cleanupBoard is the period-boundary cleanup: blockers are discarded with
// the board, finished stories stay DONE in the full backlog, and unfinished
// committed stories return to the backlog (keeping accrued points) for
// recommitment.
func (s *Simulation) cleanupBoard(c *contract.Contract) {
	for _, it := range c.FullBacklog {
		if it.Status == work.StatusQueued || it.Status == work.StatusInProgress {
			it.Status = work.StatusBacklog
		}
	}
	s.board.Replace(nil)
}

// restartClock resumes real-time scheduling when the host started the
// simulation with a context. Headless drivers keep stepping manually.
func (s *Simulation) restartClock() {
	if s.ctx != nil {
		s.clock.Start(s.ctx)
	}
}

func (s *Simulation) currentSprint() int {
	if c := s.machine.Contract(); c != nil {
		return c.CurrentSprint
	}
	return 0
}

func (s *Simulation) appendAction(t events.Type, targetID string, sprint int) {
	s.eventLog.Append(events.StudioEvent{
		ID:        events.NewEventID(),
		Timestamp: time.Now(),
		Type:      t,
		ActorID:   "PLAYER",
		TargetID:  targetID,
		Sprint:    sprint,
		Day:       s.processor.Day(),
	})
}
