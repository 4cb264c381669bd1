package sim

import (
	"fmt"
	"time"

	"github.com/lmendia/DevHouseTycoon/internal/domain/contract"
	"github.com/lmendia/DevHouseTycoon/internal/domain/contributor"
	"github.com/lmendia/DevHouseTycoon/internal/domain/rules"
	"github.com/lmendia/DevHouseTycoon/internal/domain/work"
	"github.com/lmendia/DevHouseTycoon/internal/events"
	"github.com/lmendia/DevHouseTycoon/internal/platform/logger"
	"github.com/lmendia/DevHouseTycoon/internal/platform/metrics"
	"github.com/lmendia/DevHouseTycoon/internal/platform/tuning"
)

// DayAdvancedPayload is the ledger record for a day boundary.
type DayAdvancedPayload struct {
	Sprint int `json:"sprint"`
	Day    int `json:"day"`
}

// StoryCompletedPayload is the ledger record for a finished story.
type StoryCompletedPayload struct {
	ItemID string  `json:"item_id"`
	Title  string  `json:"title"`
	Points float64 `json:"points"`
}

// BlockerSpawnedPayload is the ledger record for a disruption.
type BlockerSpawnedPayload struct {
	ItemID string `json:"item_id"`
	Title  string `json:"title"`
}

// SprintClosedPayload carries the scored result for a sprint boundary.
type SprintClosedPayload struct {
	Result contract.PeriodResult `json:"result"`
}

// TickProcessor runs the per-tick simulation step. It owns the sprint-scoped
// clock state (day counters, momentum window, dismissal tally) as instance
// fields, reset at the start of every sprint, so independent simulations
// never share counters.
type TickProcessor struct {
	tun      tuning.Tuning
	payout   rules.PayoutParams
	machine  *PhaseMachine
	board    Board
	roster   Roster
	gen      *ContractGenerator
	notifier Notifier
	rng      Rand
	eventLog *events.Log
	logger   *logger.Logger
	metrics  *metrics.Collector

	// Sprint-scoped clock state
	day                 int
	tickInDay           int
	momentumTicks       int
	dismissedThisSprint int
	earlyShipSignaled   bool

	// onSprintClosed receives the scored result when a sprint finalizes,
	// before the phase transition fires.
	onSprintClosed func(contract.PeriodResult)
}

// NewTickProcessor wires a processor over the shared state accessors.
func NewTickProcessor(
	tun tuning.Tuning,
	machine *PhaseMachine,
	board Board,
	roster Roster,
	gen *ContractGenerator,
	notifier Notifier,
	rng Rand,
	eventLog *events.Log,
	log *logger.Logger,
	collector *metrics.Collector,
) *TickProcessor {
	return &TickProcessor{
		tun: tun,
		payout: rules.PayoutParams{
			CurveExponent:    tun.CurveExponent,
			PerfectBonusFrac: tun.PerfectBonusFrac,
			EarlyBonusPerDay: tun.EarlyBonusPerDay,
		},
		machine:  machine,
		board:    board,
		roster:   roster,
		gen:      gen,
		notifier: notifier,
		rng:      rng,
		eventLog: eventLog,
		logger:   log,
		metrics:  collector,
		day:      1,
	}
}

// SetOnSprintClosed registers the boundary-result hook.
func (tp *TickProcessor) SetOnSprintClosed(fn func(contract.PeriodResult)) {
	tp.onSprintClosed = fn
}

// ResetSprint clears the sprint-scoped clock state. Called when a contract
// is accepted and at every Review → Planning transition.
func (tp *TickProcessor) ResetSprint() {
	tp.day = 1
	tp.tickInDay = 0
	tp.momentumTicks = 0
	tp.dismissedThisSprint = 0
	tp.earlyShipSignaled = false
}

// Day returns the 1-based day counter within the current phase.
func (tp *TickProcessor) Day() int { return tp.day }

// DismissedThisSprint returns the blocker-dismissal tally for the sprint.
func (tp *TickProcessor) DismissedThisSprint() int { return tp.dismissedThisSprint }

// NoteBlockerDismissed records an external dismissal for the sprint tally.
func (tp *TickProcessor) NoteBlockerDismissed() { tp.dismissedThisSprint++ }

// Step executes one fixed simulation tick. It always runs to completion
// synchronously; a missing contract means the host drove a stale tick after
// teardown, which is a no-op rather than a crash.
func (tp *TickProcessor) Step() {
	start := time.Now()
	defer func() {
		if tp.metrics != nil {
			tp.metrics.RecordTick(time.Since(start))
		}
	}()

	c := tp.machine.Contract()
	if c == nil {
		return
	}

	switch tp.machine.Phase() {
	case PhasePlanning:
		// Planning is day-counting only; the work is the player's.
		if tp.advanceDayTick(c) && tp.day > tp.tun.PlanningDays {
			tp.machine.PlanningDayElapsed()
			tp.beginActiveSprint()
		}
	case PhaseActive:
		tp.stepActive(c)
	}
}

// beginActiveSprint promotes the committed queue to in-progress and resets
// the day clock for execution.
func (tp *TickProcessor) beginActiveSprint() {
	for _, it := range tp.board.Items() {
		if it.Kind == work.KindStory && it.Status == work.StatusQueued {
			it.Status = work.StatusInProgress
		}
	}
	tp.day = 1
	tp.tickInDay = 0
	tp.momentumTicks = 0
	tp.earlyShipSignaled = false
}

// stepActive runs the per-tick algorithm in a fixed order: blocking gate,
// then resource allocation, completion promotion, disruption roll,
// early-ship check, and day boundary detection.
func (tp *TickProcessor) stepActive(c *contract.Contract) {
	items := tp.board.Items()
	blocked := countActiveBlockers(items) > 0
	inProgress := storiesInProgress(items)

	// 1+2. Resource allocation, suspended entirely while any blocker lives.
	if !blocked && len(inProgress) > 0 {
		multiplier := tp.wipMultiplier(len(inProgress), len(tp.roster.Contributors()))
		if tp.momentumTicks > 0 {
			multiplier *= tp.tun.MomentumMultiplier
		}
		velocity := contributor.TeamVelocity(tp.roster.Contributors())
		share := velocity * multiplier / float64(len(inProgress))
		for _, s := range inProgress {
			s.AddProgress(share)
		}
	}
	if tp.momentumTicks > 0 {
		tp.momentumTicks--
	}

	// 3. Completion promotion; completions arm the momentum window for the
	// following ticks.
	completed := 0
	for _, s := range inProgress {
		if s.Complete() {
			s.Status = work.StatusDone
			completed++
			if tp.metrics != nil {
				tp.metrics.RecordStoryCompleted()
			}
			tp.eventLog.Append(events.StudioEvent{
				ID:        events.NewEventID(),
				Timestamp: time.Now(),
				Type:      events.TypeStoryCompleted,
				ActorID:   "SYSTEM_SIM",
				TargetID:  s.ID,
				Payload:   StoryCompletedPayload{ItemID: s.ID, Title: s.Title, Points: s.PointsRequired},
				Sprint:    c.CurrentSprint,
				Day:       tp.day,
			})
			tp.notifier.Notify(fmt.Sprintf("Story shipped: %s", s.Title))
		}
	}
	if completed > 0 {
		tp.momentumTicks = tp.tun.MomentumTicks
	}

	// 4. Disruption roll. Never spawns when no incomplete work remains, so
	// a sprint cannot dead-end on an unresolvable blocker.
	tp.rollDisruption(c)

	// 5. Early-ship eligibility, edge-triggered.
	tp.checkEarlyShip(c)

	// 6. Day and period boundary.
	if tp.advanceDayTick(c) && tp.day > tp.tun.SprintDays {
		tp.finalizeSprint(c, 0)
	}
}

// wipMultiplier penalizes each in-progress story beyond the roster size,
// floored so throughput never collapses entirely.
func (tp *TickProcessor) wipMultiplier(inProgress, rosterSize int) float64 {
	excess := inProgress - rosterSize
	if excess <= 0 {
		return 1.0
	}
	m := 1.0 - tp.tun.WIPPenaltyPerExcess*float64(excess)
	if m < tp.tun.WIPFloor {
		m = tp.tun.WIPFloor
	}
	return m
}

// rollDisruption rolls the per-tick blocker probability, reduced by any
// BLOCKER_WARD passives on the roster and floored at zero.
func (tp *TickProcessor) rollDisruption(c *contract.Contract) {
	items := tp.board.Items()
	if !hasIncompleteStories(items) {
		return
	}
	if countActiveBlockers(items) >= tp.tun.MaxActiveBlockers {
		return
	}

	chance := tp.tun.BlockerChance * (1.0 - contributor.DisruptionReduction(tp.roster.Contributors()))
	if chance <= 0 {
		return
	}
	if tp.rng.Float64() >= chance {
		return
	}

	blocker := tp.gen.NewBlocker()
	tp.board.Append(blocker)
	if tp.metrics != nil {
		tp.metrics.RecordBlockerSpawned()
	}
	tp.eventLog.Append(events.StudioEvent{
		ID:        events.NewEventID(),
		Timestamp: time.Now(),
		Type:      events.TypeBlockerSpawned,
		ActorID:   "SYSTEM_SIM",
		TargetID:  blocker.ID,
		Payload:   BlockerSpawnedPayload{ItemID: blocker.ID, Title: blocker.Title},
		Sprint:    c.CurrentSprint,
		Day:       tp.day,
	})
	tp.notifier.Notify(fmt.Sprintf("Blocker: %s", blocker.Title))
	tp.logger.Event("BLOCKER_SPAWNED", "SYSTEM_SIM", blocker.Title)
}

// checkEarlyShip surfaces the ship-early signal exactly once each time the
// board becomes fully clear; the latch re-arms if new work appears.
func (tp *TickProcessor) checkEarlyShip(c *contract.Contract) {
	items := tp.board.Items()
	clear := !hasIncompleteStories(items) && countActiveBlockers(items) == 0

	if !clear {
		tp.earlyShipSignaled = false
		return
	}
	if tp.earlyShipSignaled {
		return
	}
	tp.earlyShipSignaled = true
	tp.eventLog.Append(events.StudioEvent{
		ID:        events.NewEventID(),
		Timestamp: time.Now(),
		Type:      events.TypeEarlyShipReady,
		ActorID:   "SYSTEM_SIM",
		Sprint:    c.CurrentSprint,
		Day:       tp.day,
	})
	tp.notifier.Notify("All committed work done. The sprint can ship early.")
}

// advanceDayTick increments the tick-within-day counter and reports whether
// a day boundary was crossed.
func (tp *TickProcessor) advanceDayTick(c *contract.Contract) bool {
	tp.tickInDay++
	if tp.tickInDay < tp.tun.TicksPerDay {
		return false
	}
	tp.tickInDay = 0
	tp.day++
	tp.eventLog.Append(events.StudioEvent{
		ID:        events.NewEventID(),
		Timestamp: time.Now(),
		Type:      events.TypeDayAdvanced,
		ActorID:   "SYSTEM_SIM",
		Payload:   DayAdvancedPayload{Sprint: c.CurrentSprint, Day: tp.day},
		Sprint:    c.CurrentSprint,
		Day:       tp.day,
	})
	return true
}

// finalizeSprint gathers the contract-wide story picture, scores the sprint
// (interim or final), and drives the phase machine to Review.
func (tp *TickProcessor) finalizeSprint(c *contract.Contract, daysRemaining int) {
	sprintItems := tp.board.Items()

	var result contract.PeriodResult
	if c.OnFinalSprint() {
		result = rules.CalculateFinal(c, sprintItems, tp.dismissedThisSprint, daysRemaining, tp.payout)
	} else {
		result = rules.CalculateInterim(c.CurrentSprint, sprintItems, c.Stories(), tp.dismissedThisSprint)
	}

	if tp.metrics != nil {
		tp.metrics.RecordSprintClosed()
	}
	tp.eventLog.Append(events.StudioEvent{
		ID:        events.NewEventID(),
		Timestamp: time.Now(),
		Type:      events.TypeSprintClosed,
		ActorID:   "SYSTEM_SIM",
		TargetID:  c.ID,
		Payload:   SprintClosedPayload{Result: result},
		Sprint:    c.CurrentSprint,
		Day:       tp.day,
	})
	tp.logger.Event("SPRINT_CLOSED", "SYSTEM_SIM",
		fmt.Sprintf("sprint %d/%d kind=%s ratio=%.2f grade=%s",
			c.CurrentSprint, c.TotalSprints, result.Kind, result.CompletionRatio, result.Grade))
	tp.notifier.Notify(fmt.Sprintf("Sprint %d review ready (grade %s)", c.CurrentSprint, result.Grade))

	if tp.onSprintClosed != nil {
		tp.onSprintClosed(result)
	}
	tp.machine.PeriodBoundaryReached()
}

// FinalizeEarly closes the sprint before the day budget runs out. The
// caller has already validated eligibility. Days remaining earn the early
// bonus on the contract's final sprint.
func (tp *TickProcessor) FinalizeEarly(c *contract.Contract) contract.PeriodResult {
	daysRemaining := tp.tun.SprintDays - tp.day
	if daysRemaining < 0 {
		daysRemaining = 0
	}

	sprintItems := tp.board.Items()
	var result contract.PeriodResult
	if c.OnFinalSprint() {
		result = rules.CalculateFinal(c, sprintItems, tp.dismissedThisSprint, daysRemaining, tp.payout)
	} else {
		result = rules.CalculateInterim(c.CurrentSprint, sprintItems, c.Stories(), tp.dismissedThisSprint)
		result.DaysRemaining = daysRemaining
	}

	if tp.metrics != nil {
		tp.metrics.RecordSprintClosed()
	}
	tp.eventLog.Append(events.StudioEvent{
		ID:        events.NewEventID(),
		Timestamp: time.Now(),
		Type:      events.TypeShippedEarly,
		ActorID:   "PLAYER",
		TargetID:  c.ID,
		Payload:   SprintClosedPayload{Result: result},
		Sprint:    c.CurrentSprint,
		Day:       tp.day,
	})
	tp.logger.Event("SHIPPED_EARLY", "PLAYER",
		fmt.Sprintf("sprint %d with %d day(s) remaining", c.CurrentSprint, daysRemaining))

	if tp.onSprintClosed != nil {
		tp.onSprintClosed(result)
	}
	tp.machine.ShipEarly()
	return result
}

// EarlyShipEligible reports whether the current sprint may ship early:
// every committed story done and no live blocker.
func (tp *TickProcessor) EarlyShipEligible() bool {
	items := tp.board.Items()
	return !hasIncompleteStories(items) && countActiveBlockers(items) == 0
}

func storiesInProgress(items []*work.Item) []*work.Item {
	var out []*work.Item
	for _, it := range items {
		if it.Kind == work.KindStory && it.Status == work.StatusInProgress {
			out = append(out, it)
		}
	}
	return out
}

func countActiveBlockers(items []*work.Item) int {
	n := 0
	for _, it := range items {
		if it.IsActiveBlocker() {
			n++
		}
	}
	return n
}

// hasIncompleteStories reports whether any committed story still needs work.
func hasIncompleteStories(items []*work.Item) bool {
	for _, it := range items {
		if it.Kind != work.KindStory {
			continue
		}
		if it.Status == work.StatusQueued || it.Status == work.StatusInProgress {
			return true
		}
	}
	return false
}
