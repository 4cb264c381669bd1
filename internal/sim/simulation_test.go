package sim

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmendia/DevHouseTycoon/internal/domain/contract"
	"github.com/lmendia/DevHouseTycoon/internal/domain/contributor"
	"github.com/lmendia/DevHouseTycoon/internal/domain/work"
	"github.com/lmendia/DevHouseTycoon/internal/platform/tuning"
)

func newTestSimulation(seed int64, tun tuning.Tuning) *Simulation {
	return New(Config{
		Tuning: tun,
		Rand:   NewRand(seed),
		Roster: NewMemRoster(
			&contributor.Contributor{ID: "C001", Name: "Sam", Archetype: contributor.ArchetypeGeneralist, Velocity: 1.2},
			&contributor.Contributor{ID: "C002", Name: "Igor", Archetype: contributor.ArchetypeBackend, Velocity: 1.0},
		),
	})
}

// fastTuning shrinks the day budget so playthrough tests stay short.
func fastTuning() tuning.Tuning {
	tun := tuning.Default()
	tun.TicksPerDay = 2
	tun.PlanningDays = 1
	tun.SprintDays = 2
	tun.BlockerChance = 0
	return tun
}

func TestAcceptContractOnlyWhenIdle(t *testing.T) {
	s := newTestSimulation(1, fastTuning())

	c, ok := s.AcceptContract()
	require.True(t, ok)
	require.NotNil(t, c)
	assert.Equal(t, PhasePlanning, s.Phase())

	_, ok = s.AcceptContract()
	assert.False(t, ok, "a second accept must be rejected while a contract is open")
}

func TestCommitAndUncommitDuringPlanning(t *testing.T) {
	s := newTestSimulation(2, fastTuning())
	c, _ := s.AcceptContract()
	story := c.FullBacklog[0]

	require.True(t, s.CommitStory(story.ID))
	assert.Equal(t, work.StatusQueued, story.Status)
	assert.Len(t, s.Board().Items(), 1)

	assert.False(t, s.CommitStory(story.ID), "recommitting a queued story must fail")

	require.True(t, s.UncommitStory(story.ID))
	assert.Equal(t, work.StatusBacklog, story.Status)
	assert.Empty(t, s.Board().Items())

	assert.False(t, s.UncommitStory(story.ID), "uncommitting a backlog story must fail")
	assert.False(t, s.CommitStory("NO_SUCH_ID"))
}

func TestCommitRejectedOutsidePlanning(t *testing.T) {
	s := newTestSimulation(3, fastTuning())
	c, _ := s.AcceptContract()

	// Drain the planning day: 1 day of 2 ticks.
	s.Tick()
	s.Tick()
	require.Equal(t, PhaseActive, s.Phase())

	assert.False(t, s.CommitStory(c.FullBacklog[0].ID))
	assert.False(t, s.UncommitStory(c.FullBacklog[0].ID))
}

func TestDismissBlockerDuringSprint(t *testing.T) {
	s := newTestSimulation(4, fastTuning())
	s.AcceptContract()

	blocker := work.NewBlocker("B1", "prod incident")

	assert.False(t, s.DismissBlocker(blocker.ID), "dismiss must be rejected during PLANNING")

	s.Tick()
	s.Tick()
	require.Equal(t, PhaseActive, s.Phase())

	s.Board().Append(blocker)
	require.True(t, s.DismissBlocker(blocker.ID))
	assert.Equal(t, work.StatusDone, blocker.Status)

	assert.False(t, s.DismissBlocker(blocker.ID), "a resolved blocker cannot be dismissed twice")
}

func TestHireCandidateDeductsBank(t *testing.T) {
	s := newTestSimulation(5, fastTuning())

	batch := s.RollCandidates()
	require.Len(t, batch, 3)
	target := batch[0]

	s.SetBank(target.HireCost - 1)
	assert.False(t, s.HireCandidate(target.ID), "hire must fail when the bank cannot cover it")

	s.SetBank(10000)
	require.True(t, s.HireCandidate(target.ID))
	assert.InDelta(t, 10000-target.HireCost, s.Bank(), 1e-9)
	assert.Len(t, s.Roster().Contributors(), 3)
	assert.Empty(t, s.Roster().Candidates(), "hiring consumes the candidate batch")

	assert.False(t, s.HireCandidate(target.ID), "a consumed candidate cannot be hired again")
}

func TestCollectPayoutAdvancesOrCloses(t *testing.T) {
	s := newTestSimulation(6, fastTuning())
	c, _ := s.AcceptContract()

	assert.False(t, s.CollectPayout(), "collect must be rejected outside REVIEW")

	totalSprints := c.TotalSprints
	for sprint := 1; sprint <= totalSprints; sprint++ {
		require.Equal(t, PhasePlanning, s.Phase(), "sprint %d", sprint)
		for _, it := range c.FullBacklog {
			if it.Status == work.StatusBacklog {
				s.CommitStory(it.ID)
			}
		}
		for i := 0; i < 1000 && s.Phase() != PhaseReview; i++ {
			s.Tick()
		}
		require.Equal(t, PhaseReview, s.Phase(), "sprint %d must reach REVIEW", sprint)

		last := s.LastResult()
		require.NotNil(t, last)
		if sprint < totalSprints {
			assert.Equal(t, contract.ResultInterim, last.Kind)
			require.True(t, s.CollectPayout())
			assert.Equal(t, PhasePlanning, s.Phase())
			assert.Empty(t, s.Board().Items(), "board must be cleared at the boundary")
		} else {
			assert.Equal(t, contract.ResultFinal, last.Kind)
			expected := last.Total()
			require.True(t, s.CollectPayout())
			assert.Equal(t, PhaseIdle, s.Phase())
			assert.InDelta(t, expected, s.Bank(), 1e-9, "the final payout lands in the bank")
		}
	}

	assert.Len(t, s.Results(), totalSprints)
}

func TestUnfinishedStoriesReturnToBacklogAtBoundary(t *testing.T) {
	tun := fastTuning()
	tun.SprintsMin, tun.SprintsMax = 2, 2
	// A single slow day so nothing big can finish.
	tun.SprintDays = 1
	s := newTestSimulation(7, tun)
	c, _ := s.AcceptContract()

	for _, it := range c.FullBacklog {
		s.CommitStory(it.ID)
	}
	for i := 0; i < 1000 && s.Phase() != PhaseReview; i++ {
		s.Tick()
	}
	require.Equal(t, PhaseReview, s.Phase())
	require.True(t, s.CollectPayout())

	for _, it := range c.FullBacklog {
		if it.Status != work.StatusDone {
			assert.Equal(t, work.StatusBacklog, it.Status,
				"unfinished story %s must return to the backlog", it.ID)
		}
	}
}

func TestShipEarlyRequiresClearBoard(t *testing.T) {
	s := newTestSimulation(8, fastTuning())
	c, _ := s.AcceptContract()
	s.CommitStory(c.FullBacklog[0].ID)

	_, ok := s.ShipEarly()
	assert.False(t, ok, "ship early must be rejected during PLANNING")

	s.Tick()
	s.Tick()
	require.Equal(t, PhaseActive, s.Phase())

	_, ok = s.ShipEarly()
	assert.False(t, ok, "ship early must be rejected with work outstanding")

	// Finish the committed story by hand and ship.
	story := c.FullBacklog[0]
	story.AddProgress(story.Remaining())
	story.Status = work.StatusDone

	result, ok := s.ShipEarly()
	require.True(t, ok)
	require.NotNil(t, result)
	assert.Equal(t, PhaseReview, s.Phase())
}

func TestRestoreReseatsContractAtPlanning(t *testing.T) {
	s := newTestSimulation(9, fastTuning())

	c := &contract.Contract{
		ID:            "K9",
		Client:        "Acme",
		FullBacklog:   []*work.Item{work.NewStory("S1", "login page", 5)},
		BasePayout:    1200,
		TotalSprints:  3,
		CurrentSprint: 1,
	}
	require.True(t, s.Restore(c, 2))
	assert.Equal(t, PhasePlanning, s.Phase())
	assert.Equal(t, 2, s.Contract().CurrentSprint)

	assert.False(t, s.Restore(c, 2), "restore must be rejected once a contract is open")
}

// TestConcurrentReadsDuringPlay mirrors the server wiring: the clock
// goroutine samples the phase through Advance while action goroutines
// transition it. Run with -race; the getters must stay safe without the
// simulation lock.
func TestConcurrentReadsDuringPlay(t *testing.T) {
	s := newTestSimulation(11, fastTuning())

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// A frozen timestamp keeps the accumulator empty, so this
		// goroutine only samples the phase the way the clock does.
		now := time.Now()
		for {
			select {
			case <-done:
				return
			default:
			}
			s.Advance(now)
			_ = s.Phase()
			_ = s.Contract()
			_ = s.Day()
			_ = s.Bank()
		}
	}()

	c, ok := s.AcceptContract()
	require.True(t, ok)
	for i := 0; i < 2000 && s.Phase() != PhaseIdle; i++ {
		switch s.Phase() {
		case PhasePlanning:
			for _, it := range c.FullBacklog {
				if it.Status == work.StatusBacklog {
					s.CommitStory(it.ID)
				}
			}
			s.Tick()
		case PhaseActive:
			s.Tick()
		case PhaseReview:
			s.CollectPayout()
		}
	}
	close(done)
	wg.Wait()

	assert.Equal(t, PhaseIdle, s.Phase(), "the contract must close with readers attached")
}

func TestStateViewReflectsSimulation(t *testing.T) {
	s := newTestSimulation(10, fastTuning())
	s.SetBank(500)
	c, _ := s.AcceptContract()
	s.CommitStory(c.FullBacklog[0].ID)

	view := s.StateView()
	assert.Equal(t, PhasePlanning, view.Phase)
	assert.Equal(t, 500.0, view.Bank)
	assert.Equal(t, 1, view.Sprint)
	assert.Len(t, view.Board, 1)
	assert.Len(t, view.Roster, 2)
	require.NotNil(t, view.Contract)
	assert.Equal(t, c.ID, view.Contract.ID)
}
