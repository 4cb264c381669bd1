// Package main is a headless batch runner for payout balance tuning.
// It plays whole contracts with a fixed policy and a pinned seed, then
// prints the grade and payout distribution.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/lmendia/DevHouseTycoon/internal/domain/contract"
	"github.com/lmendia/DevHouseTycoon/internal/domain/contributor"
	"github.com/lmendia/DevHouseTycoon/internal/domain/work"
	"github.com/lmendia/DevHouseTycoon/internal/platform/tuning"
	"github.com/lmendia/DevHouseTycoon/internal/sim"
)

// blockerReactionTicks is how long the scripted player takes to notice and
// dismiss a blocker.
const blockerReactionTicks = 3

func main() {
	contracts := flag.Int("contracts", 100, "number of contracts to play")
	seed := flag.Int64("seed", 1, "random seed (runs are reproducible per seed)")
	tuningPath := flag.String("tuning", "", "optional tuning YAML override file")
	flag.Parse()

	tun := tuning.Default()
	if *tuningPath != "" {
		var err error
		tun, err = tuning.Load(*tuningPath)
		if err != nil {
			log.Fatalf("load tuning: %v", err)
		}
	}

	roster := sim.NewMemRoster(
		&contributor.Contributor{ID: "C001", Name: "Sam", Archetype: contributor.ArchetypeGeneralist, Velocity: 1.2},
		&contributor.Contributor{ID: "C002", Name: "Igor", Archetype: contributor.ArchetypeBackend, Velocity: 1.0},
		&contributor.Contributor{ID: "C003", Name: "Ash", Archetype: contributor.ArchetypeFirefighter, Velocity: 0.8,
			Passive: contributor.PassiveEffect{Kind: contributor.EffectBlockerWard, Amount: 0.25}},
	)
	simulation := sim.New(sim.Config{
		Tuning: tun,
		Rand:   sim.NewRand(*seed),
		Roster: roster,
	})

	// One synthetic wall clock for the whole batch; the fixed-timestep clock
	// keeps its own last-seen timestamp, so time must only move forward.
	now := time.Now()
	for i := 0; i < *contracts; i++ {
		now = playContract(simulation, tun, now)
	}

	report(simulation.Results(), simulation.Bank())
}

// playContract drives one contract from acceptance to close with a fixed
// policy: commit everything, dismiss blockers after a short reaction delay,
// ship early when possible, collect every review.
func playContract(s *sim.Simulation, tun tuning.Tuning, now time.Time) time.Time {
	if _, ok := s.AcceptContract(); !ok {
		log.Fatal("accept rejected: simulation not idle")
	}

	blockerAge := map[string]int{}

	// Generous upper bound so a stall becomes a loud failure instead of a hang.
	maxSteps := (tun.PlanningDays + tun.SprintDays) * tun.TicksPerDay * tun.SprintsMax * 10

	for step := 0; step < maxSteps; step++ {
		switch s.Phase() {
		case sim.PhaseIdle:
			return now
		case sim.PhasePlanning:
			commitAll(s)
		case sim.PhaseActive:
			dismissAgedBlockers(s, blockerAge)
			s.ShipEarly()
		case sim.PhaseReview:
			blockerAge = map[string]int{}
			if !s.CollectPayout() {
				log.Fatal("collect rejected during review")
			}
			continue
		}

		now = now.Add(tun.TickInterval.Std())
		s.Advance(now)
	}
	log.Fatal("contract did not finish within the step bound")
	return now
}

func commitAll(s *sim.Simulation) {
	c := s.Contract()
	if c == nil {
		return
	}
	for _, it := range c.FullBacklog {
		if it.Status == work.StatusBacklog {
			s.CommitStory(it.ID)
		}
	}
}

func dismissAgedBlockers(s *sim.Simulation, age map[string]int) {
	for _, it := range s.Board().Items() {
		if !it.IsActiveBlocker() {
			continue
		}
		age[it.ID]++
		if age[it.ID] >= blockerReactionTicks {
			s.DismissBlocker(it.ID)
		}
	}
}

func report(results []contract.PeriodResult, bank float64) {
	type bucket struct {
		count int
		cash  float64
	}
	grades := map[contract.Grade]*bucket{}
	finals := 0
	var totalCash float64
	earlyShips := 0

	for _, r := range results {
		if r.Kind != contract.ResultFinal {
			continue
		}
		finals++
		b := grades[r.Grade]
		if b == nil {
			b = &bucket{}
			grades[r.Grade] = b
		}
		b.count++
		b.cash += r.Total()
		totalCash += r.Total()
		if r.DaysRemaining > 0 {
			earlyShips++
		}
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Grade", "Contracts", "Share", "Avg Payout"})
	for _, g := range []contract.Grade{contract.GradeS, contract.GradeA, contract.GradeB, contract.GradeC, contract.GradeD, contract.GradeF} {
		b := grades[g]
		if b == nil {
			continue
		}
		tw.AppendRow(table.Row{
			g,
			b.count,
			fmt.Sprintf("%.1f%%", 100*float64(b.count)/float64(finals)),
			fmt.Sprintf("%.0f", b.cash/float64(b.count)),
		})
	}
	tw.AppendFooter(table.Row{"Total", finals, "", fmt.Sprintf("%.0f", totalCash/max(1, float64(finals)))})
	tw.Render()

	fmt.Printf("Early ships: %d/%d  Final bank: %.0f\n", earlyShips, finals, bank)
}
