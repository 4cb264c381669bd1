// Package rules contains the pure calculation logic for contract scoring.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"math"

	"github.com/lmendia/DevHouseTycoon/internal/domain/contract"
	"github.com/lmendia/DevHouseTycoon/internal/domain/work"
)

// PayoutParams holds the balance knobs for the closing payout.
type PayoutParams struct {
	// CurveExponent (> 1) shapes cash = base × ratio^exp, which punishes
	// partial completion harder than a straight percentage.
	CurveExponent float64
	// PerfectBonusFrac is the fraction of base payout added at ratio == 1.0.
	PerfectBonusFrac float64
	// EarlyBonusPerDay is the fraction of BASE payout paid per day left on
	// the clock when the contract ships early. Intentionally computed off
	// the base, not the curved cash.
	EarlyBonusPerDay float64
}

// DefaultPayoutParams returns the balance values the game ships with.
func DefaultPayoutParams() PayoutParams {
	return PayoutParams{
		CurveExponent:    1.3,
		PerfectBonusFrac: 0.15,
		EarlyBonusPerDay: 0.05,
	}
}

// gradeBands maps completion-ratio thresholds to letter grades, best first.
// A ratio qualifies for the first band whose threshold it meets.
var gradeBands = []struct {
	min   float64
	grade contract.Grade
}{
	{1.0, contract.GradeS},
	{0.90, contract.GradeA},
	{0.75, contract.GradeB},
	{0.60, contract.GradeC},
	{0.40, contract.GradeD},
}

// GradeFor assigns a letter grade by ranked threshold lookup.
func GradeFor(ratio float64) contract.Grade {
	for _, band := range gradeBands {
		if ratio >= band.min {
			return band.grade
		}
	}
	return contract.GradeF
}

// Tally sums story points and counts over a set of items. Blockers carry
// zero points and are excluded from both tallies.
func Tally(items []*work.Item) (pointsDone, pointsTotal float64, storiesDone, storiesTotal int) {
	for _, it := range items {
		if it.Kind != work.KindStory {
			continue
		}
		pointsDone += it.PointsDone
		pointsTotal += it.PointsRequired
		storiesTotal++
		if it.Status == work.StatusDone {
			storiesDone++
		}
	}
	return pointsDone, pointsTotal, storiesDone, storiesTotal
}

// CompletionRatio returns done/total, short-circuiting a zero-point
// contract to 0 rather than dividing by zero.
func CompletionRatio(pointsDone, pointsTotal float64) float64 {
	if pointsTotal <= 0 {
		return 0
	}
	return pointsDone / pointsTotal
}

// CalculateInterim scores a non-final sprint boundary. No money changes
// hands until contract close; the grade is provisional, computed from the
// contract-wide ratio.
func CalculateInterim(sprint int, sprintItems, contractItems []*work.Item, blockersDismissed int) contract.PeriodResult {
	spd, spt, ssd, sst := Tally(sprintItems)
	cpd, cpt, csd, cst := Tally(contractItems)
	ratio := CompletionRatio(cpd, cpt)

	return contract.PeriodResult{
		Kind:                 contract.ResultInterim,
		Sprint:               sprint,
		SprintPointsDone:     spd,
		SprintPointsTotal:    spt,
		SprintStoriesDone:    ssd,
		SprintStoriesTotal:   sst,
		ContractPointsDone:   cpd,
		ContractPointsTotal:  cpt,
		ContractStoriesDone:  csd,
		ContractStoriesTotal: cst,
		BlockersDismissed:    blockersDismissed,
		CompletionRatio:      ratio,
		Grade:                GradeFor(ratio),
	}
}

// CalculateFinal scores the contract at close. daysRemaining is non-zero
// only when the final sprint shipped early.
func CalculateFinal(c *contract.Contract, sprintItems []*work.Item, blockersDismissed, daysRemaining int, p PayoutParams) contract.PeriodResult {
	spd, spt, ssd, sst := Tally(sprintItems)
	cpd, cpt, csd, cst := Tally(c.Stories())
	ratio := CompletionRatio(cpd, cpt)

	cash := c.BasePayout * math.Pow(ratio, p.CurveExponent)

	var perfect float64
	if ratio >= 1.0 {
		perfect = c.BasePayout * p.PerfectBonusFrac
	}

	var early float64
	if daysRemaining > 0 {
		early = c.BasePayout * p.EarlyBonusPerDay * float64(daysRemaining)
	}

	return contract.PeriodResult{
		Kind:                 contract.ResultFinal,
		Sprint:               c.CurrentSprint,
		SprintPointsDone:     spd,
		SprintPointsTotal:    spt,
		SprintStoriesDone:    ssd,
		SprintStoriesTotal:   sst,
		ContractPointsDone:   cpd,
		ContractPointsTotal:  cpt,
		ContractStoriesDone:  csd,
		ContractStoriesTotal: cst,
		BlockersDismissed:    blockersDismissed,
		DaysRemaining:        daysRemaining,
		CompletionRatio:      ratio,
		CashEarned:           cash,
		PerfectBonus:         perfect,
		EarlyBonus:           early,
		Grade:                GradeFor(ratio),
	}
}
