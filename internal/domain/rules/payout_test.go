package rules

import (
	"math"
	"testing"

	"github.com/lmendia/DevHouseTycoon/internal/domain/contract"
	"github.com/lmendia/DevHouseTycoon/internal/domain/work"
)

func doneStory(id string, points float64) *work.Item {
	s := work.NewStory(id, "story "+id, points)
	s.AddProgress(points)
	s.Status = work.StatusDone
	return s
}

func partialStory(id string, points, done float64) *work.Item {
	s := work.NewStory(id, "story "+id, points)
	s.AddProgress(done)
	s.Status = work.StatusInProgress
	return s
}

func TestInterimResultCarriesNoCash(t *testing.T) {
	// 10 contract points, 6 of them done at the boundary.
	contractItems := []*work.Item{
		doneStory("S1", 6),
		partialStory("S2", 4, 0),
	}
	sprintItems := contractItems[:1]

	result := CalculateInterim(1, sprintItems, contractItems, 2)

	if result.Kind != contract.ResultInterim {
		t.Fatalf("Expected INTERIM result, got %s", result.Kind)
	}
	if result.ContractPointsDone != 6 || result.ContractPointsTotal != 10 {
		t.Errorf("Expected contract tally 6/10, got %v/%v", result.ContractPointsDone, result.ContractPointsTotal)
	}
	if result.CompletionRatio != 0.6 {
		t.Errorf("Expected ratio 0.6, got %v", result.CompletionRatio)
	}
	if result.Grade != contract.GradeC {
		t.Errorf("Expected provisional grade C at 0.6, got %s", result.Grade)
	}
	if result.CashEarned != 0 || result.PerfectBonus != 0 || result.EarlyBonus != 0 {
		t.Errorf("Interim result must carry no money, got %v", result.Total())
	}
	if result.BlockersDismissed != 2 {
		t.Errorf("Expected 2 dismissed blockers recorded, got %d", result.BlockersDismissed)
	}
}

func TestFinalPayoutCurvePunishesPartialWork(t *testing.T) {
	// 80% completion on a 1000 base must land well below a straight 800.
	c := &contract.Contract{
		ID:         "K1",
		BasePayout: 1000,
		FullBacklog: []*work.Item{
			doneStory("S1", 8),
			partialStory("S2", 2, 0),
		},
		TotalSprints:  1,
		CurrentSprint: 1,
	}

	result := CalculateFinal(c, c.FullBacklog, 0, 0, DefaultPayoutParams())

	if result.Kind != contract.ResultFinal {
		t.Fatalf("Expected FINAL result, got %s", result.Kind)
	}
	if math.Abs(result.CashEarned-748.22) > 0.05 {
		t.Errorf("Expected curved cash ~748.22 for ratio 0.8, got %v", result.CashEarned)
	}
	if result.CashEarned >= 800 {
		t.Errorf("Curve must pay less than the linear 800, got %v", result.CashEarned)
	}
	if result.PerfectBonus != 0 {
		t.Errorf("No perfect bonus below full completion, got %v", result.PerfectBonus)
	}
	if result.Grade != contract.GradeB {
		t.Errorf("Expected grade B at 0.8, got %s", result.Grade)
	}
}

func TestFinalPayoutPerfectBonus(t *testing.T) {
	c := &contract.Contract{
		ID:            "K2",
		BasePayout:    1000,
		FullBacklog:   []*work.Item{doneStory("S1", 5), doneStory("S2", 5)},
		TotalSprints:  1,
		CurrentSprint: 1,
	}

	result := CalculateFinal(c, c.FullBacklog, 0, 0, DefaultPayoutParams())

	if result.CashEarned != 1000 {
		t.Errorf("Expected full base cash at ratio 1.0, got %v", result.CashEarned)
	}
	if result.PerfectBonus != 150 {
		t.Errorf("Expected perfect bonus 150, got %v", result.PerfectBonus)
	}
	if result.Grade != contract.GradeS {
		t.Errorf("Expected grade S at 1.0, got %s", result.Grade)
	}
	if result.Total() != 1150 {
		t.Errorf("Expected total 1150, got %v", result.Total())
	}
}

func TestEarlyBonusComputedOffBasePayout(t *testing.T) {
	// 3 days left on a 2000 base at 5%/day pays 300, regardless of the
	// curved cash amount.
	c := &contract.Contract{
		ID:            "K3",
		BasePayout:    2000,
		FullBacklog:   []*work.Item{doneStory("S1", 10)},
		TotalSprints:  1,
		CurrentSprint: 1,
	}

	result := CalculateFinal(c, c.FullBacklog, 0, 3, DefaultPayoutParams())

	if result.EarlyBonus != 300 {
		t.Errorf("Expected early bonus 300 for 3 days on base 2000, got %v", result.EarlyBonus)
	}
	if result.DaysRemaining != 3 {
		t.Errorf("Expected 3 days remaining recorded, got %d", result.DaysRemaining)
	}
}

func TestZeroPointContractScoresZero(t *testing.T) {
	c := &contract.Contract{ID: "K4", BasePayout: 1000, TotalSprints: 1, CurrentSprint: 1}

	result := CalculateFinal(c, nil, 0, 0, DefaultPayoutParams())

	if result.CompletionRatio != 0 {
		t.Errorf("Expected ratio 0 on empty contract, got %v", result.CompletionRatio)
	}
	if result.CashEarned != 0 {
		t.Errorf("Expected no cash on empty contract, got %v", result.CashEarned)
	}
	if result.Grade != contract.GradeF {
		t.Errorf("Expected grade F, got %s", result.Grade)
	}
}

func TestGradeBands(t *testing.T) {
	cases := []struct {
		ratio float64
		want  contract.Grade
	}{
		{1.0, contract.GradeS},
		{0.99, contract.GradeA},
		{0.90, contract.GradeA},
		{0.89, contract.GradeB},
		{0.75, contract.GradeB},
		{0.60, contract.GradeC},
		{0.59, contract.GradeD},
		{0.40, contract.GradeD},
		{0.39, contract.GradeF},
		{0.0, contract.GradeF},
	}
	for _, tc := range cases {
		if got := GradeFor(tc.ratio); got != tc.want {
			t.Errorf("GradeFor(%v) = %s, want %s", tc.ratio, got, tc.want)
		}
	}
}

func TestTallyIgnoresBlockers(t *testing.T) {
	items := []*work.Item{
		doneStory("S1", 5),
		work.NewBlocker("B1", "CI outage"),
	}
	pd, pt, sd, st := Tally(items)
	if pt != 5 || pd != 5 {
		t.Errorf("Expected points 5/5 excluding blockers, got %v/%v", pd, pt)
	}
	if sd != 1 || st != 1 {
		t.Errorf("Expected story count 1/1 excluding blockers, got %d/%d", sd, st)
	}
}
