// Package contract defines the multi-sprint work contract and its scoring results.
// This package is PURE and must NOT import any infrastructure packages.
package contract

import "github.com/lmendia/DevHouseTycoon/internal/domain/work"

// Contract is a multi-sprint unit of client work with one aggregate payout.
type Contract struct {
	ID     string `json:"id"`
	Client string `json:"client"`

	// FullBacklog holds every story ever generated for the contract.
	// Item statuses here always reflect the true lifecycle state; the
	// board shows a committed subset of these same items.
	FullBacklog []*work.Item `json:"full_backlog"`

	BasePayout    float64 `json:"base_payout"`
	TotalSprints  int     `json:"total_sprints"`
	CurrentSprint int     `json:"current_sprint"` // 1-based
}

// OnFinalSprint reports whether the active sprint is the contract's last.
func (c *Contract) OnFinalSprint() bool {
	return c.CurrentSprint >= c.TotalSprints
}

// Stories returns the full backlog (all items in a contract are stories;
// blockers live only on the board and never join the backlog).
func (c *Contract) Stories() []*work.Item {
	return c.FullBacklog
}

// Grade is the letter grade assigned at scoring time.
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// ResultKind distinguishes mid-contract tallies from the closing payout.
type ResultKind string

const (
	ResultInterim ResultKind = "INTERIM"
	ResultFinal   ResultKind = "FINAL"
)

// PeriodResult is the immutable outcome of one sprint boundary.
// Cash fields are only non-zero on the FINAL result.
type PeriodResult struct {
	Kind   ResultKind `json:"kind"`
	Sprint int        `json:"sprint"`

	SprintPointsDone   float64 `json:"sprint_points_done"`
	SprintPointsTotal  float64 `json:"sprint_points_total"`
	SprintStoriesDone  int     `json:"sprint_stories_done"`
	SprintStoriesTotal int     `json:"sprint_stories_total"`

	ContractPointsDone   float64 `json:"contract_points_done"`
	ContractPointsTotal  float64 `json:"contract_points_total"`
	ContractStoriesDone  int     `json:"contract_stories_done"`
	ContractStoriesTotal int     `json:"contract_stories_total"`

	BlockersDismissed int `json:"blockers_dismissed"`
	DaysRemaining     int `json:"days_remaining"` // >0 only when shipped early

	CompletionRatio float64 `json:"completion_ratio"`
	CashEarned      float64 `json:"cash_earned"`
	PerfectBonus    float64 `json:"perfect_bonus"`
	EarlyBonus      float64 `json:"early_bonus"`
	Grade           Grade   `json:"grade"`
}

// Total returns the full amount paid out for this result.
func (r PeriodResult) Total() float64 {
	return r.CashEarned + r.PerfectBonus + r.EarlyBonus
}
