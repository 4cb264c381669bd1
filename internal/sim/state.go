package sim

import (
	"github.com/lmendia/DevHouseTycoon/internal/domain/contributor"
	"github.com/lmendia/DevHouseTycoon/internal/domain/work"
)

// Board is the accessor for the current sprint's work items. Items are
// shared pointers: progress and status writes through the slice are visible
// to every holder, including the contract's full backlog.
type Board interface {
	// Items returns the items currently on the sprint board.
	Items() []*work.Item
	// Append adds a newly spawned item (blockers, mid-sprint scope).
	Append(item *work.Item)
	// Replace swaps the whole board, used at sprint boundaries.
	Replace(items []*work.Item)
}

// Roster is the accessor for the hired contributors and the candidate pool.
type Roster interface {
	Contributors() []*contributor.Contributor
	Hire(c *contributor.Contributor)
	Candidates() []contributor.Candidate
	SetCandidates(cands []contributor.Candidate)
}

// Notifier is the one-way sink for short-lived user-facing messages.
// Fire-and-forget: no acknowledgment or delivery guarantee.
type Notifier interface {
	Notify(message string)
}

// NopNotifier discards notifications; used by headless runs.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(string) {}

// MemBoard is the in-memory Board used by the server host and tests.
type MemBoard struct {
	items []*work.Item
}

// NewMemBoard creates an empty board.
func NewMemBoard() *MemBoard {
	return &MemBoard{items: make([]*work.Item, 0)}
}

// Items implements Board.
func (b *MemBoard) Items() []*work.Item { return b.items }

// Append implements Board.
func (b *MemBoard) Append(item *work.Item) { b.items = append(b.items, item) }

// Replace implements Board.
func (b *MemBoard) Replace(items []*work.Item) { b.items = items }

// FindItem returns the board item with the given ID, or nil.
func (b *MemBoard) FindItem(id string) *work.Item {
	for _, it := range b.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// MemRoster is the in-memory Roster used by the server host and tests.
type MemRoster struct {
	contributors []*contributor.Contributor
	candidates   []contributor.Candidate
}

// NewMemRoster creates a roster with the given starting hires.
func NewMemRoster(starters ...*contributor.Contributor) *MemRoster {
	return &MemRoster{contributors: starters}
}

// Contributors implements Roster.
func (r *MemRoster) Contributors() []*contributor.Contributor { return r.contributors }

// Hire implements Roster. Hired contributors are never removed.
func (r *MemRoster) Hire(c *contributor.Contributor) {
	r.contributors = append(r.contributors, c)
}

// Candidates implements Roster.
func (r *MemRoster) Candidates() []contributor.Candidate { return r.candidates }

// SetCandidates implements Roster.
func (r *MemRoster) SetCandidates(cands []contributor.Candidate) { r.candidates = cands }
