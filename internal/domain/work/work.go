// Package work defines the core domain entities for sprint work items.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package work

// Kind represents the category of a work item.
type Kind string

const (
	KindStory   Kind = "STORY"   // Point-bearing, committed during Planning
	KindBlocker Kind = "BLOCKER" // Zero points, halts all story progress while active
)

// Status identifies where an item sits in its lifecycle.
type Status string

const (
	StatusBacklog    Status = "BACKLOG"
	StatusQueued     Status = "QUEUED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Item represents a single story or blocker on the board.
type Item struct {
	ID             string  `json:"id"`
	Kind           Kind    `json:"kind"`
	Title          string  `json:"title"`
	PointsRequired float64 `json:"points_required"`
	PointsDone     float64 `json:"points_done"`
	Status         Status  `json:"status"`
}

// NewStory creates a story in the backlog.
func NewStory(id, title string, points float64) *Item {
	if points < 0 {
		points = 0
	}
	return &Item{
		ID:             id,
		Kind:           KindStory,
		Title:          title,
		PointsRequired: points,
		Status:         StatusBacklog,
	}
}

// NewBlocker creates a blocker. Blockers carry zero points and start
// IN_PROGRESS: they are blocking from the moment they appear, and are
// resolved by an explicit dismiss action rather than by point accrual.
func NewBlocker(id, title string) *Item {
	return &Item{
		ID:     id,
		Kind:   KindBlocker,
		Title:  title,
		Status: StatusInProgress,
	}
}

// AddProgress accrues completed points, clamped to [0, PointsRequired].
func (i *Item) AddProgress(points float64) {
	if points <= 0 {
		return
	}
	i.PointsDone += points
	if i.PointsDone > i.PointsRequired {
		i.PointsDone = i.PointsRequired
	}
}

// Complete returns true once the required points have been accrued.
func (i *Item) Complete() bool {
	return i.PointsDone >= i.PointsRequired
}

// Remaining returns the points still outstanding.
func (i *Item) Remaining() float64 {
	r := i.PointsRequired - i.PointsDone
	if r < 0 {
		return 0
	}
	return r
}

// IsActiveBlocker reports whether the item is a blocker currently halting work.
func (i *Item) IsActiveBlocker() bool {
	return i.Kind == KindBlocker && i.Status == StatusInProgress
}
