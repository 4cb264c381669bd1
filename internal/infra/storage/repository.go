// Package storage provides the persistence layer for the studio server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"time"
)

// StudioEvent mirrors the domain event structure for persistence.
// The domain package should NOT import this; use interfaces instead.
type StudioEvent struct {
	ID        string    `json:"id" db:"id"`
	StudioID  string    `json:"studio_id" db:"studio_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	EventType string    `json:"event_type" db:"event_type"`
	ActorID   string    `json:"actor_id" db:"actor_id"`
	TargetID  string    `json:"target_id" db:"target_id"`
	Payload   string    `json:"payload" db:"payload"`
	Sprint    int       `json:"sprint" db:"sprint"`
	Day       int       `json:"day" db:"day"`
}

// EventRepository defines the interface for event persistence.
// The domain uses this interface; the implementation is in infra.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event StudioEvent) error

	// GetByStudioID retrieves all events for a studio (for replay).
	GetByStudioID(ctx context.Context, studioID string) ([]StudioEvent, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, studioID, eventType string) ([]StudioEvent, error)

	// GetBySprint retrieves all events from a specific sprint.
	GetBySprint(ctx context.Context, studioID string, sprint int) ([]StudioEvent, error)
}

// StudioSnapshot is the single-row studio state used for boot restore.
type StudioSnapshot struct {
	StudioID      string    `json:"studio_id" db:"studio_id"`
	Phase         string    `json:"phase" db:"phase"`
	Bank          float64   `json:"bank" db:"bank"`
	CurrentSprint int       `json:"current_sprint" db:"current_sprint"`
	CurrentDay    int       `json:"current_day" db:"current_day"`
	LastUpdated   time.Time `json:"last_updated" db:"last_updated"`
}

// ContractSnapshot is the persisted active contract, without its items.
type ContractSnapshot struct {
	ContractID    string  `json:"contract_id" db:"contract_id"`
	StudioID      string  `json:"studio_id" db:"studio_id"`
	Client        string  `json:"client" db:"client"`
	BasePayout    float64 `json:"base_payout" db:"base_payout"`
	TotalSprints  int     `json:"total_sprints" db:"total_sprints"`
	CurrentSprint int     `json:"current_sprint" db:"current_sprint"`
	IsClosed      bool    `json:"is_closed" db:"is_closed"`
}

// WorkItemSnapshot is a persisted backlog item.
type WorkItemSnapshot struct {
	ItemID         string  `json:"item_id" db:"item_id"`
	ContractID     string  `json:"contract_id" db:"contract_id"`
	Kind           string  `json:"kind" db:"kind"`
	Title          string  `json:"title" db:"title"`
	PointsRequired float64 `json:"points_required" db:"points_required"`
	PointsDone     float64 `json:"points_done" db:"points_done"`
	Status         string  `json:"status" db:"status"`
}

// ContributorSnapshot is a persisted roster member.
type ContributorSnapshot struct {
	ContributorID string  `json:"contributor_id" db:"contributor_id"`
	StudioID      string  `json:"studio_id" db:"studio_id"`
	Name          string  `json:"name" db:"name"`
	Archetype     string  `json:"archetype" db:"archetype"`
	Velocity      float64 `json:"velocity" db:"velocity"`
	Passive       string  `json:"passive" db:"passive"`
	PassiveValue  float64 `json:"passive_value" db:"passive_value"`
}

// SnapshotRepository defines the interface for studio state snapshots.
type SnapshotRepository interface {
	// UpsertStudio updates or inserts the studio row.
	UpsertStudio(ctx context.Context, snap StudioSnapshot) error

	// GetStudio retrieves the studio row, or nil when absent.
	GetStudio(ctx context.Context, studioID string) (*StudioSnapshot, error)

	// UpsertContract saves the active contract and its full backlog.
	UpsertContract(ctx context.Context, c ContractSnapshot, items []WorkItemSnapshot) error

	// GetOpenContract retrieves the unclosed contract and its items, or
	// nil when no contract is open.
	GetOpenContract(ctx context.Context, studioID string) (*ContractSnapshot, []WorkItemSnapshot, error)

	// UpsertContributors saves the current roster.
	UpsertContributors(ctx context.Context, snaps []ContributorSnapshot) error

	// GetContributors retrieves the persisted roster.
	GetContributors(ctx context.Context, studioID string) ([]ContributorSnapshot, error)
}
