package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event StudioEvent) error {
	query := `
		INSERT INTO events (id, studio_id, timestamp, event_type, actor_id, target_id, payload, sprint, day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.StudioID, event.Timestamp, event.EventType, event.ActorID,
		event.TargetID, event.Payload, event.Sprint, event.Day,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]StudioEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []StudioEvent
	for rows.Next() {
		var e StudioEvent
		err := rows.Scan(
			&e.ID, &e.StudioID, &e.Timestamp, &e.EventType, &e.ActorID,
			&e.TargetID, &e.Payload, &e.Sprint, &e.Day,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetByStudioID(ctx context.Context, studioID string) ([]StudioEvent, error) {
	query := `SELECT id, studio_id, timestamp, event_type, actor_id, target_id, payload, sprint, day FROM events WHERE studio_id = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, studioID)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, studioID, eventType string) ([]StudioEvent, error) {
	query := `SELECT id, studio_id, timestamp, event_type, actor_id, target_id, payload, sprint, day FROM events WHERE studio_id = ? AND event_type = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, studioID, eventType)
}

func (r *SQLiteEventRepository) GetBySprint(ctx context.Context, studioID string, sprint int) ([]StudioEvent, error) {
	query := `SELECT id, studio_id, timestamp, event_type, actor_id, target_id, payload, sprint, day FROM events WHERE studio_id = ? AND sprint = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, studioID, sprint)
}

// ---------------------------------------------------------
// SQLiteSnapshotRepository
// ---------------------------------------------------------

type SQLiteSnapshotRepository struct {
	db *sql.DB
}

func NewSQLiteSnapshotRepository(db *sql.DB) *SQLiteSnapshotRepository {
	return &SQLiteSnapshotRepository{db: db}
}

func (r *SQLiteSnapshotRepository) UpsertStudio(ctx context.Context, snap StudioSnapshot) error {
	query := `
		INSERT INTO studio_state (studio_id, phase, bank, current_sprint, current_day, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(studio_id) DO UPDATE SET
			phase=excluded.phase,
			bank=excluded.bank,
			current_sprint=excluded.current_sprint,
			current_day=excluded.current_day,
			last_updated=excluded.last_updated
	`
	_, err := r.db.ExecContext(ctx, query,
		snap.StudioID, snap.Phase, snap.Bank, snap.CurrentSprint, snap.CurrentDay, time.Now(),
	)
	return err
}

func (r *SQLiteSnapshotRepository) GetStudio(ctx context.Context, studioID string) (*StudioSnapshot, error) {
	query := `SELECT studio_id, phase, bank, current_sprint, current_day, last_updated FROM studio_state WHERE studio_id = ?`
	var s StudioSnapshot
	err := r.db.QueryRowContext(ctx, query, studioID).Scan(
		&s.StudioID, &s.Phase, &s.Bank, &s.CurrentSprint, &s.CurrentDay, &s.LastUpdated,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteSnapshotRepository) UpsertContract(ctx context.Context, c ContractSnapshot, items []WorkItemSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	contractQuery := `
		INSERT INTO contracts (contract_id, studio_id, client, base_payout, total_sprints, current_sprint, is_closed, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(contract_id) DO UPDATE SET
			current_sprint=excluded.current_sprint,
			is_closed=excluded.is_closed,
			last_updated=excluded.last_updated
	`
	if _, err := tx.ExecContext(ctx, contractQuery,
		c.ContractID, c.StudioID, c.Client, c.BasePayout, c.TotalSprints, c.CurrentSprint, c.IsClosed, time.Now(),
	); err != nil {
		return fmt.Errorf("failed to upsert contract: %w", err)
	}

	itemQuery := `
		INSERT INTO work_items (item_id, contract_id, kind, title, points_required, points_done, status, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			points_done=excluded.points_done,
			status=excluded.status,
			last_updated=excluded.last_updated
	`
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, itemQuery,
			it.ItemID, it.ContractID, it.Kind, it.Title, it.PointsRequired, it.PointsDone, it.Status, time.Now(),
		); err != nil {
			return fmt.Errorf("failed to upsert work item %s: %w", it.ItemID, err)
		}
	}

	return tx.Commit()
}

func (r *SQLiteSnapshotRepository) GetOpenContract(ctx context.Context, studioID string) (*ContractSnapshot, []WorkItemSnapshot, error) {
	query := `SELECT contract_id, studio_id, client, base_payout, total_sprints, current_sprint, is_closed FROM contracts WHERE studio_id = ? AND is_closed = 0 ORDER BY last_updated DESC LIMIT 1`
	var c ContractSnapshot
	err := r.db.QueryRowContext(ctx, query, studioID).Scan(
		&c.ContractID, &c.StudioID, &c.Client, &c.BasePayout, &c.TotalSprints, &c.CurrentSprint, &c.IsClosed,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	itemQuery := `SELECT item_id, contract_id, kind, title, points_required, points_done, status FROM work_items WHERE contract_id = ? ORDER BY item_id ASC`
	rows, err := r.db.QueryContext(ctx, itemQuery, c.ContractID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var items []WorkItemSnapshot
	for rows.Next() {
		var it WorkItemSnapshot
		if err := rows.Scan(&it.ItemID, &it.ContractID, &it.Kind, &it.Title, &it.PointsRequired, &it.PointsDone, &it.Status); err != nil {
			return nil, nil, err
		}
		items = append(items, it)
	}
	return &c, items, rows.Err()
}

func (r *SQLiteSnapshotRepository) UpsertContributors(ctx context.Context, snaps []ContributorSnapshot) error {
	query := `
		INSERT INTO contributors (contributor_id, studio_id, name, archetype, velocity, passive, passive_value, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(contributor_id) DO UPDATE SET
			name=excluded.name,
			archetype=excluded.archetype,
			velocity=excluded.velocity,
			passive=excluded.passive,
			passive_value=excluded.passive_value,
			last_updated=excluded.last_updated
	`
	for _, s := range snaps {
		if _, err := r.db.ExecContext(ctx, query,
			s.ContributorID, s.StudioID, s.Name, s.Archetype, s.Velocity, s.Passive, s.PassiveValue, time.Now(),
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteSnapshotRepository) GetContributors(ctx context.Context, studioID string) ([]ContributorSnapshot, error) {
	query := `SELECT contributor_id, studio_id, name, archetype, velocity, passive, passive_value FROM contributors WHERE studio_id = ?`
	rows, err := r.db.QueryContext(ctx, query, studioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []ContributorSnapshot
	for rows.Next() {
		var s ContributorSnapshot
		if err := rows.Scan(&s.ContributorID, &s.StudioID, &s.Name, &s.Archetype, &s.Velocity, &s.Passive, &s.PassiveValue); err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}
