package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// InitSQLite initializes the local SQLite database and creates the schemas
// for the immutable event ledger and the studio snapshot tables.
func InitSQLite(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db); err != nil {
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS studio_state (
			studio_id TEXT PRIMARY KEY,
			phase TEXT NOT NULL DEFAULT 'IDLE',
			bank REAL NOT NULL DEFAULT 0.0,
			current_sprint INTEGER NOT NULL DEFAULT 0,
			current_day INTEGER NOT NULL DEFAULT 1,
			last_updated DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS contracts (
			contract_id TEXT PRIMARY KEY,
			studio_id TEXT NOT NULL,
			client TEXT NOT NULL,
			base_payout REAL NOT NULL,
			total_sprints INTEGER NOT NULL,
			current_sprint INTEGER NOT NULL,
			is_closed BOOLEAN NOT NULL DEFAULT 0,
			last_updated DATETIME NOT NULL,
			FOREIGN KEY (studio_id) REFERENCES studio_state(studio_id)
		);`,
		`CREATE TABLE IF NOT EXISTS work_items (
			item_id TEXT PRIMARY KEY,
			contract_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			title TEXT NOT NULL,
			points_required REAL NOT NULL,
			points_done REAL NOT NULL DEFAULT 0.0,
			status TEXT NOT NULL,
			last_updated DATETIME NOT NULL,
			FOREIGN KEY (contract_id) REFERENCES contracts(contract_id)
		);`,
		`CREATE TABLE IF NOT EXISTS contributors (
			contributor_id TEXT PRIMARY KEY,
			studio_id TEXT NOT NULL,
			name TEXT NOT NULL,
			archetype TEXT NOT NULL,
			velocity REAL NOT NULL,
			passive TEXT NOT NULL DEFAULT '',
			passive_value REAL NOT NULL DEFAULT 0.0,
			last_updated DATETIME NOT NULL,
			FOREIGN KEY (studio_id) REFERENCES studio_state(studio_id)
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			studio_id TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			event_type TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			sprint INTEGER NOT NULL,
			day INTEGER NOT NULL,
			FOREIGN KEY (studio_id) REFERENCES studio_state(studio_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_studio_id ON events(studio_id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);`,
		`CREATE INDEX IF NOT EXISTS idx_events_sprint ON events(sprint);`,
		`CREATE INDEX IF NOT EXISTS idx_work_items_contract ON work_items(contract_id);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
