// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS prediction (
    id TEXT PRIMARY KEY,
    client_token TEXT NOT NULL UNIQUE,
    ip_hash TEXT NOT NULL UNIQUE,
    predicted_date TEXT NOT NULL,
    weight DOUBLE PRECISION NOT NULL,
    metadata TEXT,
    submitted_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_prediction_date ON prediction(predicted_date)`,

	// Operational log
	`CREATE TABLE IF NOT EXISTS ops_log (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    level TEXT NOT NULL,
    event TEXT NOT NULL,
    detail TEXT
)`,
	`CREATE INDEX IF NOT EXISTS idx_ops_log_created_at ON ops_log(created_at)`,
}
