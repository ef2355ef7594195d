// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/quickly-predict/identity"
	"github.com/danielhkuo/quickly-predict/models"
)

// AppendOpsLog records an operational event.
func (s *Store) AppendOpsLog(ctx context.Context, level, event, detail string) error {
	id, err := identity.GenerateID(12)
	if err != nil {
		return fmt.Errorf("failed to generate id: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ops_log (id, created_at, level, event, detail)
		VALUES ($1, $2, $3, $4, $5)
	`, id, s.timestamp(), level, event, detail)
	if err != nil {
		return fmt.Errorf("failed to append ops log: %w", err)
	}
	return nil
}

// LogOp is AppendOpsLog for callers that must not fail on it.
func (s *Store) LogOp(ctx context.Context, level, event, detail string) {
	if err := s.AppendOpsLog(ctx, level, event, detail); err != nil {
		slog.Warn("ops log write failed", "event", event, "error", err)
	}
}

// RecentOpsLog returns the newest entries first.
func (s *Store) RecentOpsLog(ctx context.Context, limit int) ([]models.OpsLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, level, event, detail
		FROM ops_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ops log: %w", err)
	}
	defer rows.Close()

	var entries []models.OpsLogEntry
	for rows.Next() {
		var e models.OpsLogEntry
		var created timestamp
		var detail *string
		if err := rows.Scan(&e.ID, &created, &e.Level, &e.Event, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan ops log: %w", err)
		}
		e.CreatedAt = created.Time
		if detail != nil {
			e.Detail = *detail
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PurgeOpsLog deletes entries created before the cutoff.
func (s *Store) PurgeOpsLog(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM ops_log WHERE created_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge ops log: %w", err)
	}
	return result.RowsAffected()
}
