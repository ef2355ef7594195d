// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/quickly-predict/aggregate"
	"github.com/danielhkuo/quickly-predict/db"
	"github.com/danielhkuo/quickly-predict/identity"
	"github.com/danielhkuo/quickly-predict/models"
	"github.com/danielhkuo/quickly-predict/validate"
)

var (
	ErrDuplicateToken   = db.ErrDuplicateToken
	ErrDuplicateNetwork = db.ErrDuplicateNetwork
	ErrNotFound         = errors.New("prediction not found")
)

// Store is the prediction and ops log repository.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(conn *sql.DB) *Store {
	return &Store{db: conn, now: time.Now}
}

// NewPrediction is a validated submission ready to persist.
type NewPrediction struct {
	ClientToken   string
	IPHash        string
	PredictedDate string
	Weight        float64
	Metadata      *string
}

const predictionColumns = `id, client_token, ip_hash, predicted_date, weight, metadata, submitted_at, updated_at`

// Insert stores a first submission. A second row for the same token or
// network fails on the unique constraints.
func (s *Store) Insert(ctx context.Context, p NewPrediction) (models.Prediction, error) {
	id, err := identity.GenerateID(16)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("failed to generate id: %w", err)
	}
	now := s.timestamp()

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO prediction (`+predictionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING `+predictionColumns,
		id, p.ClientToken, p.IPHash, p.PredictedDate, p.Weight, p.Metadata, now)

	pred, err := scanPrediction(row)
	if err != nil {
		err = db.ClassifyUniqueViolation(err)
		// Both constraints fail when a token resubmits from its own
		// network, and drivers disagree on which one is reported.
		if errors.Is(err, ErrDuplicateNetwork) {
			owned, lookupErr := s.hasToken(ctx, p.ClientToken)
			if lookupErr != nil {
				return models.Prediction{}, lookupErr
			}
			if owned {
				return models.Prediction{}, ErrDuplicateToken
			}
		}
		return models.Prediction{}, err
	}
	return pred, nil
}

func (s *Store) hasToken(ctx context.Context, token string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prediction WHERE client_token = $1`, token).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up token: %w", err)
	}
	return n > 0, nil
}

// Upsert creates or updates the caller's prediction in one statement.
// The network hash of an existing row is kept; weight is recomputed by the
// caller for the new date.
func (s *Store) Upsert(ctx context.Context, p NewPrediction) (pred models.Prediction, isNew bool, err error) {
	id, err := identity.GenerateID(16)
	if err != nil {
		return models.Prediction{}, false, fmt.Errorf("failed to generate id: %w", err)
	}
	now := s.timestamp()

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO prediction (`+predictionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (client_token) DO UPDATE SET
			predicted_date = excluded.predicted_date,
			weight = excluded.weight,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
		RETURNING `+predictionColumns,
		id, p.ClientToken, p.IPHash, p.PredictedDate, p.Weight, p.Metadata, now)

	pred, err = scanPrediction(row)
	if err != nil {
		return models.Prediction{}, false, db.ClassifyUniqueViolation(err)
	}
	// The generated id only survives when the row was inserted.
	return pred, pred.ID == id, nil
}

func (s *Store) GetByToken(ctx context.Context, token string) (models.Prediction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+predictionColumns+`
		FROM prediction
		WHERE client_token = $1
	`, token)

	pred, err := scanPrediction(row)
	if err == sql.ErrNoRows {
		return models.Prediction{}, ErrNotFound
	}
	if err != nil {
		return models.Prediction{}, fmt.Errorf("failed to query prediction: %w", err)
	}
	return pred, nil
}

// DeleteByToken erases the caller's prediction.
func (s *Store) DeleteByToken(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM prediction WHERE client_token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete prediction: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Points loads every stored (date, weight) pair for aggregation.
func (s *Store) Points(ctx context.Context) ([]aggregate.Point, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT predicted_date, weight FROM prediction`)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var points []aggregate.Point
	for rows.Next() {
		var date string
		var weight float64
		if err := rows.Scan(&date, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		d, err := time.Parse(validate.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("stored date %q is invalid: %w", date, err)
		}
		points = append(points, aggregate.Point{Date: d, Weight: weight})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate predictions: %w", err)
	}
	return points, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prediction`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count predictions: %w", err)
	}
	return n, nil
}

// Ping checks the database connection for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Postgres keeps microseconds; truncate so values round-trip on both dialects.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func scanPrediction(row *sql.Row) (models.Prediction, error) {
	var p models.Prediction
	var metadata sql.NullString
	var submitted, updated timestamp
	err := row.Scan(&p.ID, &p.ClientToken, &p.IPHash, &p.PredictedDate, &p.Weight,
		&metadata, &submitted, &updated)
	if err != nil {
		return models.Prediction{}, err
	}
	if metadata.Valid {
		p.Metadata = &metadata.String
	}
	p.SubmittedAt = submitted.Time
	p.UpdatedAt = updated.Time
	return p, nil
}
