// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lib/pq"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(TypeSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := CreateSchema(conn); err != nil {
		t.Fatalf("CreateSchema: %v", err)
	}
	return conn
}

func TestOpenUnsupported(t *testing.T) {
	if _, err := Open("mysql", "whatever"); err == nil {
		t.Fatal("expected error for unsupported database type")
	}
}

func TestCreateSchemaIdempotent(t *testing.T) {
	conn := openTestDB(t)
	if err := CreateSchema(conn); err != nil {
		t.Fatalf("second CreateSchema: %v", err)
	}
}

func TestClassifyUniqueViolationSQLite(t *testing.T) {
	conn := openTestDB(t)
	now := time.Now().UTC()

	insert := `INSERT INTO prediction (id, client_token, ip_hash, predicted_date, weight, submitted_at, updated_at)
		VALUES ($1, $2, $3, '2026-11-19', 1.0, $4, $4)`

	if _, err := conn.Exec(insert, "a", "token-a", "hash-a", now); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	_, err := conn.Exec(insert, "b", "token-a", "hash-b", now)
	if got := ClassifyUniqueViolation(err); !errors.Is(got, ErrDuplicateToken) {
		t.Errorf("same token: got %v, want ErrDuplicateToken", got)
	}

	_, err = conn.Exec(insert, "c", "token-c", "hash-a", now)
	if got := ClassifyUniqueViolation(err); !errors.Is(got, ErrDuplicateNetwork) {
		t.Errorf("same network: got %v, want ErrDuplicateNetwork", got)
	}

	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM prediction`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestClassifyUniqueViolationPostgres(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"token", &pq.Error{Code: "23505", Constraint: "prediction_client_token_key"}, ErrDuplicateToken},
		{"network", &pq.Error{Code: "23505", Constraint: "prediction_ip_hash_key"}, ErrDuplicateNetwork},
		{"other code", &pq.Error{Code: "23503", Constraint: "prediction_ip_hash_key"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyUniqueViolation(tt.err)
			if tt.want == nil {
				if got != tt.err {
					t.Errorf("expected error to pass through, got %v", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyPassThrough(t *testing.T) {
	if ClassifyUniqueViolation(nil) != nil {
		t.Error("nil should stay nil")
	}
	plain := errors.New("boom")
	if ClassifyUniqueViolation(plain) != plain {
		t.Error("unrelated errors should pass through")
	}
}
