// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrDuplicateToken   = errors.New("prediction already exists for client token")
	ErrDuplicateNetwork = errors.New("prediction already exists for network")
)

// ClassifyUniqueViolation maps a driver unique-constraint error on the
// prediction table to ErrDuplicateToken or ErrDuplicateNetwork. Any other
// error is returned unchanged.
func ClassifyUniqueViolation(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return classify(pqErr.Constraint+" "+pqErr.Message, err)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return classify(liteErr.Error(), err)
	}

	return err
}

func classify(text string, err error) error {
	switch {
	case strings.Contains(text, "client_token"):
		return ErrDuplicateToken
	case strings.Contains(text, "ip_hash"):
		return ErrDuplicateNetwork
	}
	return err
}
