// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store persists predictions and the operational log.

# Predictions

	s := store.New(conn)
	pred, err := s.Insert(ctx, store.NewPrediction{...})     // POST
	pred, isNew, err := s.Upsert(ctx, store.NewPrediction{...}) // PUT

Insert and Upsert are single statements. Duplicate identities surface as
ErrDuplicateToken or ErrDuplicateNetwork from the unique constraints, so two
racing submissions from one identity leave exactly one row. Upsert keys on the
client token and never rewrites the stored network hash.

# Ops Log

Conflicts, threat detector hits, capacity level changes and erasures are
appended with LogOp, which logs and swallows write failures. PurgeOpsLog
removes entries older than the retention window.
*/
package store
