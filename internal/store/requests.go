package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/spares/internal/model"
)

const requestColumns = `id, item_id, item_name, quantity, purpose, remarks, status,
	requested_by, resolved_by, resolved_at, created_at, updated_at`

// CreateRequest stores a new pending request.
func CreateRequest(ctx context.Context, db DBTX, r *model.Request) (*model.Request, error) {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx,
		`INSERT INTO requests (item_id, item_name, quantity, purpose, remarks, status, requested_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ItemID, r.ItemName, r.Quantity, r.Purpose, r.Remarks, model.RequestPending, r.RequestedBy, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting request id: %w", err)
	}

	return GetRequest(ctx, db, id)
}

// GetRequest returns a request by ID, or nil if it does not exist.
func GetRequest(ctx context.Context, db DBTX, id int64) (*model.Request, error) {
	row := db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}
	return r, nil
}

// ListRequests returns requests, newest first, optionally filtered by status.
func ListRequests(ctx context.Context, db DBTX, status string) ([]model.Request, error) {
	var rows *sql.Rows
	var err error

	if status != "" {
		rows, err = db.QueryContext(ctx,
			`SELECT `+requestColumns+` FROM requests WHERE status = ? ORDER BY created_at DESC, id DESC`, status,
		)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT `+requestColumns+` FROM requests ORDER BY created_at DESC, id DESC`,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	requests := []model.Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

// ResolveRequest records the outcome of a request.
func ResolveRequest(ctx context.Context, db DBTX, id int64, status, remarks, resolvedBy string, at time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE requests SET status = ?, remarks = CASE WHEN ? != '' THEN ? ELSE remarks END,
		        resolved_by = ?, resolved_at = ?, updated_at = ?
		 WHERE id = ?`,
		status, remarks, remarks, resolvedBy, at.UTC(), at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("resolving request: %w", err)
	}
	return nil
}

func scanRequest(s scanner) (*model.Request, error) {
	r := &model.Request{}
	err := s.Scan(&r.ID, &r.ItemID, &r.ItemName, &r.Quantity, &r.Purpose, &r.Remarks, &r.Status,
		&r.RequestedBy, &r.ResolvedBy, &r.ResolvedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}
