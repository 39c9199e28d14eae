package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/spares/internal/model"
)

const transactionColumns = `id, item_id, item_name, type, quantity, user, timestamp, purpose, remarks,
	make, model, specification, rack, bin, requested_by, request_status, resolved_by, edited_by, edited_at`

// TransactionFilter narrows ListTransactions. Zero values match everything.
type TransactionFilter struct {
	ItemID int64
	User   string
	Type   string
}

// CreateTransaction appends an entry to the ledger. A zero Timestamp is set to now.
func CreateTransaction(ctx context.Context, db DBTX, t *model.Transaction) (*model.Transaction, error) {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	if t.Purpose == "" {
		t.Purpose = model.PurposeOthers
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO transactions (item_id, item_name, type, quantity, user, timestamp, purpose, remarks,
		                           make, model, specification, rack, bin, requested_by, request_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ItemID, t.ItemName, t.Type, t.Quantity, t.User, t.Timestamp.UTC(), t.Purpose, t.Remarks,
		t.Make, t.Model, t.Specification, t.Rack, t.Bin, t.RequestedBy, t.RequestStatus,
	)
	if err != nil {
		return nil, fmt.Errorf("recording transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting transaction id: %w", err)
	}

	return GetTransaction(ctx, db, id)
}

// GetTransaction returns a transaction by ID, or nil if it does not exist.
func GetTransaction(ctx context.Context, db DBTX, id int64) (*model.Transaction, error) {
	row := db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns transactions, newest first, optionally filtered.
func ListTransactions(ctx context.Context, db DBTX, f TransactionFilter) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	var args []any

	if f.ItemID > 0 {
		query += ` AND item_id = ?`
		args = append(args, f.ItemID)
	}
	if f.User != "" {
		query += ` AND user = ?`
		args = append(args, f.User)
	}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, f.Type)
	}

	query += ` ORDER BY timestamp DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	txns := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

// UpdateTransaction stores an admin correction of quantity, purpose and remarks.
func UpdateTransaction(ctx context.Context, db DBTX, t *model.Transaction) error {
	_, err := db.ExecContext(ctx,
		`UPDATE transactions SET quantity = ?, purpose = ?, remarks = ?, edited_by = ?, edited_at = ?
		 WHERE id = ?`,
		t.Quantity, t.Purpose, t.Remarks, t.EditedBy, t.EditedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}
	return nil
}

// SetBreakdownRequestStatus marks the still-open breakdown transactions of a
// requester for an item with the outcome of their request. It returns the
// number of rows changed.
func SetBreakdownRequestStatus(ctx context.Context, db DBTX, itemID int64, requestedBy, status, resolvedBy string) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE transactions SET request_status = ?, resolved_by = ?
		 WHERE item_id = ? AND purpose = ? AND requested_by = ? AND request_status IN ('pending', '')`,
		status, resolvedBy, itemID, model.PurposeBreakdown, requestedBy,
	)
	if err != nil {
		return 0, fmt.Errorf("updating breakdown transactions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// DeleteAllTransactions clears the ledger and returns how many rows were removed.
func DeleteAllTransactions(ctx context.Context, db DBTX) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM transactions`)
	if err != nil {
		return 0, fmt.Errorf("clearing transactions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// CountOrphanedTransactions counts transactions whose item no longer exists
// and was never deleted through the ledger. Deletion entries themselves and
// the history of deleted items are not orphans.
func CountOrphanedTransactions(ctx context.Context, db DBTX) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions t
		 WHERE t.type != 'deleted'
		   AND NOT EXISTS (SELECT 1 FROM items i WHERE i.id = t.item_id)
		   AND NOT EXISTS (SELECT 1 FROM transactions d WHERE d.item_id = t.item_id AND d.type = 'deleted')`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting orphaned transactions: %w", err)
	}
	return n, nil
}

// CountTransactions returns the ledger size.
func CountTransactions(ctx context.Context, db DBTX) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return n, nil
}

func scanTransaction(s scanner) (*model.Transaction, error) {
	t := &model.Transaction{}
	err := s.Scan(&t.ID, &t.ItemID, &t.ItemName, &t.Type, &t.Quantity, &t.User, &t.Timestamp,
		&t.Purpose, &t.Remarks, &t.Make, &t.Model, &t.Specification, &t.Rack, &t.Bin,
		&t.RequestedBy, &t.RequestStatus, &t.ResolvedBy, &t.EditedBy, &t.EditedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}
