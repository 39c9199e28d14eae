package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/spares/internal/model"
)

const itemColumns = `id, name, make, model, specification, rack, bin, quantity, minimum_quantity,
	cost, category, updated_by, created_at, updated_at`

// CreateItem inserts a new item and returns it as stored.
func CreateItem(ctx context.Context, db DBTX, item *model.Item) (*model.Item, error) {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (name, make, model, specification, rack, bin, quantity, minimum_quantity,
		                    cost, category, updated_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Name, item.Make, item.Model, item.Specification, item.Rack, item.Bin,
		item.Quantity, item.MinimumQuantity, nullCost(item.Cost),
		model.NormalizeCategory(item.Category), item.UpdatedBy, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// CreateItems inserts a batch of items. Pass a *sql.Tx to make the batch atomic.
func CreateItems(ctx context.Context, db DBTX, items []model.Item) ([]model.Item, error) {
	created := make([]model.Item, 0, len(items))
	for i := range items {
		item, err := CreateItem(ctx, db, &items[i])
		if err != nil {
			return nil, fmt.Errorf("inserting item %d of %d: %w", i+1, len(items), err)
		}
		created = append(created, *item)
	}
	return created, nil
}

// GetItem returns an item by ID, or nil if it does not exist.
func GetItem(ctx context.Context, db DBTX, id int64) (*model.Item, error) {
	row := db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all items ordered by name.
func ListItems(ctx context.Context, db DBTX) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListLowStockItems returns items whose quantity is at or below their minimum.
func ListLowStockItems(ctx context.Context, db DBTX) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE quantity <= minimum_quantity ORDER BY quantity, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing low stock items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// CountItems returns the number of items.
func CountItems(ctx context.Context, db DBTX) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

// UpdateItem overwrites every mutable column of an item.
func UpdateItem(ctx context.Context, db DBTX, item *model.Item) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, make = ?, model = ?, specification = ?, rack = ?, bin = ?,
		        quantity = ?, minimum_quantity = ?, cost = ?, category = ?, updated_by = ?, updated_at = ?
		 WHERE id = ?`,
		item.Name, item.Make, item.Model, item.Specification, item.Rack, item.Bin,
		item.Quantity, item.MinimumQuantity, nullCost(item.Cost),
		model.NormalizeCategory(item.Category), item.UpdatedBy, time.Now().UTC(), item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DeleteItem removes an item. Its transactions are kept.
func DeleteItem(ctx context.Context, db DBTX, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

func scanItem(s scanner) (*model.Item, error) {
	item := &model.Item{}
	var cost sql.NullFloat64
	err := s.Scan(&item.ID, &item.Name, &item.Make, &item.Model, &item.Specification,
		&item.Rack, &item.Bin, &item.Quantity, &item.MinimumQuantity, &cost,
		&item.Category, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if cost.Valid {
		c := cost.Float64
		item.Cost = &c
	}
	return item, nil
}

func nullCost(cost *float64) sql.NullFloat64 {
	if cost == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *cost, Valid: true}
}
