package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/erazemk/spares/internal/metrics"
	"github.com/erazemk/spares/internal/model"
	"github.com/erazemk/spares/internal/store"
)

// Mutation is the result of a quantity-affecting change. Transaction is nil
// when the quantity did not change.
type Mutation struct {
	Item        *model.Item        `json:"item"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
}

// DeletedPayload is broadcast with inventoryDeleted.
type DeletedPayload struct {
	ID   int64       `json:"id"`
	Item *model.Item `json:"item"`
}

// BulkPayload is broadcast with bulkUploadCompleted.
type BulkPayload struct {
	Count int          `json:"count"`
	Items []model.Item `json:"items"`
}

// LowStockPayload is broadcast with lowStockAlert.
type LowStockPayload struct {
	Item    *model.Item `json:"item"`
	Message string      `json:"message"`
}

// CreateItem validates and inserts a single item. The opening quantity is
// not recorded as a transaction.
func (l *Ledger) CreateItem(ctx context.Context, actor Actor, in ItemInput) (*model.Item, error) {
	item, errs := in.toItem()
	if len(errs) > 0 {
		return nil, errs[0]
	}
	item.UpdatedBy = actor.Username

	created, err := store.CreateItem(ctx, l.DB, item)
	if err != nil {
		return nil, err
	}

	metrics.LedgerMutations.WithLabelValues("create").Inc()
	slog.Info("item created", "item", created.Name, "id", created.ID, "user", actor.Username)

	l.emit(EventInventoryCreated, created)
	l.alertIfLow(created)
	return created, nil
}

// UpdateItem applies changes to an item. When the quantity changes, a single
// added or taken transaction for the difference is recorded, carrying the
// item's details as they were before the update. The item update and the
// transaction insert commit together.
func (l *Ledger) UpdateItem(ctx context.Context, actor Actor, id int64, ch ItemChanges) (*Mutation, error) {
	var result Mutation

	err := l.inTx(ctx, func(tx *sql.Tx) error {
		item, err := store.GetItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrNotFound
		}
		before := *item

		if err := ch.apply(item); err != nil {
			return err
		}
		item.UpdatedBy = actor.Username

		if err := store.UpdateItem(ctx, tx, item); err != nil {
			return err
		}

		delta := item.Quantity - before.Quantity
		if delta != 0 {
			t := &model.Transaction{
				Type:     model.TransactionAdded,
				Quantity: delta,
				User:     actor.Username,
				Purpose:  model.NormalizePurpose(ch.Purpose),
				Remarks:  ch.Remarks,
			}
			if delta < 0 {
				t.Type = model.TransactionTaken
				t.Quantity = -delta
			}
			t.Snapshot(&before)
			if t.Purpose == model.PurposeBreakdown && t.Type == model.TransactionTaken {
				t.RequestedBy = actor.Username
				t.RequestStatus = model.RequestPending
			}

			created, err := store.CreateTransaction(ctx, tx, t)
			if err != nil {
				return err
			}
			result.Transaction = created
		}

		updated, err := store.GetItem(ctx, tx, id)
		if err != nil {
			return err
		}
		result.Item = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.LedgerMutations.WithLabelValues("update").Inc()
	slog.Info("item updated", "item", result.Item.Name, "id", id, "user", actor.Username)

	l.emit(EventInventoryUpdated, result.Item)
	if result.Transaction != nil {
		metrics.LedgerTransactions.WithLabelValues(result.Transaction.Type).Inc()
		l.emit(EventTransactionCreated, result.Transaction)
		l.alertIfLow(result.Item)
	}
	return &result, nil
}

// DeleteItem removes an item and records a deleted transaction for its last quantity.
func (l *Ledger) DeleteItem(ctx context.Context, actor Actor, id int64) (*Mutation, error) {
	var result Mutation

	err := l.inTx(ctx, func(tx *sql.Tx) error {
		item, err := store.GetItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrNotFound
		}

		if err := store.DeleteItem(ctx, tx, id); err != nil {
			return err
		}

		t := &model.Transaction{
			Type:     model.TransactionDeleted,
			Quantity: item.Quantity,
			User:     actor.Username,
			Purpose:  model.PurposeOthers,
		}
		t.Snapshot(item)

		created, err := store.CreateTransaction(ctx, tx, t)
		if err != nil {
			return err
		}

		result.Item = item
		result.Transaction = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.LedgerMutations.WithLabelValues("delete").Inc()
	metrics.LedgerTransactions.WithLabelValues(model.TransactionDeleted).Inc()
	slog.Info("item deleted", "item", result.Item.Name, "id", id, "quantity", result.Item.Quantity, "user", actor.Username)

	l.emit(EventInventoryDeleted, DeletedPayload{ID: id, Item: result.Item})
	l.emit(EventTransactionCreated, result.Transaction)
	return &result, nil
}

// BulkImport validates every row before writing anything. If any row is
// invalid the batch is rejected with an *ImportError listing each bad row;
// otherwise all rows are inserted in one transaction.
func (l *Ledger) BulkImport(ctx context.Context, actor Actor, rows []ItemInput) ([]model.Item, error) {
	if len(rows) == 0 {
		return nil, invalid("rows", "no rows to import")
	}

	items := make([]model.Item, 0, len(rows))
	var rowErrs []RowError
	for i := range rows {
		item, errs := rows[i].toItem()
		if len(errs) > 0 {
			rowErrs = append(rowErrs, RowError{Row: i + 2, Message: joinErrors(errs)})
			continue
		}
		item.UpdatedBy = actor.Username
		items = append(items, *item)
	}
	if len(rowErrs) > 0 {
		slog.Warn("bulk import rejected", "rows", len(rows), "invalid", len(rowErrs), "user", actor.Username)
		return nil, &ImportError{Rows: rowErrs}
	}

	var created []model.Item
	err := l.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		created, err = store.CreateItems(ctx, tx, items)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.LedgerMutations.WithLabelValues("bulk_import").Inc()
	slog.Info("bulk import completed", "count", len(created), "user", actor.Username)

	l.emit(EventBulkUploadCompleted, BulkPayload{Count: len(created), Items: created})
	return created, nil
}

func (l *Ledger) alertIfLow(item *model.Item) {
	if !item.IsLowStock() {
		return
	}
	msg := fmt.Sprintf("%s is low on stock (%d left, minimum %d)", item.Name, item.Quantity, item.MinimumQuantity)
	if item.Quantity == 0 {
		msg = fmt.Sprintf("%s is out of stock", item.Name)
	}
	l.emit(EventLowStockAlert, LowStockPayload{Item: item, Message: msg})
}

func joinErrors(errs []*ValidationError) string {
	msg := ""
	for i, e := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += e.Error()
	}
	return msg
}
