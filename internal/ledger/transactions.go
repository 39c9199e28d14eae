package ledger

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/erazemk/spares/internal/metrics"
	"github.com/erazemk/spares/internal/model"
	"github.com/erazemk/spares/internal/store"
)

// EditTransaction corrects the quantity, purpose or remarks of a ledger
// entry. Admin only. The item's stock is not adjusted.
func (l *Ledger) EditTransaction(ctx context.Context, actor Actor, id int64, edit TransactionEdit) (*model.Transaction, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var updated *model.Transaction
	err := l.inTx(ctx, func(tx *sql.Tx) error {
		t, err := store.GetTransaction(ctx, tx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrNotFound
		}

		if edit.Quantity != nil {
			qty, err := ParseCount(string(*edit.Quantity))
			if err != nil {
				return invalid("quantity", "%v", err)
			}
			t.Quantity = qty
		}
		if edit.Purpose != nil {
			t.Purpose = model.NormalizePurpose(*edit.Purpose)
		}
		if edit.Remarks != nil {
			t.Remarks = strings.TrimSpace(*edit.Remarks)
		}

		now := l.now()
		t.EditedBy = actor.Username
		t.EditedAt = &now

		if err := store.UpdateTransaction(ctx, tx, t); err != nil {
			return err
		}
		updated, err = store.GetTransaction(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.LedgerMutations.WithLabelValues("edit_transaction").Inc()
	slog.Info("transaction edited", "id", id, "quantity", updated.Quantity, "user", actor.Username)

	l.emit(EventTransactionUpdated, updated)
	return updated, nil
}

// ClearTransactions empties the ledger. Admin only.
func (l *Ledger) ClearTransactions(ctx context.Context, actor Actor) (int64, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}

	n, err := store.DeleteAllTransactions(ctx, l.DB)
	if err != nil {
		return 0, err
	}

	metrics.LedgerMutations.WithLabelValues("clear").Inc()
	slog.Warn("transactions cleared", "count", n, "user", actor.Username)

	l.emit(EventTransactionsCleared, map[string]int64{"count": n})
	return n, nil
}
