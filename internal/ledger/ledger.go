// Package ledger applies inventory mutations and keeps the transaction
// ledger in step with them. Every quantity change made through a Ledger
// produces exactly one transaction, and every change is announced to the
// configured Broadcaster after it has been committed.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/spares/internal/metrics"
	"github.com/erazemk/spares/internal/model"
)

// Event names sent to subscribers.
const (
	EventInventoryCreated    = "inventoryCreated"
	EventInventoryUpdated    = "inventoryUpdated"
	EventInventoryDeleted    = "inventoryDeleted"
	EventTransactionCreated  = "transactionCreated"
	EventTransactionUpdated  = "transactionUpdated"
	EventTransactionsCleared = "transactionsCleared"
	EventBulkUploadCompleted = "bulkUploadCompleted"
	EventLowStockAlert       = "lowStockAlert"
	EventRequestCreated      = "requestCreated"
	EventRequestUpdated      = "requestUpdated"
)

// Broadcaster fans events out to subscribers. Emit must not block.
type Broadcaster interface {
	Emit(event string, payload any)
}

// Actor is the authenticated identity performing a mutation.
type Actor struct {
	Username string
	Role     string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// Ledger performs inventory mutations against the database.
type Ledger struct {
	DB     *sql.DB
	Events Broadcaster

	// Now is used for request resolution and edit timestamps. Defaults to time.Now.
	Now func() time.Time
}

// New returns a Ledger writing to db and announcing to events (may be nil).
func New(db *sql.DB, events Broadcaster) *Ledger {
	return &Ledger{DB: db, Events: events, Now: time.Now}
}

func (l *Ledger) now() time.Time {
	if l.Now == nil {
		return time.Now().UTC()
	}
	return l.Now().UTC()
}

// emit never fails the caller: a missing broadcaster or a panicking one is logged.
func (l *Ledger) emit(event string, payload any) {
	if l.Events == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			metrics.PartialFailures.WithLabelValues("broadcast").Inc()
			slog.Warn("broadcast failed", "event", event, "error", r)
		}
	}()
	l.Events.Emit(event, payload)
}

// inTx runs fn inside a database transaction. The pool has a single
// connection, so fn must only use the tx it is given.
func (l *Ledger) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func requireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
