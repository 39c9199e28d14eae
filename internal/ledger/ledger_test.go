package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/spares/internal/analytics"
	"github.com/erazemk/spares/internal/db"
	"github.com/erazemk/spares/internal/model"
	"github.com/erazemk/spares/internal/store"
)

type emitted struct {
	event   string
	payload any
}

type recorder struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recorder) Emit(event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{event, payload})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.event
	}
	return out
}

func (r *recorder) find(event string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.event == event {
			return e.payload, true
		}
	}
	return nil, false
}

var (
	alice = Actor{Username: "alice", Role: model.RoleUser}
	admin = Actor{Username: "admin", Role: model.RoleAdmin}
)

func newTestLedger(t *testing.T) (*Ledger, *recorder) {
	t.Helper()
	rec := &recorder{}
	return New(db.NewTestDB(t), rec), rec
}

func validInput(name string, qty, minQty string) ItemInput {
	return ItemInput{
		Name: name, Make: "SKF", Model: "6204", Specification: "20x47x14",
		Rack: "A1", Bin: "3", Quantity: Numeric(qty), MinimumQuantity: Numeric(minQty),
	}
}

func seed(t *testing.T, l *Ledger, in ItemInput) *model.Item {
	t.Helper()
	item, err := l.CreateItem(context.Background(), admin, in)
	require.NoError(t, err)
	return item
}

func numeric(s string) *Numeric {
	n := Numeric(s)
	return &n
}

func str(s string) *string { return &s }

func TestUpdateItemTakenScenario(t *testing.T) {
	l, rec := newTestLedger(t)
	ctx := context.Background()
	item := seed(t, l, validInput("Bearing", "10", "5"))

	m, err := l.UpdateItem(ctx, alice, item.ID, ItemChanges{Quantity: numeric("7")})
	require.NoError(t, err)

	require.NotNil(t, m.Transaction)
	assert.Equal(t, model.TransactionTaken, m.Transaction.Type)
	assert.Equal(t, 3, m.Transaction.Quantity)
	assert.Equal(t, "alice", m.Transaction.User)
	assert.Equal(t, model.PurposeOthers, m.Transaction.Purpose)
	assert.Equal(t, item.ID, m.Transaction.ItemID)
	assert.Equal(t, "Bearing", m.Transaction.ItemName)
	assert.Equal(t, 7, m.Item.Quantity)
	assert.Equal(t, "alice", m.Item.UpdatedBy)

	assert.Equal(t, []string{EventInventoryCreated, EventInventoryUpdated, EventTransactionCreated}, rec.names())

	txns, err := store.ListTransactions(ctx, l.DB, store.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestUpdateItemAddedUsesPreUpdateSnapshot(t *testing.T) {
	l, _ := newTestLedger(t)
	item := seed(t, l, validInput("Bearing", "2", "1"))

	m, err := l.UpdateItem(context.Background(), alice, item.ID, ItemChanges{
		Quantity: numeric("6"),
		Rack:     str("B9"),
		Make:     str("FAG"),
		Purpose:  "BreakDown",
	})
	require.NoError(t, err)

	require.NotNil(t, m.Transaction)
	assert.Equal(t, model.TransactionAdded, m.Transaction.Type)
	assert.Equal(t, 4, m.Transaction.Quantity)
	assert.Equal(t, "A1", m.Transaction.Rack, "snapshot must describe the item before the update")
	assert.Equal(t, "SKF", m.Transaction.Make)
	assert.Equal(t, model.PurposeBreakdown, m.Transaction.Purpose)
	assert.Equal(t, "B9", m.Item.Rack)
}

func TestUpdateItemWithoutQuantityChangeRecordsNothing(t *testing.T) {
	l, rec := newTestLedger(t)
	ctx := context.Background()
	item := seed(t, l, validInput("Bearing", "4", "1"))

	m, err := l.UpdateItem(ctx, alice, item.ID, ItemChanges{Quantity: numeric("4.0"), Bin: str("9")})
	require.NoError(t, err)

	assert.Nil(t, m.Transaction)
	assert.Equal(t, "9", m.Item.Bin)
	assert.NotContains(t, rec.names(), EventTransactionCreated)

	n, _ := store.CountTransactions(ctx, l.DB)
	assert.Zero(t, n)
}

func TestUpdateItemValidation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	item := seed(t, l, validInput("Bearing", "4", "1"))

	cases := []ItemChanges{
		{Quantity: numeric("-1")},
		{Quantity: numeric("abc")},
		{Quantity: numeric("2.5")},
		{MinimumQuantity: numeric("-3")},
		{Quantity: numeric("3"), Name: str("  ")},
	}
	for _, ch := range cases {
		_, err := l.UpdateItem(ctx, alice, item.ID, ch)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	}

	got, _ := store.GetItem(ctx, l.DB, item.ID)
	assert.Equal(t, 4, got.Quantity, "failed updates must not write")
	n, _ := store.CountTransactions(ctx, l.DB)
	assert.Zero(t, n)
}

func TestUpdateItemNotFound(t *testing.T) {
	l, _ := newTestLedger(t)
	_, err := l.UpdateItem(context.Background(), alice, 404, ItemChanges{Quantity: numeric("1")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateItemEmitsLowStockAlert(t *testing.T) {
	l, rec := newTestLedger(t)
	item := seed(t, l, validInput("Fuse", "10", "5"))

	_, err := l.UpdateItem(context.Background(), alice, item.ID, ItemChanges{Quantity: numeric("5")})
	require.NoError(t, err)

	payload, ok := rec.find(EventLowStockAlert)
	require.True(t, ok, "quantity == minimum is low stock")
	alert := payload.(LowStockPayload)
	assert.Equal(t, 5, alert.Item.Quantity)
	assert.Contains(t, alert.Message, "Fuse")
}

func TestDeleteItemRecordsDeletedTransaction(t *testing.T) {
	l, rec := newTestLedger(t)
	ctx := context.Background()
	item := seed(t, l, validInput("Relay", "6", "1"))

	m, err := l.DeleteItem(ctx, alice, item.ID)
	require.NoError(t, err)

	assert.Equal(t, model.TransactionDeleted, m.Transaction.Type)
	assert.Equal(t, 6, m.Transaction.Quantity)
	assert.Equal(t, "Relay", m.Transaction.ItemName)
	assert.Equal(t, "6204", m.Transaction.Model)

	gone, _ := store.GetItem(ctx, l.DB, item.ID)
	assert.Nil(t, gone)

	payload, ok := rec.find(EventInventoryDeleted)
	require.True(t, ok)
	assert.Equal(t, item.ID, payload.(DeletedPayload).ID)
	assert.Contains(t, rec.names(), EventTransactionCreated)

	_, err = l.DeleteItem(ctx, alice, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletedItemHistoryStaysWithDeletedItem(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	bearingIn := validInput("Bearing", "10", "1")
	bearingIn.Cost = "1"
	bearing := seed(t, l, bearingIn)
	_, err := l.UpdateItem(ctx, alice, bearing.ID, ItemChanges{Quantity: numeric("4")})
	require.NoError(t, err)
	_, err = l.DeleteItem(ctx, alice, bearing.ID)
	require.NoError(t, err)

	motorIn := validInput("Motor", "5", "1")
	motorIn.Cost = "1000"
	motor := seed(t, l, motorIn)
	require.NotEqual(t, bearing.ID, motor.ID, "deleted item id must not be reused")
	_, err = l.UpdateItem(ctx, alice, motor.ID, ItemChanges{Quantity: numeric("3")})
	require.NoError(t, err)

	history, err := store.ListTransactions(ctx, l.DB, store.TransactionFilter{ItemID: motor.ID})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Motor", history[0].ItemName)

	items, err := store.ListItems(ctx, l.DB)
	require.NoError(t, err)
	txns, err := store.ListTransactions(ctx, l.DB, store.TransactionFilter{})
	require.NoError(t, err)

	d := analytics.Compute(items, txns, analytics.ResolvePeriod("", "", time.Now().UTC()))
	assert.Equal(t, 8, d.ItemsConsumed)
	assert.Equal(t, 2000.0, d.CostConsumed, "the deleted bearing has no live cost")

	orphans, err := store.CountOrphanedTransactions(ctx, l.DB)
	require.NoError(t, err)
	assert.Zero(t, orphans)
}

func TestBulkImportRejectsWholeBatch(t *testing.T) {
	l, rec := newTestLedger(t)
	ctx := context.Background()

	rows := make([]ItemInput, 10)
	for i := range rows {
		rows[i] = validInput("Part", "3", "1")
	}
	rows[4].Quantity = "-2"

	_, err := l.BulkImport(ctx, admin, rows)

	var ierr *ImportError
	require.ErrorAs(t, err, &ierr)
	require.Len(t, ierr.Rows, 1)
	assert.Equal(t, 6, ierr.Rows[0].Row, "index 4 plus header is row 6")
	assert.Contains(t, ierr.Rows[0].Message, "quantity")

	n, _ := store.CountItems(ctx, l.DB)
	assert.Zero(t, n)
	assert.Empty(t, rec.names())
}

func TestBulkImportReportsEveryBadRow(t *testing.T) {
	l, _ := newTestLedger(t)

	rows := []ItemInput{
		validInput("A", "1", "1"),
		{Name: "B", Quantity: "1", MinimumQuantity: "1"},
		validInput("C", "x", "1"),
	}
	_, err := l.BulkImport(context.Background(), admin, rows)

	var ierr *ImportError
	require.ErrorAs(t, err, &ierr)
	require.Len(t, ierr.Rows, 2)
	assert.Equal(t, 3, ierr.Rows[0].Row)
	assert.Equal(t, 4, ierr.Rows[1].Row)
}

func TestBulkImportInsertsAll(t *testing.T) {
	l, rec := newTestLedger(t)
	ctx := context.Background()

	rows := []ItemInput{validInput("A", "1", "0"), validInput("B", "2.0", "1")}
	rows[0].Category = "Critical"
	rows[1].Category = "spare"
	rows[1].Cost = "12.50"

	items, err := l.BulkImport(ctx, admin, rows)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.CategoryCritical, items[0].Category)
	assert.Equal(t, model.CategoryConsumable, items[1].Category)
	require.NotNil(t, items[1].Cost)
	assert.Equal(t, 12.5, *items[1].Cost)
	assert.Equal(t, 2, items[1].Quantity)

	payload, ok := rec.find(EventBulkUploadCompleted)
	require.True(t, ok)
	assert.Equal(t, 2, payload.(BulkPayload).Count)

	n, _ := store.CountTransactions(ctx, l.DB)
	assert.Zero(t, n, "imports do not record opening balances")
}

func TestEditTransaction(t *testing.T) {
	l, rec := newTestLedger(t)
	ctx := context.Background()
	item := seed(t, l, validInput("Belt", "10", "1"))
	m, _ := l.UpdateItem(ctx, alice, item.ID, ItemChanges{Quantity: numeric("8")})

	_, err := l.EditTransaction(ctx, alice, m.Transaction.ID, TransactionEdit{Quantity: numeric("3")})
	assert.ErrorIs(t, err, ErrForbidden)

	fixed := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	l.Now = func() time.Time { return fixed }

	edited, err := l.EditTransaction(ctx, admin, m.Transaction.ID, TransactionEdit{
		Quantity: numeric("3"),
		Remarks:  str(" recount "),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, edited.Quantity)
	assert.Equal(t, "recount", edited.Remarks)
	assert.Equal(t, "admin", edited.EditedBy)
	require.NotNil(t, edited.EditedAt)
	assert.True(t, edited.EditedAt.Equal(fixed))
	assert.Contains(t, rec.names(), EventTransactionUpdated)

	_, err = l.EditTransaction(ctx, admin, 999, TransactionEdit{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClearTransactions(t *testing.T) {
	l, rec := newTestLedger(t)
	ctx := context.Background()
	item := seed(t, l, validInput("Belt", "10", "1"))
	l.UpdateItem(ctx, alice, item.ID, ItemChanges{Quantity: numeric("8")})

	_, err := l.ClearTransactions(ctx, alice)
	assert.ErrorIs(t, err, ErrForbidden)

	n, err := l.ClearTransactions(ctx, admin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Contains(t, rec.names(), EventTransactionsCleared)
}

func TestResolveRequestCascadesToMatchingTransactions(t *testing.T) {
	l, rec := newTestLedger(t)
	ctx := context.Background()
	item := seed(t, l, validInput("Motor", "10", "1"))
	other := seed(t, l, validInput("Pump", "10", "1"))

	carol := Actor{Username: "carol", Role: model.RoleUser}
	match, err := l.UpdateItem(ctx, carol, item.ID, ItemChanges{Quantity: numeric("9"), Purpose: "breakdown"})
	require.NoError(t, err)
	unrelatedItem, _ := l.UpdateItem(ctx, carol, other.ID, ItemChanges{Quantity: numeric("9"), Purpose: "breakdown"})
	unrelatedPurpose, _ := l.UpdateItem(ctx, carol, item.ID, ItemChanges{Quantity: numeric("8")})
	unrelatedUser, _ := l.UpdateItem(ctx, alice, item.ID, ItemChanges{Quantity: numeric("7"), Purpose: "breakdown"})

	req, err := l.CreateRequest(ctx, carol, RequestInput{ItemID: item.ID, Quantity: "1", Purpose: "Breakdown"})
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, req.Status)
	assert.Equal(t, "Motor", req.ItemName)
	assert.Equal(t, model.PurposeBreakdown, req.Purpose)

	_, err = l.ResolveRequest(ctx, carol, req.ID, model.RequestApproved, "")
	assert.ErrorIs(t, err, ErrForbidden)

	resolved, err := l.ResolveRequest(ctx, admin, req.ID, "Approved", "go ahead")
	require.NoError(t, err)
	assert.Equal(t, model.RequestApproved, resolved.Status)
	assert.Equal(t, "admin", resolved.ResolvedBy)
	assert.Equal(t, "go ahead", resolved.Remarks)
	require.NotNil(t, resolved.ResolvedAt)

	got, _ := store.GetTransaction(ctx, l.DB, match.Transaction.ID)
	assert.Equal(t, model.RequestApproved, got.RequestStatus)
	assert.Equal(t, "admin", got.ResolvedBy)

	for _, m := range []*Mutation{unrelatedItem, unrelatedPurpose, unrelatedUser} {
		got, _ := store.GetTransaction(ctx, l.DB, m.Transaction.ID)
		assert.NotEqual(t, model.RequestApproved, got.RequestStatus, "transaction %d", m.Transaction.ID)
	}

	payload, ok := rec.find(EventRequestUpdated)
	require.True(t, ok)
	assert.Equal(t, req.ID, payload.(*model.Request).ID)
}

func TestResolveRequestIsTerminal(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	req, err := l.CreateRequest(ctx, alice, RequestInput{ItemName: "Gasket", Quantity: "2"})
	require.NoError(t, err)
	assert.Equal(t, model.PurposeOthers, req.Purpose)

	_, err = l.ResolveRequest(ctx, admin, req.ID, model.RequestRejected, "")
	require.NoError(t, err)

	_, err = l.ResolveRequest(ctx, admin, req.ID, model.RequestApproved, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = l.ResolveRequest(ctx, admin, req.ID, "pending", "")
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = l.ResolveRequest(ctx, admin, 999, model.RequestApproved, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRequestValidation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreateRequest(ctx, alice, RequestInput{ItemName: "Gasket", Quantity: "0"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = l.CreateRequest(ctx, alice, RequestInput{Quantity: "1"})
	assert.ErrorAs(t, err, &verr)

	_, err = l.CreateRequest(ctx, alice, RequestInput{ItemID: 77, Quantity: "1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

type panicky struct{}

func (panicky) Emit(string, any) { panic("subscriber gone") }

func TestBroadcastFailureDoesNotFailMutation(t *testing.T) {
	l := New(db.NewTestDB(t), panicky{})
	item, err := l.CreateItem(context.Background(), admin, validInput("Valve", "1", "0"))
	require.NoError(t, err)

	_, err = l.UpdateItem(context.Background(), alice, item.ID, ItemChanges{Quantity: numeric("0")})
	require.NoError(t, err)
}

func TestNilBroadcaster(t *testing.T) {
	l := New(db.NewTestDB(t), nil)
	_, err := l.CreateItem(context.Background(), admin, validInput("Valve", "1", "0"))
	require.NoError(t, err)
}

func TestQuantityNeverNegative(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	item := seed(t, l, validInput("Bolt", "3", "0"))

	for _, q := range []string{"2", "0", "-1", "5"} {
		l.UpdateItem(ctx, alice, item.ID, ItemChanges{Quantity: numeric(q)})
		got, _ := store.GetItem(ctx, l.DB, item.ID)
		assert.GreaterOrEqual(t, got.Quantity, 0)
	}
}
