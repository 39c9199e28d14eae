package store

import (
	"context"
	"testing"

	"github.com/erazemk/spares/internal/db"
	"github.com/erazemk/spares/internal/model"
)

func costOf(v float64) *float64 { return &v }

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, &model.Item{
		Name: "Bearing", Make: "SKF", Model: "6204", Specification: "20x47x14",
		Rack: "A1", Bin: "3", Quantity: 10, MinimumQuantity: 5,
		Cost: costOf(2.5), Category: "CRITICAL", UpdatedBy: "alice",
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected an ID")
	}
	if item.Category != model.CategoryCritical {
		t.Errorf("expected category 'critical', got %q", item.Category)
	}
	if item.Cost == nil || *item.Cost != 2.5 {
		t.Errorf("expected cost 2.5, got %v", item.Cost)
	}

	got, err := GetItem(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Name != "Bearing" || got.Rack != "A1" || got.Quantity != 10 {
		t.Errorf("unexpected item: %+v", got)
	}
}

func TestItemWithoutCost(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, &model.Item{Name: "Fuse", Quantity: 1})
	if item.Cost != nil {
		t.Errorf("expected nil cost, got %v", *item.Cost)
	}
	if item.Category != model.CategoryConsumable {
		t.Errorf("expected default category, got %q", item.Category)
	}
}

func TestGetItemMissing(t *testing.T) {
	database := db.NewTestDB(t)

	item, err := GetItem(context.Background(), database, 999)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if item != nil {
		t.Error("expected nil for missing item")
	}
}

func TestUpdateItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, &model.Item{Name: "Belt", Quantity: 4})

	item.Quantity = 2
	item.Bin = "7"
	item.Cost = costOf(12)
	item.UpdatedBy = "bob"
	if err := UpdateItem(ctx, database, item); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Quantity != 2 || got.Bin != "7" || got.UpdatedBy != "bob" {
		t.Errorf("update not persisted: %+v", got)
	}
	if got.Cost == nil || *got.Cost != 12 {
		t.Errorf("expected cost 12, got %v", got.Cost)
	}
}

func TestUpdateItemRejectsNegativeQuantity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, &model.Item{Name: "Belt", Quantity: 4})
	item.Quantity = -1
	if err := UpdateItem(ctx, database, item); err == nil {
		t.Fatal("expected check constraint violation")
	}
}

func TestCreateItemsInTransactionRollsBack(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = CreateItems(ctx, tx, []model.Item{
		{Name: "ok", Quantity: 1},
		{Name: "bad", Quantity: -1},
	})
	if err == nil {
		t.Fatal("expected error for negative quantity")
	}
	tx.Rollback()

	n, _ := CountItems(ctx, database)
	if n != 0 {
		t.Errorf("expected no items after rollback, got %d", n)
	}
}

func TestListLowStockItems(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateItem(ctx, database, &model.Item{Name: "plenty", Quantity: 10, MinimumQuantity: 2})
	CreateItem(ctx, database, &model.Item{Name: "edge", Quantity: 5, MinimumQuantity: 5})
	CreateItem(ctx, database, &model.Item{Name: "empty", Quantity: 0, MinimumQuantity: 1})

	items, err := ListLowStockItems(ctx, database)
	if err != nil {
		t.Fatalf("ListLowStockItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 low stock items, got %d", len(items))
	}
	if items[0].Name != "empty" || items[1].Name != "edge" {
		t.Errorf("unexpected order: %s, %s", items[0].Name, items[1].Name)
	}
}

func TestDeleteItemKeepsTransactions(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, &model.Item{Name: "Relay", Quantity: 3})
	CreateTransaction(ctx, database, &model.Transaction{
		ItemID: item.ID, ItemName: item.Name, Type: model.TransactionTaken, Quantity: 1, User: "alice",
	})

	if err := DeleteItem(ctx, database, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got != nil {
		t.Error("expected item to be gone")
	}

	n, _ := CountTransactions(ctx, database)
	if n != 1 {
		t.Errorf("expected ledger to keep 1 transaction, got %d", n)
	}
	orphans, _ := CountOrphanedTransactions(ctx, database)
	if orphans != 1 {
		t.Errorf("expected 1 orphaned transaction, got %d", orphans)
	}
}
