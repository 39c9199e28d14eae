package db

import (
	"context"
	"testing"
)

func TestMigrateIsIdempotent(t *testing.T) {
	database := NewTestDB(t)

	if err := Migrate(context.Background(), database); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	for _, table := range []string{"users", "items", "transactions", "requests", "settings", "revoked_tokens"} {
		var name string
		err := database.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("expected table %s: %v", table, err)
		}
	}
}

func TestItemsRejectNegativeQuantity(t *testing.T) {
	database := NewTestDB(t)

	_, err := database.Exec(`INSERT INTO items (name, quantity) VALUES ('Bearing', -1)`)
	if err == nil {
		t.Error("expected CHECK constraint to reject negative quantity")
	}
}
