package model

import (
	"strings"
	"time"
)

// Item is a spare part held in the storeroom.
type Item struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Make            string    `json:"make"`
	Model           string    `json:"model"`
	Specification   string    `json:"specification"`
	Rack            string    `json:"rack"`
	Bin             string    `json:"bin"`
	Quantity        int       `json:"quantity"`
	MinimumQuantity int       `json:"minimumQuantity"`
	Cost            *float64  `json:"cost,omitempty"`
	Category        string    `json:"category"`
	UpdatedBy       string    `json:"updatedBy"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Item categories.
const (
	CategoryCritical   = "critical"
	CategoryConsumable = "consumable"
)

// NormalizeCategory lowercases a category and falls back to consumable for
// anything unrecognized.
func NormalizeCategory(category string) string {
	switch c := strings.ToLower(strings.TrimSpace(category)); c {
	case CategoryCritical, CategoryConsumable:
		return c
	default:
		return CategoryConsumable
	}
}

// IsLowStock reports whether the item is at or below its reorder threshold.
func (i *Item) IsLowStock() bool {
	return i.Quantity <= i.MinimumQuantity
}

// UnitCost returns the per-unit cost, or 0 when none is recorded.
func (i *Item) UnitCost() float64 {
	if i == nil || i.Cost == nil {
		return 0
	}
	return *i.Cost
}
