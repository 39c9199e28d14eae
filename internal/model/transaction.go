package model

import (
	"strings"
	"time"
)

// Transaction is an entry in the stock ledger. Quantity is always the
// magnitude of the change, never a running total.
type Transaction struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"itemId"`
	ItemName  string    `json:"itemName"`
	Type      string    `json:"type"`
	Quantity  int       `json:"quantity"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
	Purpose   string    `json:"purpose,omitempty"`
	Remarks   string    `json:"remarks,omitempty"`

	// Item details captured when the transaction was recorded.
	Make          string `json:"make,omitempty"`
	Model         string `json:"model,omitempty"`
	Specification string `json:"specification,omitempty"`
	Rack          string `json:"rack,omitempty"`
	Bin           string `json:"bin,omitempty"`

	// Breakdown request tracking.
	RequestedBy   string `json:"requestedBy,omitempty"`
	RequestStatus string `json:"requestStatus,omitempty"`
	ResolvedBy    string `json:"resolvedBy,omitempty"`

	// Set when an admin corrects the entry.
	EditedBy string     `json:"editedBy,omitempty"`
	EditedAt *time.Time `json:"editedAt,omitempty"`
}

// Transaction types.
const (
	TransactionAdded   = "added"
	TransactionTaken   = "taken"
	TransactionDeleted = "deleted"
)

// Purposes.
const (
	PurposeBreakdown = "breakdown"
	PurposeOthers    = "others"
)

// NormalizePurpose returns breakdown only for an explicit (case-insensitive)
// "breakdown"; everything else is others.
func NormalizePurpose(purpose string) string {
	if strings.EqualFold(strings.TrimSpace(purpose), PurposeBreakdown) {
		return PurposeBreakdown
	}
	return PurposeOthers
}

// Snapshot copies the item's descriptive fields onto the transaction.
func (t *Transaction) Snapshot(item *Item) {
	t.ItemID = item.ID
	t.ItemName = item.Name
	t.Make = item.Make
	t.Model = item.Model
	t.Specification = item.Specification
	t.Rack = item.Rack
	t.Bin = item.Bin
}
