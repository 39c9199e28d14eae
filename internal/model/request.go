package model

import "time"

// Request is a ticket asking for stock to be released, usually for a breakdown.
type Request struct {
	ID          int64      `json:"id"`
	ItemID      int64      `json:"itemId,omitempty"`
	ItemName    string     `json:"itemName"`
	Quantity    int        `json:"quantity"`
	Purpose     string     `json:"purpose"`
	Remarks     string     `json:"remarks"`
	Status      string     `json:"status"`
	RequestedBy string     `json:"requestedBy"`
	ResolvedBy  string     `json:"resolvedBy,omitempty"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Request statuses.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// CanResolve reports whether a request may move from its current status to next.
// Only pending requests can be resolved, and only to a terminal status.
func (r *Request) CanResolve(next string) bool {
	if r.Status != RequestPending {
		return false
	}
	return next == RequestApproved || next == RequestRejected
}
