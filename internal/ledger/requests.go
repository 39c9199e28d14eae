package ledger

import (
	"context"
	"log/slog"
	"strings"

	"github.com/erazemk/spares/internal/metrics"
	"github.com/erazemk/spares/internal/model"
	"github.com/erazemk/spares/internal/store"
)

// CreateRequest opens a pending request on behalf of any user. When ItemID
// names an existing item its current name is used.
func (l *Ledger) CreateRequest(ctx context.Context, actor Actor, in RequestInput) (*model.Request, error) {
	qty, err := ParseCount(string(in.Quantity))
	if err != nil {
		return nil, invalid("quantity", "%v", err)
	}
	if qty == 0 {
		return nil, invalid("quantity", "must be at least 1")
	}

	name := strings.TrimSpace(in.ItemName)
	if in.ItemID > 0 {
		item, err := store.GetItem(ctx, l.DB, in.ItemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, ErrNotFound
		}
		name = item.Name
	}
	if name == "" {
		return nil, invalid("itemName", "is required")
	}

	req, err := store.CreateRequest(ctx, l.DB, &model.Request{
		ItemID:      in.ItemID,
		ItemName:    name,
		Quantity:    qty,
		Purpose:     model.NormalizePurpose(in.Purpose),
		Remarks:     strings.TrimSpace(in.Remarks),
		RequestedBy: actor.Username,
	})
	if err != nil {
		return nil, err
	}

	metrics.LedgerMutations.WithLabelValues("request_create").Inc()
	slog.Info("request created", "id", req.ID, "item", req.ItemName, "user", actor.Username)

	l.emit(EventRequestCreated, req)
	return req, nil
}

// ResolveRequest approves or rejects a pending request. Admin only.
//
// Matching breakdown transactions of the requester are then patched with
// the outcome. That patch is best effort: a failure is logged and counted
// but the resolution itself stands.
func (l *Ledger) ResolveRequest(ctx context.Context, actor Actor, id int64, status, remarks string) (*model.Request, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	status = strings.ToLower(strings.TrimSpace(status))
	if status != model.RequestApproved && status != model.RequestRejected {
		return nil, invalid("status", "must be %q or %q", model.RequestApproved, model.RequestRejected)
	}

	req, err := store.GetRequest(ctx, l.DB, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}
	if !req.CanResolve(status) {
		return nil, ErrInvalidTransition
	}

	if err := store.ResolveRequest(ctx, l.DB, id, status, strings.TrimSpace(remarks), actor.Username, l.now()); err != nil {
		return nil, err
	}

	n, err := store.SetBreakdownRequestStatus(ctx, l.DB, req.ItemID, req.RequestedBy, status, actor.Username)
	if err != nil {
		metrics.PartialFailures.WithLabelValues("request_cascade").Inc()
		slog.Error("updating request transactions", "request", id, "error", err)
	} else if n > 0 {
		slog.Info("request transactions updated", "request", id, "count", n)
	}

	resolved, err := store.GetRequest(ctx, l.DB, id)
	if err != nil {
		return nil, err
	}

	metrics.LedgerMutations.WithLabelValues("request_resolve").Inc()
	slog.Info("request resolved", "id", id, "status", status, "user", actor.Username)

	l.emit(EventRequestUpdated, resolved)
	return resolved, nil
}
