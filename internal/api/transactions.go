package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/spares/internal/analytics"
	"github.com/erazemk/spares/internal/ledger"
	"github.com/erazemk/spares/internal/model"
	"github.com/erazemk/spares/internal/store"
)

// TransactionsHandler handles ledger endpoints.
type TransactionsHandler struct {
	DB     *sql.DB
	Ledger *ledger.Ledger
	Now    func() time.Time
}

// List handles GET /api/transactions. Supported filters: item_id, user,
// type, month (0-11) and year. A month without a year means this year.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f store.TransactionFilter
	if v := q.Get("item_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid item_id")
			return
		}
		f.ItemID = id
	}
	f.User = q.Get("user")
	if v := q.Get("type"); v != "" {
		switch v {
		case model.TransactionAdded, model.TransactionTaken, model.TransactionDeleted:
			f.Type = v
		default:
			jsonError(w, http.StatusBadRequest, "invalid type")
			return
		}
	}

	txns, err := store.ListTransactions(r.Context(), h.DB, f)
	if err != nil {
		slog.Error("failed to list transactions", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	month, year := q.Get("month"), q.Get("year")
	if month != "" || year != "" {
		p := analytics.ResolvePeriod(month, year, h.Now())
		kept := txns[:0]
		for _, t := range txns {
			if (month != "" && p.Contains(t.Timestamp)) || (month == "" && p.InYear(t.Timestamp)) {
				kept = append(kept, t)
			}
		}
		txns = kept
	}

	items, err := store.ListItems(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	idx := analytics.NewItemIndex(items)
	for i := range txns {
		txns[i] = analytics.ResolveDisplayFields(txns[i], idx)
	}

	jsonResponse(w, http.StatusOK, txns)
}

// Edit handles PUT /api/transactions/{id}.
func (h *TransactionsHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var edit ledger.TransactionEdit
	if err := decodeJSON(r, &edit); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Ledger.EditTransaction(r.Context(), actor(r), id, edit)
	if err != nil {
		ledgerError(w, "edit transaction", err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// Clear handles DELETE /api/transactions.
func (h *TransactionsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.Ledger.ClearTransactions(r.Context(), actor(r))
	if err != nil {
		ledgerError(w, "clear transactions", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int64{"deleted": n})
}
