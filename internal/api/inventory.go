package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/spares/internal/analytics"
	"github.com/erazemk/spares/internal/ledger"
	"github.com/erazemk/spares/internal/model"
	"github.com/erazemk/spares/internal/spreadsheet"
	"github.com/erazemk/spares/internal/store"
)

// maxUploadSize caps bulk-upload bodies.
const maxUploadSize = 10 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// InventoryHandler handles item endpoints. Writes go through the ledger so
// every quantity change is recorded.
type InventoryHandler struct {
	DB     *sql.DB
	Ledger *ledger.Ledger
	Now    func() time.Time
}

type bulkUploadRequest struct {
	Items []ledger.ItemInput `json:"items"`
}

// List handles GET /api/inventory.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// LowStock handles GET /api/inventory/low-stock.
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	jsonResponse(w, http.StatusOK, analytics.LowStock(items))
}

// Get handles GET /api/inventory/{id}.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// History handles GET /api/inventory/{id}/history.
func (h *InventoryHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item history")
		return
	}

	txns, err := store.ListTransactions(r.Context(), h.DB, store.TransactionFilter{ItemID: id})
	if err != nil {
		slog.Error("failed to list item history", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item history")
		return
	}
	if item == nil && len(txns) == 0 {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	if item != nil {
		idx := analytics.NewItemIndex([]model.Item{*item})
		for i := range txns {
			txns[i] = analytics.ResolveDisplayFields(txns[i], idx)
		}
	}
	jsonResponse(w, http.StatusOK, txns)
}

// Create handles POST /api/inventory.
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in ledger.ItemInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Ledger.CreateItem(r.Context(), actor(r), in)
	if err != nil {
		ledgerError(w, "create item", err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Update handles PUT /api/inventory/{id}.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var ch ledger.ItemChanges
	if err := decodeJSON(r, &ch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.Ledger.UpdateItem(r.Context(), actor(r), id, ch)
	if err != nil {
		ledgerError(w, "update item", err)
		return
	}
	jsonResponse(w, http.StatusOK, m)
}

// Delete handles DELETE /api/inventory/{id}.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	m, err := h.Ledger.DeleteItem(r.Context(), actor(r), id)
	if err != nil {
		ledgerError(w, "delete item", err)
		return
	}
	jsonResponse(w, http.StatusOK, m)
}

// BulkUpload handles POST /api/inventory/bulk-upload. The body is either a
// multipart form with an xlsx "file" or JSON {"items": [...]}.
func (h *InventoryHandler) BulkUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	var rows []ledger.ItemInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		file, _, err := r.FormFile("file")
		if err != nil {
			jsonError(w, http.StatusBadRequest, "missing spreadsheet file")
			return
		}
		defer file.Close()

		rows, err = spreadsheet.ReadImportRows(file)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		var req bulkUploadRequest
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		rows = req.Items
	}

	items, err := h.Ledger.BulkImport(r.Context(), actor(r), rows)
	if err != nil {
		ledgerError(w, "bulk upload", err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]any{"count": len(items), "items": items})
}

// Export handles GET /api/inventory/export.
func (h *InventoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export inventory")
		return
	}

	name := fmt.Sprintf("inventory-%s.xlsx", h.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := spreadsheet.WriteInventory(w, items); err != nil {
		slog.Error("failed to write inventory export", "error", err)
	}
}
