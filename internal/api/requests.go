package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/spares/internal/ledger"
	"github.com/erazemk/spares/internal/model"
	"github.com/erazemk/spares/internal/store"
)

// RequestsHandler handles stock request endpoints.
type RequestsHandler struct {
	DB     *sql.DB
	Ledger *ledger.Ledger
}

type resolveRequestBody struct {
	Status  string `json:"status"`
	Remarks string `json:"remarks"`
}

// List handles GET /api/requests, optionally filtered by ?status=.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := strings.ToLower(r.URL.Query().Get("status"))
	switch status {
	case "", model.RequestPending, model.RequestApproved, model.RequestRejected:
	default:
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	reqs, err := store.ListRequests(r.Context(), h.DB, status)
	if err != nil {
		slog.Error("failed to list requests", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	jsonResponse(w, http.StatusOK, reqs)
}

// Create handles POST /api/requests.
func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in ledger.RequestInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Ledger.CreateRequest(r.Context(), actor(r), in)
	if err != nil {
		ledgerError(w, "create request", err)
		return
	}
	jsonResponse(w, http.StatusCreated, req)
}

// Resolve handles PUT /api/requests/{id}.
func (h *RequestsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var body resolveRequestBody
	if err := decodeJSON(r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Ledger.ResolveRequest(r.Context(), actor(r), id, body.Status, body.Remarks)
	if err != nil {
		ledgerError(w, "resolve request", err)
		return
	}
	jsonResponse(w, http.StatusOK, req)
}
