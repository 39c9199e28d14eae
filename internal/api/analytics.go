package api

import (
	"bytes"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/spares/internal/analytics"
	"github.com/erazemk/spares/internal/spreadsheet"
	"github.com/erazemk/spares/internal/store"
)

// AnalyticsHandler serves dashboard figures and reports.
type AnalyticsHandler struct {
	DB  *sql.DB
	Now func() time.Time
}

type integrityReport struct {
	Items                int  `json:"items"`
	Transactions         int  `json:"transactions"`
	Users                int  `json:"users"`
	OrphanedTransactions int  `json:"orphanedTransactions"`
	Healthy              bool `json:"healthy"`
}

func (h *AnalyticsHandler) compute(r *http.Request) (analytics.Dashboard, error) {
	items, err := store.ListItems(r.Context(), h.DB)
	if err != nil {
		return analytics.Dashboard{}, err
	}
	txns, err := store.ListTransactions(r.Context(), h.DB, store.TransactionFilter{})
	if err != nil {
		return analytics.Dashboard{}, err
	}

	q := r.URL.Query()
	p := analytics.ResolvePeriod(q.Get("month"), q.Get("year"), h.Now())
	return analytics.Compute(items, txns, p), nil
}

// Dashboard handles GET /api/analytics/dashboard?month=&year=.
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.compute(r)
	if err != nil {
		slog.Error("failed to compute dashboard", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to compute dashboard")
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// Report handles GET /api/analytics/reports?month=&year=, returning the
// dashboard as a workbook.
func (h *AnalyticsHandler) Report(w http.ResponseWriter, r *http.Request) {
	d, err := h.compute(r)
	if err != nil {
		slog.Error("failed to compute report", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	// Buffer so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := spreadsheet.WriteDashboard(&buf, d, h.Now()); err != nil {
		slog.Error("failed to write report", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	name := fmt.Sprintf("spares-report-%s.xlsx", strings.ReplaceAll(d.Period.Label(), " ", "-"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("sending report", "error", err)
	}

	claims := GetClaims(r.Context())
	slog.Info("report generated", "user", claims.Username, "period", d.Period.Label())
}

// Integrity handles GET /api/analytics/integrity.
func (h *AnalyticsHandler) Integrity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var rep integrityReport
	var err error

	if rep.Items, err = store.CountItems(ctx, h.DB); err == nil {
		if rep.Transactions, err = store.CountTransactions(ctx, h.DB); err == nil {
			if rep.Users, err = store.CountUsers(ctx, h.DB); err == nil {
				rep.OrphanedTransactions, err = store.CountOrphanedTransactions(ctx, h.DB)
			}
		}
	}
	if err != nil {
		slog.Error("failed to check integrity", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to check integrity")
		return
	}

	rep.Healthy = rep.OrphanedTransactions == 0
	jsonResponse(w, http.StatusOK, rep)
}
