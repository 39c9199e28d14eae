package api

import (
	"log/slog"
	"net/http"
)

// AlertsHandler exposes the low-stock digest scheduler.
type AlertsHandler struct {
	Alerts Alerts
}

// Status handles GET /api/alerts/status.
func (h *AlertsHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.Alerts == nil {
		jsonError(w, http.StatusServiceUnavailable, "alerts are disabled")
		return
	}
	jsonResponse(w, http.StatusOK, h.Alerts.Status())
}

// Send handles POST /api/alerts/send, running the digest immediately.
func (h *AlertsHandler) Send(w http.ResponseWriter, r *http.Request) {
	if h.Alerts == nil {
		jsonError(w, http.StatusServiceUnavailable, "alerts are disabled")
		return
	}

	res, err := h.Alerts.RunNow(r.Context())
	claims := GetClaims(r.Context())
	if err != nil {
		slog.Error("sending low stock digest", "user", claims.Username, "error", err)
		jsonResponse(w, http.StatusBadGateway, res)
		return
	}

	slog.Info("low stock digest run", "user", claims.Username, "sent", res.Sent, "items", res.Items)
	jsonResponse(w, http.StatusOK, res)
}
