package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/spares/internal/alerts"
	"github.com/erazemk/spares/internal/auth"
	"github.com/erazemk/spares/internal/ledger"
	"github.com/erazemk/spares/internal/metrics"
	"github.com/erazemk/spares/internal/model"
)

// Realtime accepts websocket subscribers.
type Realtime interface {
	ServeWS(w http.ResponseWriter, r *http.Request, user string)
	Clients() int
}

// Alerts is the low-stock digest scheduler as seen by the API.
type Alerts interface {
	RunNow(ctx context.Context) (alerts.Result, error)
	Status() alerts.SchedulerStatus
}

// Config holds the router's dependencies. Realtime and Alerts may be nil,
// in which case their routes answer 503.
type Config struct {
	DB     *sql.DB
	Ledger *ledger.Ledger
	Issuer *auth.Issuer

	Realtime Realtime
	Alerts   Alerts

	// BootstrapAdmin cannot be deleted or demoted.
	BootstrapAdmin string
	Metrics        bool

	// Now defaults to time.Now. Used for report periods and token purges.
	Now func() time.Time
}

func (c *Config) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg Config) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: cfg.DB, Issuer: cfg.Issuer}
	usersHandler := &UsersHandler{DB: cfg.DB, Events: cfg.Ledger.Events, BootstrapAdmin: cfg.BootstrapAdmin}
	inventoryHandler := &InventoryHandler{DB: cfg.DB, Ledger: cfg.Ledger, Now: cfg.now}
	transactionsHandler := &TransactionsHandler{DB: cfg.DB, Ledger: cfg.Ledger, Now: cfg.now}
	requestsHandler := &RequestsHandler{DB: cfg.DB, Ledger: cfg.Ledger}
	analyticsHandler := &AnalyticsHandler{DB: cfg.DB, Now: cfg.now}
	alertsHandler := &AlertsHandler{Alerts: cfg.Alerts}

	authMW := AuthMiddleware(cfg.Issuer, cfg.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }
	user := func(h http.HandlerFunc) http.Handler { return authMW(h) }

	// Public.
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{"status": "ok", "time": cfg.now().UTC()}
		if cfg.Realtime != nil {
			status["clients"] = cfg.Realtime.Clients()
		}
		jsonResponse(w, http.StatusOK, status)
	})
	if cfg.Metrics {
		mux.Handle("GET /metrics", metrics.Handler())
	}
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Live updates.
	mux.Handle("GET /ws", user(func(w http.ResponseWriter, r *http.Request) {
		if cfg.Realtime == nil {
			jsonError(w, http.StatusServiceUnavailable, "live updates are disabled")
			return
		}
		cfg.Realtime.ServeWS(w, r, GetClaims(r.Context()).Username)
	}))

	// Session.
	mux.Handle("GET /api/auth/verify", user(authHandler.Verify))
	mux.Handle("POST /api/auth/refresh", user(authHandler.Refresh))
	mux.Handle("POST /api/auth/logout", user(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", user(authHandler.ChangePassword))

	// Users.
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/count", user(usersHandler.Count))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Inventory: every signed-in user may record stock movements.
	mux.Handle("GET /api/inventory", user(inventoryHandler.List))
	mux.Handle("POST /api/inventory", user(inventoryHandler.Create))
	mux.Handle("GET /api/inventory/low-stock", user(inventoryHandler.LowStock))
	mux.Handle("GET /api/inventory/export", user(inventoryHandler.Export))
	mux.Handle("POST /api/inventory/bulk-upload", user(inventoryHandler.BulkUpload))
	mux.Handle("GET /api/inventory/{id}", user(inventoryHandler.Get))
	mux.Handle("GET /api/inventory/{id}/history", user(inventoryHandler.History))
	mux.Handle("PUT /api/inventory/{id}", user(inventoryHandler.Update))
	mux.Handle("DELETE /api/inventory/{id}", user(inventoryHandler.Delete))

	// Transactions.
	mux.Handle("GET /api/transactions", user(transactionsHandler.List))
	mux.Handle("PUT /api/transactions/{id}", admin(transactionsHandler.Edit))
	mux.Handle("DELETE /api/transactions", admin(transactionsHandler.Clear))

	// Requests.
	mux.Handle("GET /api/requests", admin(requestsHandler.List))
	mux.Handle("POST /api/requests", user(requestsHandler.Create))
	mux.Handle("PUT /api/requests/{id}", admin(requestsHandler.Resolve))

	// Analytics.
	mux.Handle("GET /api/analytics/dashboard", user(analyticsHandler.Dashboard))
	mux.Handle("GET /api/analytics/reports", admin(analyticsHandler.Report))
	mux.Handle("GET /api/analytics/integrity", admin(analyticsHandler.Integrity))

	// Alerts.
	mux.Handle("GET /api/alerts/status", admin(alertsHandler.Status))
	mux.Handle("POST /api/alerts/send", admin(alertsHandler.Send))

	return mux
}
