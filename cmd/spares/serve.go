package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/spares/internal/alerts"
	"github.com/erazemk/spares/internal/api"
	"github.com/erazemk/spares/internal/auth"
	"github.com/erazemk/spares/internal/ledger"
	"github.com/erazemk/spares/internal/model"
	"github.com/erazemk/spares/internal/realtime"
	"github.com/erazemk/spares/internal/store"
)

const tokenPurgeInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, live updates and the weekly low-stock digest",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := openDatabase(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer database.Close()
	slog.Info("database ready", "path", cfg.DB.Path)

	password, err := ensureBootstrapAdmin(ctx, database, cfg.Auth.BootstrapAdmin)
	if err != nil {
		return err
	}
	if password != "" {
		printAdminPassword(cfg.Auth.BootstrapAdmin, password)
		fmt.Println()
	}

	secret, err := signingSecret(ctx, database, cfg.Auth.JWTSecret)
	if err != nil {
		return fmt.Errorf("loading signing key: %w", err)
	}

	hub := realtime.NewHub(cfg.WS.AllowedOrigins)
	go hub.Run(ctx)

	scheduler, err := newScheduler(database)
	if err != nil {
		return err
	}
	if cfg.Alerts.Enabled {
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	go purgeRevokedTokens(ctx, database)

	router := api.NewRouter(api.Config{
		DB:             database,
		Ledger:         ledger.New(database, hub),
		Issuer:         auth.NewIssuer(secret, cfg.Auth.TokenTTL),
		Realtime:       hub,
		Alerts:         scheduler,
		BootstrapAdmin: cfg.Auth.BootstrapAdmin,
		Metrics:        cfg.Metrics.Enabled,
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.LoggingMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", cfg.HTTP.Addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}

	slog.Info("server stopped, closing database")
	return nil
}

// newScheduler wires the digest scheduler to the item store and SMTP. It is
// built even when the weekly run is disabled so admins can send on demand.
func newScheduler(database *sql.DB) (*alerts.Scheduler, error) {
	weekday, err := cfg.AlertWeekday()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.AlertLocation()
	if err != nil {
		return nil, err
	}

	source := alerts.SourceFunc(func(ctx context.Context) ([]model.Item, error) {
		return store.ListItems(ctx, database)
	})
	mailer := &alerts.SMTPMailer{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}

	return alerts.NewScheduler(alerts.Config{
		Weekday:    weekday,
		Hour:       cfg.Alerts.Hour,
		Location:   loc,
		Recipients: cfg.Alerts.Recipients,
	}, source, mailer), nil
}

// purgeRevokedTokens drops revocations whose tokens have expired anyway.
func purgeRevokedTokens(ctx context.Context, database *sql.DB) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpiredTokens(ctx, database, time.Now())
			if err != nil {
				slog.Warn("purging revoked tokens", "error", err)
			} else if n > 0 {
				slog.Info("purged revoked tokens", "count", n)
			}
		}
	}
}
