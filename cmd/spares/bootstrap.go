package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/spares/internal/auth"
	"github.com/erazemk/spares/internal/db"
	"github.com/erazemk/spares/internal/model"
	"github.com/erazemk/spares/internal/store"
)

const generatedPasswordLength = 16

// openDatabase opens the database and applies pending migrations.
func openDatabase(ctx context.Context, path string) (*sql.DB, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// ensureBootstrapAdmin creates the reserved admin account when no active
// user holds that name. It returns the generated password, or "" when the
// account already existed.
func ensureBootstrapAdmin(ctx context.Context, database *sql.DB, username string) (string, error) {
	existing, err := store.GetUserByUsername(ctx, database, username)
	if err != nil {
		return "", err
	}
	if existing != nil {
		if existing.Role != model.RoleAdmin {
			if err := store.UpdateUserRole(ctx, database, existing.ID, model.RoleAdmin); err != nil {
				return "", err
			}
		}
		return "", nil
	}

	password, err := auth.GeneratePassword(generatedPasswordLength)
	if err != nil {
		return "", err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	if _, err := store.CreateUser(ctx, database, username, hash, model.RoleAdmin); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	return password, nil
}

// printAdminPassword prints a freshly generated admin password to stdout.
func printAdminPassword(username, password string) {
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// signingSecret returns the configured JWT secret, or the one persisted in
// the database, generating it on first use.
func signingSecret(ctx context.Context, database *sql.DB, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	return store.SigningKey(ctx, database)
}
