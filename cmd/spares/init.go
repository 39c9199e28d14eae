package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and the bootstrap admin account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		database, err := openDatabase(ctx, cfg.DB.Path)
		if err != nil {
			return err
		}
		defer database.Close()

		fmt.Printf("Database ready: %s\n", cfg.DB.Path)
		slog.Info("database migrated", "path", cfg.DB.Path)

		password, err := ensureBootstrapAdmin(ctx, database, cfg.Auth.BootstrapAdmin)
		if err != nil {
			return err
		}
		if password == "" {
			fmt.Printf("Admin account %q already exists.\n", cfg.Auth.BootstrapAdmin)
			return nil
		}
		fmt.Println()
		printAdminPassword(cfg.Auth.BootstrapAdmin, password)
		return nil
	},
}
