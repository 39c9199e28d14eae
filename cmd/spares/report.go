package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/spares/internal/analytics"
	"github.com/erazemk/spares/internal/spreadsheet"
	"github.com/erazemk/spares/internal/store"
)

var (
	reportMonth int
	reportYear  int
	reportOut   string

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Write the analytics workbook for a month without starting the server",
		Args:  cobra.NoArgs,
		RunE:  runReport,
	}
)

func init() {
	reportCmd.Flags().IntVarP(&reportMonth, "month", "m", 0, "month 1-12 (default: current month)")
	reportCmd.Flags().IntVarP(&reportYear, "year", "y", 0, "year (default: current year)")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "output path (default: spares-report-<Month>-<Year>.xlsx)")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportMonth < 0 || reportMonth > 12 {
		return fmt.Errorf("--month must be 1-12, got %d", reportMonth)
	}

	ctx := cmd.Context()
	database, err := openDatabase(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	items, err := store.ListItems(ctx, database)
	if err != nil {
		return err
	}
	txns, err := store.ListTransactions(ctx, database, store.TransactionFilter{})
	if err != nil {
		return err
	}

	var month, year string
	if reportMonth > 0 {
		month = strconv.Itoa(reportMonth - 1)
	}
	if reportYear > 0 {
		year = strconv.Itoa(reportYear)
	}
	now := time.Now()
	d := analytics.Compute(items, txns, analytics.ResolvePeriod(month, year, now))

	out := reportOut
	if out == "" {
		out = fmt.Sprintf("spares-report-%s-%d.xlsx", time.Month(d.Period.Month+1), d.Period.Year)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if err := spreadsheet.WriteDashboard(f, d, now); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", out, err)
	}

	fmt.Printf("Report for %s written to %s\n", d.Period.Label(), out)
	return nil
}
