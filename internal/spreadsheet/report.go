package spreadsheet

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/spares/internal/analytics"
	"github.com/erazemk/spares/internal/model"
)

const timeLayout = "2006-01-02 15:04"

// workbook wraps an excelize file with row-at-a-time writing.
type workbook struct {
	f   *excelize.File
	err error
}

func newWorkbook(first string) *workbook {
	f := excelize.NewFile()
	wb := &workbook{f: f}
	wb.err = f.SetSheetName(f.GetSheetName(0), first)
	return wb
}

func (wb *workbook) sheet(name string) {
	if wb.err != nil {
		return
	}
	_, wb.err = wb.f.NewSheet(name)
}

// rows writes values starting at A1, one slice per row.
func (wb *workbook) rows(sheet string, rows ...[]any) {
	for i, row := range rows {
		if wb.err != nil {
			return
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			wb.err = err
			return
		}
		r := row
		wb.err = wb.f.SetSheetRow(sheet, cell, &r)
	}
}

func (wb *workbook) widths(sheet string, first, last string, width float64) {
	if wb.err != nil {
		return
	}
	wb.err = wb.f.SetColWidth(sheet, first, last, width)
}

func (wb *workbook) write(w io.Writer) error {
	defer func() { _ = wb.f.Close() }()
	if wb.err != nil {
		return fmt.Errorf("building workbook: %w", wb.err)
	}
	wb.f.SetActiveSheet(0)
	if err := wb.f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// SheetNames returns the sheets WriteDashboard produces for a period, in order.
func SheetNames(p analytics.Period) []string {
	return []string{
		"Summary",
		p.Label() + " Summary",
		p.Label() + " Details",
		"Monthly Costs",
		"Low Stock Alerts",
	}
}

// WriteDashboard writes the analytics report workbook.
func WriteDashboard(w io.Writer, d analytics.Dashboard, generatedAt time.Time) error {
	names := SheetNames(d.Period)
	wb := newWorkbook(names[0])
	for _, name := range names[1:] {
		wb.sheet(name)
	}

	wb.rows(names[0],
		[]any{"Spare Parts Report", d.Period.Label()},
		[]any{"Generated", generatedAt.Format(timeLayout)},
		[]any{""},
		[]any{"Metric", "Value"},
		[]any{"Total Items", d.TotalItems},
		[]any{"Low Stock Items", d.LowStockItems},
		[]any{"Total Transactions", d.TotalTransactions},
		[]any{"Items Consumed", d.ItemsConsumed},
		[]any{"Items Added", d.ItemsAdded},
		[]any{"Cost Consumed", d.CostConsumed},
		[]any{"Cost Added", d.CostAdded},
		[]any{"Active Users", d.ActiveUsers},
		[]any{"Stock Value (Critical)", d.TotalValueCritical},
		[]any{"Stock Value (Consumable)", d.TotalValueConsumable},
		[]any{"Stock Value (Total)", d.TotalValueAll},
	)
	wb.widths(names[0], "A", "B", 26)

	summary := [][]any{
		{"Transactions", d.TotalTransactions},
		{"Items Added", d.ItemsAdded},
		{"Items Taken", d.ItemsConsumed},
		{""},
		{"User", "Total", "Added", "Taken", "Deleted"},
	}
	for _, ua := range d.UserActivity {
		summary = append(summary, []any{ua.User, ua.Transactions, ua.Added, ua.Taken, ua.Deleted})
	}
	wb.rows(names[1], summary...)
	wb.widths(names[1], "A", "E", 16)

	details := [][]any{{"Date", "Item", "Make", "Model", "Specification", "Rack", "Bin", "Type", "Quantity", "User", "Purpose", "Remarks"}}
	for _, t := range d.RecentTransactions {
		details = append(details, []any{
			t.Timestamp.Format(timeLayout), t.ItemName, t.Make, t.Model, t.Specification,
			t.Rack, t.Bin, t.Type, t.Quantity, t.User, t.Purpose, t.Remarks,
		})
	}
	wb.rows(names[2], details...)
	wb.widths(names[2], "A", "L", 15)

	costs := [][]any{{"Month", "Added", "Consumed"}}
	for _, mc := range d.MonthlyCostSeries {
		costs = append(costs, []any{fmt.Sprintf("%s %d", mc.Month, d.Period.Year), mc.Added, mc.Consumed})
	}
	wb.rows(names[3], costs...)

	wb.rows(names[4], lowStockRows(d.LowStockAlerts)...)
	wb.widths(names[4], "A", "H", 15)

	return wb.write(w)
}

func lowStockRows(items []model.Item) [][]any {
	rows := [][]any{{"Item", "Make", "Model", "Rack", "Bin", "Quantity", "Minimum", "Status"}}
	for _, item := range items {
		status := "Low"
		if item.Quantity == 0 {
			status = "Out of stock"
		}
		rows = append(rows, []any{
			item.Name, item.Make, item.Model, item.Rack, item.Bin,
			item.Quantity, item.MinimumQuantity, status,
		})
	}
	return rows
}

// WriteInventory writes every item with its stock value.
func WriteInventory(w io.Writer, items []model.Item) error {
	const sheet = "Inventory"
	wb := newWorkbook(sheet)

	rows := [][]any{{
		"ID", "Name", "Make", "Model", "Specification", "Rack", "Bin",
		"Quantity", "Minimum Quantity", "Cost", "Category", "Total Value", "Updated By", "Updated At",
	}}
	for _, item := range items {
		var cost any = ""
		if item.Cost != nil {
			cost = *item.Cost
		}
		rows = append(rows, []any{
			item.ID, item.Name, item.Make, item.Model, item.Specification, item.Rack, item.Bin,
			item.Quantity, item.MinimumQuantity, cost, item.Category,
			item.UnitCost() * float64(item.Quantity), item.UpdatedBy, item.UpdatedAt.Format(timeLayout),
		})
	}
	wb.rows(sheet, rows...)
	wb.widths(sheet, "A", "N", 14)

	return wb.write(w)
}
