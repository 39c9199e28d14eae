// Package spreadsheet reads bulk import workbooks and writes the dashboard
// report and inventory export workbooks.
package spreadsheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/spares/internal/ledger"
)

// headerAliases maps normalized header text to an import column.
var headerAliases = map[string]string{
	"name":            "name",
	"itemname":        "name",
	"make":            "make",
	"model":           "model",
	"specification":   "specification",
	"spec":            "specification",
	"rack":            "rack",
	"bin":             "bin",
	"quantity":        "quantity",
	"qty":             "quantity",
	"minimumquantity": "minimumQuantity",
	"minquantity":     "minimumQuantity",
	"minqty":          "minimumQuantity",
	"minimum":         "minimumQuantity",
	"cost":            "cost",
	"unitcost":        "cost",
	"costperunit":     "cost",
	"category":        "category",
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "", ".", "").Replace(h)
}

// ReadImportRows reads the first sheet of an xlsx workbook. The first row is
// the header; columns are matched by name in any order. Row i of the result
// is sheet row i+2, which is how bulk import errors are numbered.
func ReadImportRows(r io.Reader) ([]ledger.ItemInput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	columns := map[string]int{}
	for i, h := range rows[0] {
		if col, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, dup := columns[col]; !dup {
				columns[col] = i
			}
		}
	}
	if _, ok := columns["name"]; !ok {
		return nil, fmt.Errorf("header row has no name column")
	}

	inputs := make([]ledger.ItemInput, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cell := func(col string) string {
			i, ok := columns[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		inputs = append(inputs, ledger.ItemInput{
			Name:            cell("name"),
			Make:            cell("make"),
			Model:           cell("model"),
			Specification:   cell("specification"),
			Rack:            cell("rack"),
			Bin:             cell("bin"),
			Quantity:        ledger.Numeric(cell("quantity")),
			MinimumQuantity: ledger.Numeric(cell("minimumQuantity")),
			Cost:            ledger.Numeric(cell("cost")),
			Category:        cell("category"),
		})
	}
	return inputs, nil
}
