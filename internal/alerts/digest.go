package alerts

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/erazemk/spares/internal/model"
)

// Digest is the weekly list of items needing attention.
type Digest struct {
	Items       []model.Item
	OutOfStock  int
	Low         int
	GeneratedAt time.Time
}

// NewDigest summarizes low-stock items. items must already be filtered.
func NewDigest(items []model.Item, now time.Time) Digest {
	d := Digest{Items: items, GeneratedAt: now}
	for _, item := range items {
		if item.Quantity == 0 {
			d.OutOfStock++
		} else {
			d.Low++
		}
	}
	return d
}

// Status labels an item's severity.
func Status(item model.Item) string {
	switch {
	case item.Quantity == 0:
		return "OUT OF STOCK"
	case item.Quantity <= 2:
		return "CRITICAL"
	default:
		return "LOW STOCK"
	}
}

// Subject is the mail subject line.
func (d Digest) Subject() string {
	return fmt.Sprintf("Low stock alert: %d item(s) need attention", len(d.Items))
}

// Text renders the plain-text body.
func (d Digest) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weekly low stock report, %s\n\n", d.GeneratedAt.Format("Monday, 2 January 2006 15:04"))
	fmt.Fprintf(&b, "%d item(s) require attention", len(d.Items))
	if d.OutOfStock > 0 {
		fmt.Fprintf(&b, ", %d out of stock", d.OutOfStock)
	}
	b.WriteString(".\n\n")
	for _, item := range d.Items {
		fmt.Fprintf(&b, "- %s (%s %s) at rack %s, bin %s: %d left, minimum %d [%s]\n",
			item.Name, item.Make, item.Model, item.Rack, item.Bin,
			item.Quantity, item.MinimumQuantity, Status(item))
	}
	return b.String()
}

var htmlTmpl = template.Must(template.New("digest").Funcs(template.FuncMap{
	"status": Status,
}).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
<h2>Weekly Low Stock Alert</h2>
<p>You have <strong>{{len .Items}}</strong> item(s) requiring attention.
{{- if .OutOfStock}} <strong>{{.OutOfStock}}</strong> out of stock.{{end}}
{{- if .Low}} <strong>{{.Low}}</strong> need restocking.{{end}}</p>
<table style="border-collapse: collapse; width: 100%;">
<thead><tr><th align="left">Item</th><th align="left">Make/Model</th><th align="left">Location</th><th align="left">Quantity</th><th align="left">Status</th></tr></thead>
<tbody>
{{- range .Items}}
<tr><td><strong>{{.Name}}</strong><br>{{.Specification}}</td><td>{{.Make}} {{.Model}}</td><td>Rack {{.Rack}} / Bin {{.Bin}}</td><td>{{.Quantity}} (min {{.MinimumQuantity}})</td><td>{{status .}}</td></tr>
{{- end}}
</tbody>
</table>
<p style="color: #999; font-size: 0.85em;">Generated on {{.GeneratedAt.Format "Monday, 2 January 2006 15:04 MST"}}</p>
</body>
</html>
`))

// HTML renders the HTML body.
func (d Digest) HTML() (string, error) {
	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("rendering digest: %w", err)
	}
	return buf.String(), nil
}
