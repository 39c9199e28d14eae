package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erazemk/spares/internal/model"
)

// Numeric holds a number as the client sent it. JSON numbers and JSON strings
// are both accepted so spreadsheet and form input share one parser.
type Numeric string

// UnmarshalJSON accepts 7, "7" and null.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*n = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Numeric(s)
	default:
		*n = Numeric(data)
	}
	return nil
}

// ParseCount parses a non-negative whole number. "7", "7.0" and " 7 " are
// accepted; "7.5", "-1" and "" are not.
func ParseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("must not be negative")
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return 0, fmt.Errorf("%q is too large", s)
	}
	return int(d.IntPart()), nil
}

// parseCost parses an optional non-negative unit cost. Empty means no cost.
func parseCost(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("must not be negative")
	}
	f, _ := d.Round(4).Float64()
	return &f, nil
}

// ItemInput describes a new item, from the API or a spreadsheet row.
type ItemInput struct {
	Name            string  `json:"name"`
	Make            string  `json:"make"`
	Model           string  `json:"model"`
	Specification   string  `json:"specification"`
	Rack            string  `json:"rack"`
	Bin             string  `json:"bin"`
	Quantity        Numeric `json:"quantity"`
	MinimumQuantity Numeric `json:"minimumQuantity"`
	Cost            Numeric `json:"cost"`
	Category        string  `json:"category"`
}

// toItem validates the input and returns every problem found.
func (in *ItemInput) toItem() (*model.Item, []*ValidationError) {
	var errs []*ValidationError

	required := []struct{ field, value string }{
		{"name", in.Name},
		{"make", in.Make},
		{"model", in.Model},
		{"specification", in.Specification},
		{"rack", in.Rack},
		{"bin", in.Bin},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, invalid(r.field, "is required"))
		}
	}

	qty, err := ParseCount(string(in.Quantity))
	if err != nil {
		errs = append(errs, invalid("quantity", "%v", err))
	}
	minQty, err := ParseCount(string(in.MinimumQuantity))
	if err != nil {
		errs = append(errs, invalid("minimumQuantity", "%v", err))
	}
	cost, err := parseCost(string(in.Cost))
	if err != nil {
		errs = append(errs, invalid("cost", "%v", err))
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &model.Item{
		Name:            strings.TrimSpace(in.Name),
		Make:            strings.TrimSpace(in.Make),
		Model:           strings.TrimSpace(in.Model),
		Specification:   strings.TrimSpace(in.Specification),
		Rack:            strings.TrimSpace(in.Rack),
		Bin:             strings.TrimSpace(in.Bin),
		Quantity:        qty,
		MinimumQuantity: minQty,
		Cost:            cost,
		Category:        model.NormalizeCategory(in.Category),
	}, nil
}

// ItemChanges is a partial update. Nil fields are left alone.
type ItemChanges struct {
	Name            *string  `json:"name"`
	Make            *string  `json:"make"`
	Model           *string  `json:"model"`
	Specification   *string  `json:"specification"`
	Rack            *string  `json:"rack"`
	Bin             *string  `json:"bin"`
	Quantity        *Numeric `json:"quantity"`
	MinimumQuantity *Numeric `json:"minimumQuantity"`
	Cost            *Numeric `json:"cost"`
	Category        *string  `json:"category"`

	// Recorded on the transaction when the quantity changes.
	Purpose string `json:"purpose"`
	Remarks string `json:"remarks"`
}

// apply validates the changes and writes them onto item. item is untouched
// when an error is returned.
func (ch *ItemChanges) apply(item *model.Item) error {
	next := *item

	text := []struct {
		field string
		value *string
		dst   *string
	}{
		{"name", ch.Name, &next.Name},
		{"make", ch.Make, &next.Make},
		{"model", ch.Model, &next.Model},
		{"specification", ch.Specification, &next.Specification},
		{"rack", ch.Rack, &next.Rack},
		{"bin", ch.Bin, &next.Bin},
	}
	for _, t := range text {
		if t.value == nil {
			continue
		}
		v := strings.TrimSpace(*t.value)
		if v == "" {
			return invalid(t.field, "must not be empty")
		}
		*t.dst = v
	}

	if ch.Quantity != nil {
		qty, err := ParseCount(string(*ch.Quantity))
		if err != nil {
			return invalid("quantity", "%v", err)
		}
		next.Quantity = qty
	}
	if ch.MinimumQuantity != nil {
		minQty, err := ParseCount(string(*ch.MinimumQuantity))
		if err != nil {
			return invalid("minimumQuantity", "%v", err)
		}
		next.MinimumQuantity = minQty
	}
	if ch.Cost != nil {
		cost, err := parseCost(string(*ch.Cost))
		if err != nil {
			return invalid("cost", "%v", err)
		}
		next.Cost = cost
	}
	if ch.Category != nil {
		next.Category = model.NormalizeCategory(*ch.Category)
	}

	*item = next
	return nil
}

// TransactionEdit is an admin correction to a ledger entry.
type TransactionEdit struct {
	Quantity *Numeric `json:"quantity"`
	Purpose  *string  `json:"purpose"`
	Remarks  *string  `json:"remarks"`
}

// RequestInput opens a new request.
type RequestInput struct {
	ItemID   int64   `json:"itemId"`
	ItemName string  `json:"itemName"`
	Quantity Numeric `json:"quantity"`
	Purpose  string  `json:"purpose"`
	Remarks  string  `json:"remarks"`
}
