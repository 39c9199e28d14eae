// Package analytics builds the dashboard snapshot from the full item and
// transaction sets. Everything here is a pure function of its inputs.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/spares/internal/model"
)

// MonthCost is one point of the yearly cost series.
type MonthCost struct {
	Month    string  `json:"month"`
	Added    float64 `json:"added"`
	Consumed float64 `json:"consumed"`
}

// UserActivity counts one user's transactions in the period.
type UserActivity struct {
	User         string `json:"user"`
	Transactions int    `json:"transactions"`
	Added        int    `json:"added"`
	Taken        int    `json:"taken"`
	Deleted      int    `json:"deleted"`
}

// Dashboard is the analytics snapshot for one period. Item counts, low
// stock and stock values describe the whole inventory; everything else is
// scoped to the period's month, except MonthlyCostSeries which spans its year.
type Dashboard struct {
	Period Period `json:"period"`

	TotalItems     int          `json:"totalItems"`
	LowStockItems  int          `json:"lowStockItems"`
	LowStockAlerts []model.Item `json:"lowStockAlerts"`

	TotalTransactions int     `json:"totalTransactions"`
	ItemsConsumed     int     `json:"itemsConsumed"`
	ItemsAdded        int     `json:"itemsAdded"`
	CostConsumed      float64 `json:"costConsumed"`
	CostAdded         float64 `json:"costAdded"`
	ActiveUsers       int     `json:"activeUsers"`

	TotalValueCritical   float64 `json:"totalValueCritical"`
	TotalValueConsumable float64 `json:"totalValueConsumable"`
	TotalValueAll        float64 `json:"totalValueAll"`

	MonthlyCostSeries  [12]MonthCost       `json:"monthlyCostSeries"`
	RecentTransactions []model.Transaction `json:"recentTransactions"`
	UserActivity       []UserActivity      `json:"userActivity"`
}

// Compute aggregates items and txns for period p. The inputs are not modified.
func Compute(items []model.Item, txns []model.Transaction, p Period) Dashboard {
	idx := NewItemIndex(items)
	d := Dashboard{
		Period:             p,
		TotalItems:         len(items),
		LowStockAlerts:     LowStock(items),
		RecentTransactions: []model.Transaction{},
		UserActivity:       []UserActivity{},
	}
	d.LowStockItems = len(d.LowStockAlerts)

	var costAdded, costConsumed decimal.Decimal
	var seriesAdded, seriesConsumed [12]decimal.Decimal
	users := map[string]*UserActivity{}

	for i := range txns {
		t := &txns[i]
		value := unitCost(idx.Lookup(t)).Mul(decimal.NewFromInt(int64(t.Quantity)))

		if p.InYear(t.Timestamp) {
			if m := p.monthOf(t.Timestamp); m >= 0 && m <= 11 {
				switch t.Type {
				case model.TransactionAdded:
					seriesAdded[m] = seriesAdded[m].Add(value)
				case model.TransactionTaken:
					seriesConsumed[m] = seriesConsumed[m].Add(value)
				}
			}
		}

		if !p.Contains(t.Timestamp) {
			continue
		}

		d.TotalTransactions++
		switch t.Type {
		case model.TransactionAdded:
			d.ItemsAdded += t.Quantity
			costAdded = costAdded.Add(value)
		case model.TransactionTaken:
			d.ItemsConsumed += t.Quantity
			costConsumed = costConsumed.Add(value)
		}

		if t.User != "" {
			ua, ok := users[t.User]
			if !ok {
				ua = &UserActivity{User: t.User}
				users[t.User] = ua
			}
			ua.Transactions++
			switch t.Type {
			case model.TransactionAdded:
				ua.Added++
			case model.TransactionTaken:
				ua.Taken++
			case model.TransactionDeleted:
				ua.Deleted++
			}
		}

		d.RecentTransactions = append(d.RecentTransactions, ResolveDisplayFields(*t, idx))
	}

	d.CostAdded = money(costAdded)
	d.CostConsumed = money(costConsumed)
	d.ActiveUsers = len(users)

	for m := range d.MonthlyCostSeries {
		d.MonthlyCostSeries[m] = MonthCost{
			Month:    time.Month(m + 1).String()[:3],
			Added:    money(seriesAdded[m]),
			Consumed: money(seriesConsumed[m]),
		}
	}

	sort.SliceStable(d.RecentTransactions, func(i, j int) bool {
		a, b := d.RecentTransactions[i], d.RecentTransactions[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID > b.ID
	})

	for _, ua := range users {
		d.UserActivity = append(d.UserActivity, *ua)
	}
	sort.Slice(d.UserActivity, func(i, j int) bool {
		return d.UserActivity[i].User < d.UserActivity[j].User
	})

	critical, consumable := StockValue(items)
	d.TotalValueCritical = money(critical)
	d.TotalValueConsumable = money(consumable)
	d.TotalValueAll = money(critical.Add(consumable))

	return d
}

// LowStock returns the items at or below their minimum quantity, emptiest first.
func LowStock(items []model.Item) []model.Item {
	low := []model.Item{}
	for _, item := range items {
		if item.IsLowStock() {
			low = append(low, item)
		}
	}
	sort.SliceStable(low, func(i, j int) bool {
		if low[i].Quantity != low[j].Quantity {
			return low[i].Quantity < low[j].Quantity
		}
		return low[i].Name < low[j].Name
	})
	return low
}

// StockValue sums cost times quantity over all items, split by category.
func StockValue(items []model.Item) (critical, consumable decimal.Decimal) {
	for i := range items {
		v := unitCost(&items[i]).Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		if model.NormalizeCategory(items[i].Category) == model.CategoryCritical {
			critical = critical.Add(v)
		} else {
			consumable = consumable.Add(v)
		}
	}
	return critical, consumable
}

// unitCost is zero for a missing item or one without a cost.
func unitCost(item *model.Item) decimal.Decimal {
	if item == nil || item.Cost == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*item.Cost)
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
