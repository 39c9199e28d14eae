package analytics

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period selects one calendar month. Month is 0-indexed (0 = January).
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`

	loc *time.Location
}

// ResolvePeriod parses the month (0-11) and year query values, falling back
// to now's month and year for anything missing or not an integer. The
// returned period buckets timestamps in now's location.
func ResolvePeriod(month, year string, now time.Time) Period {
	p := Period{Month: int(now.Month()) - 1, Year: now.Year(), loc: now.Location()}

	if m, err := strconv.Atoi(strings.TrimSpace(month)); err == nil && m >= 0 && m <= 11 {
		p.Month = m
	}
	if y, err := strconv.Atoi(strings.TrimSpace(year)); err == nil && y > 0 {
		p.Year = y
	}
	return p
}

// NewPeriod returns the period for a 0-indexed month in loc (UTC when nil).
func NewPeriod(month, year int, loc *time.Location) Period {
	return Period{Month: month, Year: year, loc: loc}
}

func (p Period) location() *time.Location {
	if p.loc == nil {
		return time.UTC
	}
	return p.loc
}

// Start returns the first instant of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month+1), 1, 0, 0, 0, 0, p.location())
}

// Contains reports whether t falls in the period's month.
func (p Period) Contains(t time.Time) bool {
	local := t.In(p.location())
	return local.Year() == p.Year && int(local.Month())-1 == p.Month
}

// InYear reports whether t falls anywhere in the period's year.
func (p Period) InYear(t time.Time) bool {
	return t.In(p.location()).Year() == p.Year
}

// monthOf returns t's 0-indexed month, or -1 for a timestamp that cannot be
// bucketed.
func (p Period) monthOf(t time.Time) int {
	if t.IsZero() {
		return -1
	}
	return int(t.In(p.location()).Month()) - 1
}

// Label formats the period as "March 2024".
func (p Period) Label() string {
	return fmt.Sprintf("%s %d", time.Month(p.Month+1), p.Year)
}
