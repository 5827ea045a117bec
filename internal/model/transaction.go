package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one ledger line handed to the matcher or the scorer.
// A missing amount has Amount.Valid == false; a missing date is the zero time.
type Transaction struct {
	Amount      decimal.NullDecimal // negative = money out, positive = money in
	Date        time.Time           // calendar date, UTC midnight
	Description string
	Vendor      string
	Source      string
	Metadata    map[string]string

	// RawAmount and RawDate keep the source text of a field that failed to parse.
	RawAmount string
	RawDate   string
}

// NewTransaction builds a valid Transaction from an amount and a date.
func NewTransaction(amount decimal.Decimal, date time.Time, description string) Transaction {
	return Transaction{
		Amount:      decimal.NewNullDecimal(amount),
		Date:        DateOnly(date),
		Description: description,
	}
}

// HasAmount reports whether the amount is present.
func (t Transaction) HasAmount() bool { return t.Amount.Valid }

// HasDate reports whether the date is present.
func (t Transaction) HasDate() bool { return !t.Date.IsZero() }

// Text returns the vendor and description joined for similarity scoring.
func (t Transaction) Text() string {
	switch {
	case t.Vendor == "":
		return t.Description
	case t.Description == "":
		return t.Vendor
	case strings.EqualFold(t.Vendor, t.Description):
		return t.Description
	default:
		return t.Vendor + " " + t.Description
	}
}

// DaysBetween returns the absolute number of calendar days between a and b.
func DaysBetween(a, b time.Time) int {
	d := DateOnly(a).Sub(DateOnly(b)).Hours() / 24
	if d < 0 {
		d = -d
	}
	return int(d + 0.5)
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
