package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Accepted input date layouts, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
}

// ParseDate parses ISO-8601 dates and timestamps and MM/DD/YYYY dates,
// returning midnight UTC of the calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// ParseAmount parses a currency amount, tolerating thousands separators,
// a leading currency symbol and accounting-style parentheses for negatives.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		negative = true
		clean = strings.TrimSuffix(strings.TrimPrefix(clean, "("), ")")
	}
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.Replace(clean, "$", "", 1)
	if clean == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// FlexAmount is a JSON amount given either as a number or as a string.
type FlexAmount string

// UnmarshalJSON accepts numbers, strings and null.
func (a *FlexAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = FlexAmount(s)
		return nil
	}
	*a = FlexAmount(data)
	return nil
}

// Record is a transaction as it arrives at the boundary (JSON bodies, JSON files).
type Record struct {
	Amount      FlexAmount        `json:"amount"`
	Date        string            `json:"date"`
	Description string            `json:"description,omitempty"`
	Vendor      string            `json:"vendor,omitempty"`
	Source      string            `json:"source,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Transaction converts r. Unparseable amounts or dates are left missing and
// their raw text kept so validation can report them per record.
func (r Record) Transaction() Transaction {
	t := Transaction{
		Description: r.Description,
		Vendor:      r.Vendor,
		Source:      r.Source,
		Metadata:    r.Metadata,
	}
	if raw := strings.TrimSpace(string(r.Amount)); raw != "" {
		if d, err := ParseAmount(raw); err == nil {
			t.Amount = decimal.NewNullDecimal(d)
		} else {
			t.RawAmount = raw
		}
	}
	if raw := strings.TrimSpace(r.Date); raw != "" {
		if d, err := ParseDate(raw); err == nil {
			t.Date = d
		} else {
			t.RawDate = raw
		}
	}
	return t
}

// Transactions converts a batch of boundary records.
func Transactions(records []Record) []Transaction {
	out := make([]Transaction, len(records))
	for i, r := range records {
		out[i] = r.Transaction()
	}
	return out
}
