package model

import (
	"fmt"
)

// Ledger names used in validation errors.
const (
	LedgerBank  = "bank"
	LedgerBook  = "book"
	LedgerBatch = "batch"
)

// ValidationError describes a single record that cannot take part in a computation.
type ValidationError struct {
	Ledger string `json:"ledger"`
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s[%d] %s: %s", e.Ledger, e.Index, e.Field, e.Reason)
}

// ConfigError rejects a call before any record is processed.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// ValidateTransaction checks that t carries an amount and a date.
// It returns nil when the record is usable.
func ValidateTransaction(t Transaction, ledger string, index int) *ValidationError {
	if !t.HasAmount() {
		reason := "amount is missing"
		if raw := t.RawAmount; raw != "" {
			reason = fmt.Sprintf("amount %q is not a number", raw)
		}
		return &ValidationError{Ledger: ledger, Index: index, Field: "amount", Reason: reason}
	}
	if !t.HasDate() {
		reason := "date is missing"
		if raw := t.RawDate; raw != "" {
			reason = fmt.Sprintf("date %q is not a recognised date", raw)
		}
		return &ValidationError{Ledger: ledger, Index: index, Field: "date", Reason: reason}
	}
	return nil
}

// Partition splits txns into indices of usable records and validation errors.
func Partition(txns []Transaction, ledger string) ([]int, []ValidationError) {
	valid := make([]int, 0, len(txns))
	var errs []ValidationError
	for i, t := range txns {
		if verr := ValidateTransaction(t, ledger, i); verr != nil {
			errs = append(errs, *verr)
			continue
		}
		valid = append(valid, i)
	}
	return valid, errs
}
