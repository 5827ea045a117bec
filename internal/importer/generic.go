package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/ledgercheck/internal/model"
)

// GenericParser reads a CSV with a header row. Columns are matched by name,
// case-insensitively; unknown columns land in Metadata.
type GenericParser struct{}

// Header aliases accepted for each field.
var genericColumns = map[string]string{
	"amount":       "amount",
	"value":        "amount",
	"date":         "date",
	"posted":       "date",
	"posting date": "date",
	"description":  "description",
	"memo":         "description",
	"vendor":       "vendor",
	"payee":        "vendor",
	"merchant":     "vendor",
	"source":       "source",
}

// Format returns the parser name.
func (p *GenericParser) Format() string { return FormatGeneric }

// Parse reads the header, then one transaction per row. A header without an
// amount or a date column is an error.
func (p *GenericParser) Parse(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []model.Transaction{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	fields := make([]string, len(header))
	seen := make(map[string]bool)
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if f, ok := genericColumns[name]; ok && !seen[f] {
			fields[i] = f
			seen[f] = true
			continue
		}
		fields[i] = "meta:" + strings.TrimSpace(h)
	}
	for _, required := range []string{"amount", "date"} {
		if !seen[required] {
			return nil, fmt.Errorf("CSV header has no %s column", required)
		}
	}

	txns := []model.Transaction{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		txns = append(txns, genericRow(fields, row))
	}
	return txns, nil
}

func genericRow(fields, row []string) model.Transaction {
	var rec model.Record
	for i, v := range row {
		if i >= len(fields) {
			break
		}
		switch f := fields[i]; f {
		case "amount":
			rec.Amount = model.FlexAmount(v)
		case "date":
			rec.Date = v
		case "description":
			rec.Description = strings.TrimSpace(v)
		case "vendor":
			rec.Vendor = strings.TrimSpace(v)
		case "source":
			rec.Source = strings.TrimSpace(v)
		default:
			if v == "" {
				continue
			}
			if rec.Metadata == nil {
				rec.Metadata = make(map[string]string)
			}
			rec.Metadata[strings.TrimPrefix(f, "meta:")] = v
		}
	}
	return rec.Transaction()
}
