package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/ledgercheck/internal/model"
)

// Format names.
const (
	FormatChase   = "chase"
	FormatGeneric = "generic"
	FormatJSON    = "json"
)

// ChaseParser parses Chase bank checking CSV exports.
type ChaseParser struct{}

const (
	chaseNumFields = 7
	chaseColDetail = 0
	chaseColDate   = 1
	chaseColDesc   = 2
	chaseColAmount = 3
	chaseColType   = 4
	chaseColCheck  = 6
)

// Format returns the parser name.
func (p *ChaseParser) Format() string { return FormatChase }

// Parse reads a Chase CSV. The header row is skipped.
func (p *ChaseParser) Parse(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}

	txns := []model.Transaction{}
	if len(records) <= 1 {
		return txns, nil
	}
	for _, rec := range records[1:] {
		txns = append(txns, parseChaseRow(rec))
	}
	return txns, nil
}

func parseChaseRow(rec []string) model.Transaction {
	desc := strings.TrimSpace(rec[chaseColDesc])
	meta := map[string]string{
		"details": rec[chaseColDetail],
		"type":    rec[chaseColType],
	}
	if check := strings.TrimSpace(rec[chaseColCheck]); check != "" {
		meta["check"] = check
	}
	r := model.Record{
		Amount:      model.FlexAmount(rec[chaseColAmount]),
		Date:        rec[chaseColDate],
		Description: desc,
		Metadata:    meta,
	}
	t := r.Transaction()
	if t.HasDate() {
		meta["reference"] = makeChaseRef(t, desc)
	}
	return t
}

// makeChaseRef creates a reference like chase_20250103_GITHUB.
func makeChaseRef(t model.Transaction, desc string) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("chase_%s_%s", t.Date.Format("20060102"), prefix)
}
