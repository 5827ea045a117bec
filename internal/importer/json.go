package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cleared-dev/ledgercheck/internal/model"
)

// JSONParser reads either a bare array of records or an object with a
// "transactions" array.
type JSONParser struct{}

// Format returns the parser name.
func (p *JSONParser) Format() string { return FormatJSON }

// Parse decodes the records and converts them to transactions.
func (p *JSONParser) Parse(r io.Reader) ([]model.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading JSON: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []model.Transaction{}, nil
	}

	var records []model.Record
	if data[0] == '[' {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decoding JSON records: %w", err)
		}
	} else {
		var doc struct {
			Transactions []model.Record `json:"transactions"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding JSON records: %w", err)
		}
		records = doc.Transactions
	}
	return model.Transactions(records), nil
}
