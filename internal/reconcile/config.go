package reconcile

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgercheck/internal/model"
	"github.com/cleared-dev/ledgercheck/internal/money"
)

// Weights balances the three similarity factors. They are normalised by their sum.
type Weights struct {
	Amount float64 `yaml:"amount" json:"amount"`
	Date   float64 `yaml:"date" json:"date"`
	Text   float64 `yaml:"text" json:"text"`
}

// Config controls candidate generation and acceptance.
type Config struct {
	AmountTolerance   decimal.Decimal `yaml:"amount_tolerance" json:"amount_tolerance"`
	DateToleranceDays int             `yaml:"date_tolerance_days" json:"date_tolerance_days"`
	MinScore          float64         `yaml:"min_score" json:"min_score"`
	Weights           Weights         `yaml:"weights" json:"weights"`
}

// DefaultConfig returns one-cent, three-day tolerances and a 0.8 acceptance score.
func DefaultConfig() Config {
	return Config{
		AmountTolerance:   decimal.New(1, -2),
		DateToleranceDays: 3,
		MinScore:          0.8,
		Weights: Weights{
			Amount: 0.4,
			Date:   0.3,
			Text:   0.3,
		},
	}
}

// Validate rejects tolerances and weights the matcher cannot work with.
func (c Config) Validate() error {
	if c.AmountTolerance.IsNegative() {
		return &model.ConfigError{Field: "amount_tolerance", Reason: "must not be negative"}
	}
	if c.AmountTolerance.GreaterThan(money.MaxTolerance) {
		return &model.ConfigError{Field: "amount_tolerance", Reason: "must not exceed " + money.MaxTolerance.String()}
	}
	if c.DateToleranceDays < 0 {
		return &model.ConfigError{Field: "date_tolerance_days", Reason: "must not be negative"}
	}
	if math.IsNaN(c.MinScore) || c.MinScore < 0 || c.MinScore > 1 {
		return &model.ConfigError{Field: "min_score", Reason: "must be between 0 and 1"}
	}
	return c.Weights.validate("weights")
}

func (w Weights) validate(field string) error {
	named := []struct {
		name string
		v    float64
	}{{"amount", w.Amount}, {"date", w.Date}, {"text", w.Text}}
	for _, n := range named {
		if math.IsNaN(n.v) || math.IsInf(n.v, 0) || n.v < 0 {
			return &model.ConfigError{Field: field + "." + n.name, Reason: "must be a non-negative number"}
		}
	}
	if w.Amount+w.Date+w.Text <= 0 {
		return &model.ConfigError{Field: field, Reason: "at least one weight must be positive"}
	}
	return nil
}

// combine blends the factors. When hasText is false the text weight is dropped,
// unless that would leave nothing to weigh.
func (w Weights) combine(f Factors, hasText bool) float64 {
	wt := w.Text
	if !hasText && w.Amount+w.Date > 0 {
		wt = 0
	}
	total := w.Amount + w.Date + wt
	return (w.Amount*f.Amount + w.Date*f.Date + wt*f.Text) / total
}
