package reconcile

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgercheck/internal/model"
	"github.com/cleared-dev/ledgercheck/internal/textsim"
)

// SuggestConfig tunes Suggest. Unlike Reconcile it has no hard tolerances:
// amounts are compared relative to their size and dates on a sliding scale.
type SuggestConfig struct {
	Limit         int     `yaml:"limit" json:"limit"`
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`
	DateScaleDays int     `yaml:"date_scale_days" json:"date_scale_days"`
	Weights       Weights `yaml:"weights" json:"weights"`
}

// DefaultSuggestConfig returns the top five suggestions at confidence 0.5 or more.
func DefaultSuggestConfig() SuggestConfig {
	return SuggestConfig{
		Limit:         5,
		MinConfidence: 0.5,
		DateScaleDays: 30,
		Weights: Weights{
			Amount: 0.3,
			Date:   0.2,
			Text:   0.5,
		},
	}
}

// Validate rejects unusable suggestion settings.
func (c SuggestConfig) Validate() error {
	if c.Limit < 1 {
		return &model.ConfigError{Field: "limit", Reason: "must be at least 1"}
	}
	if math.IsNaN(c.MinConfidence) || c.MinConfidence < 0 || c.MinConfidence > 1 {
		return &model.ConfigError{Field: "min_confidence", Reason: "must be between 0 and 1"}
	}
	if c.DateScaleDays < 1 {
		return &model.ConfigError{Field: "date_scale_days", Reason: "must be at least 1"}
	}
	return c.Weights.validate("weights")
}

// Suggestion is a possible counterpart for an unmatched transaction.
type Suggestion struct {
	Index      int     `json:"index"`
	Confidence float64 `json:"confidence"`
	Factors    Factors `json:"factors"`
}

// Suggest ranks pool entries as possible counterparts of txn, best first, for
// manual review of records Reconcile left unmatched. Invalid pool entries are skipped.
func Suggest(txn model.Transaction, pool []model.Transaction, cfg SuggestConfig) ([]Suggestion, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if verr := model.ValidateTransaction(txn, model.LedgerBank, 0); verr != nil {
		return nil, verr
	}

	out := make([]Suggestion, 0)
	for i, p := range pool {
		if model.ValidateTransaction(p, model.LedgerBook, i) != nil {
			continue
		}
		f := Factors{
			Amount: relativeCloseness(txn.Amount.Decimal, p.Amount.Decimal),
			Date:   1 - math.Min(float64(model.DaysBetween(txn.Date, p.Date))/float64(cfg.DateScaleDays), 1),
		}
		a, b := txn.Text(), p.Text()
		hasText := textsim.Normalize(a) != "" || textsim.Normalize(b) != ""
		if hasText {
			f.Text = textsim.Similarity(a, b)
		}
		conf := cfg.Weights.combine(f, hasText)
		if conf < cfg.MinConfidence {
			continue
		}
		out = append(out, Suggestion{Index: i, Confidence: conf, Factors: f})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Index < out[j].Index
	})
	if len(out) > cfg.Limit {
		out = out[:cfg.Limit]
	}
	return out, nil
}

// relativeCloseness is 1 - |a-b|/max(|a|,|b|), floored at 0.
func relativeCloseness(a, b decimal.Decimal) float64 {
	scale := decimal.Max(a.Abs(), b.Abs())
	if scale.IsZero() {
		return 1
	}
	ratio, _ := a.Sub(b).Abs().Div(scale).Float64()
	return math.Max(0, 1-ratio)
}
