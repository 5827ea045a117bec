package anomaly

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgercheck/internal/model"
	"github.com/cleared-dev/ledgercheck/internal/money"
	"github.com/cleared-dev/ledgercheck/internal/stats"
)

// Benford grouping modes.
const (
	GroupByBatch  = "batch"
	GroupByVendor = "vendor"
)

// Weights balances the signals in the composite fraud risk score.
type Weights struct {
	Outlier     float64 `yaml:"outlier" json:"outlier"`
	Duplicate   float64 `yaml:"duplicate" json:"duplicate"`
	RoundNumber float64 `yaml:"round_number" json:"round_number"`
	Benford     float64 `yaml:"benford" json:"benford"`
	HighAmount  float64 `yaml:"high_amount" json:"high_amount"`
	Timing      float64 `yaml:"timing" json:"timing"`
	NewVendor   float64 `yaml:"new_vendor" json:"new_vendor"` // counts only when KnownVendors is set
}

// Config controls every detector and the composite score.
type Config struct {
	DuplicateWindowDays      int             `yaml:"duplicate_window_days" json:"duplicate_window_days"`
	DuplicateAmountTolerance decimal.Decimal `yaml:"duplicate_amount_tolerance" json:"duplicate_amount_tolerance"`
	RoundNumberMultiple      decimal.Decimal `yaml:"round_number_multiple" json:"round_number_multiple"`
	VendorRoundRatio         float64         `yaml:"vendor_round_ratio" json:"vendor_round_ratio"`
	ZScoreThreshold          float64         `yaml:"z_score_threshold" json:"z_score_threshold"`
	BenfordMinSamples        int             `yaml:"benford_min_samples" json:"benford_min_samples"`
	BenfordGroupBy           string          `yaml:"benford_group_by" json:"benford_group_by"`
	BenfordCriticalValue     float64         `yaml:"benford_critical_value" json:"benford_critical_value"`
	HighAmountThreshold      decimal.Decimal `yaml:"high_amount_threshold" json:"high_amount_threshold"` // zero disables
	KnownVendors             []string        `yaml:"known_vendors,omitempty" json:"known_vendors,omitempty"`
	Weights                  Weights         `yaml:"weights" json:"weights"`
}

// totalWeight sums the weights of the factors that can fire.
func (c Config) totalWeight() float64 {
	w := c.Weights
	total := w.Outlier + w.Duplicate + w.RoundNumber + w.Benford + w.HighAmount + w.Timing
	if len(c.KnownVendors) > 0 {
		total += w.NewVendor
	}
	return total
}

// DefaultConfig returns the stock detector settings.
func DefaultConfig() Config {
	return Config{
		DuplicateWindowDays:      3,
		DuplicateAmountTolerance: decimal.New(1, -2),
		RoundNumberMultiple:      decimal.NewFromInt(100),
		VendorRoundRatio:         0.3,
		ZScoreThreshold:          3.0,
		BenfordMinSamples:        30,
		BenfordGroupBy:           GroupByBatch,
		BenfordCriticalValue:     stats.BenfordCritical,
		HighAmountThreshold:      decimal.NewFromInt(10000),
		Weights: Weights{
			Outlier:     0.25,
			Duplicate:   0.3,
			RoundNumber: 0.15,
			Benford:     0.1,
			HighAmount:  0.1,
			Timing:      0.1,
			NewVendor:   0.1,
		},
	}
}

// Validate rejects settings the detectors cannot work with.
func (c Config) Validate() error {
	switch {
	case c.DuplicateWindowDays < 0:
		return &model.ConfigError{Field: "duplicate_window_days", Reason: "must not be negative"}
	case c.DuplicateAmountTolerance.IsNegative():
		return &model.ConfigError{Field: "duplicate_amount_tolerance", Reason: "must not be negative"}
	case c.DuplicateAmountTolerance.GreaterThan(money.MaxTolerance):
		return &model.ConfigError{Field: "duplicate_amount_tolerance", Reason: "must not exceed " + money.MaxTolerance.String()}
	case !c.RoundNumberMultiple.IsPositive():
		return &model.ConfigError{Field: "round_number_multiple", Reason: "must be positive"}
	case badFraction(c.VendorRoundRatio):
		return &model.ConfigError{Field: "vendor_round_ratio", Reason: "must be between 0 and 1"}
	case math.IsNaN(c.ZScoreThreshold) || c.ZScoreThreshold <= 0:
		return &model.ConfigError{Field: "z_score_threshold", Reason: "must be positive"}
	case c.BenfordMinSamples < 1:
		return &model.ConfigError{Field: "benford_min_samples", Reason: "must be at least 1"}
	case c.BenfordGroupBy != GroupByBatch && c.BenfordGroupBy != GroupByVendor:
		return &model.ConfigError{Field: "benford_group_by", Reason: `must be "batch" or "vendor"`}
	case math.IsNaN(c.BenfordCriticalValue) || c.BenfordCriticalValue <= 0:
		return &model.ConfigError{Field: "benford_critical_value", Reason: "must be positive"}
	case c.HighAmountThreshold.IsNegative():
		return &model.ConfigError{Field: "high_amount_threshold", Reason: "must not be negative"}
	}

	named := []struct {
		name string
		v    float64
	}{
		{"outlier", c.Weights.Outlier},
		{"duplicate", c.Weights.Duplicate},
		{"round_number", c.Weights.RoundNumber},
		{"benford", c.Weights.Benford},
		{"high_amount", c.Weights.HighAmount},
		{"timing", c.Weights.Timing},
		{"new_vendor", c.Weights.NewVendor},
	}
	for _, n := range named {
		if math.IsNaN(n.v) || math.IsInf(n.v, 0) || n.v < 0 {
			return &model.ConfigError{Field: "weights." + n.name, Reason: "must be a non-negative number"}
		}
	}
	if c.totalWeight() <= 0 {
		return &model.ConfigError{Field: "weights", Reason: "at least one weight must be positive"}
	}
	return nil
}

func badFraction(v float64) bool {
	return math.IsNaN(v) || v < 0 || v > 1
}
