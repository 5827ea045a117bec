// Package anomaly annotates a transaction batch with fraud indicators.
//
// Every record gets independent signals (robust outlier score, duplicate
// partners, round-number and high-amount flags, weekend timing, Benford
// deviation of its group, vendors missing from a known-vendor list) and a
// weighted composite risk score in [0,1].
// Records without an amount or a date stay in the output, index-aligned with
// the input, flagged InsufficientData and without a score.
package anomaly

import (
	"time"

	"github.com/cleared-dev/ledgercheck/internal/model"
	"github.com/cleared-dev/ledgercheck/internal/money"
	"github.com/cleared-dev/ledgercheck/internal/textsim"
)

// Risk levels.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Level cut-offs on the composite score.
const (
	mediumRiskScore = 0.4
	highRiskScore   = 0.7
)

// RiskFactor is one weighted contribution to the composite score.
type RiskFactor struct {
	Name         string  `json:"name"`
	Signal       float64 `json:"signal"`
	Contribution float64 `json:"contribution"`
}

// Record annotates the input transaction at Index.
type Record struct {
	Index            int                    `json:"index"`
	InsufficientData bool                   `json:"insufficient_data"`
	Error            *model.ValidationError `json:"error,omitempty"`

	ZScore       float64 `json:"z_score"`
	AnomalyScore float64 `json:"anomaly_score"`
	IsAnomaly    bool    `json:"is_anomaly"`

	IsDuplicate bool  `json:"is_duplicate"`
	DuplicateOf *int  `json:"duplicate_of,omitempty"`
	Duplicates  []int `json:"duplicates,omitempty"`

	IsRoundNumber          bool     `json:"is_round_number"`
	SuspiciousRoundPattern bool     `json:"suspicious_round_pattern"`
	IsWeekend              bool     `json:"is_weekend"`
	IsHighAmount           bool     `json:"is_high_amount"`
	IsNewVendor            bool     `json:"is_new_vendor"`
	BenfordDeviation       *float64 `json:"benford_deviation"`

	FraudRiskScore *float64     `json:"fraud_risk_score"`
	RiskLevel      string       `json:"risk_level,omitempty"`
	RequiresReview bool         `json:"requires_review"`
	Factors        []RiskFactor `json:"factors,omitempty"`
}

// Summary counts flagged records.
type Summary struct {
	Total          int `json:"total"`
	Valid          int `json:"valid"`
	Invalid        int `json:"invalid"`
	Anomalies      int `json:"anomalies"`
	Duplicates     int `json:"duplicates"`
	DuplicatePairs int `json:"duplicate_pairs"`
	RoundNumbers   int `json:"round_numbers"`
	Weekend        int `json:"weekend"`
	HighAmount     int `json:"high_amount"`
	NewVendors     int `json:"new_vendors"`
	HighRisk       int `json:"high_risk"`
	RequiresReview int `json:"requires_review"`
}

// Report is the full outcome of Analyze.
type Report struct {
	Records    []Record                `json:"records"`
	Duplicates []DuplicatePair         `json:"duplicates"`
	Benford    []BenfordResult         `json:"benford"`
	Errors     []model.ValidationError `json:"errors"`
	Summary    Summary                 `json:"summary"`
}

// Detect returns one Record per transaction, in input order.
func Detect(txns []model.Transaction, cfg Config) ([]Record, error) {
	report, err := Analyze(txns, cfg)
	if err != nil {
		return nil, err
	}
	return report.Records, nil
}

// Analyze runs every detector over txns. The slice is not modified.
func Analyze(txns []model.Transaction, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	valid, errs := model.Partition(txns, model.LedgerBatch)
	records := make([]Record, len(txns))
	for i := range records {
		records[i].Index = i
	}
	for i := range errs {
		e := errs[i]
		records[e.Index].InsufficientData = true
		records[e.Index].Error = &e
	}

	markOutliers(txns, valid, cfg, records)
	pairs := findDuplicates(txns, valid, cfg)
	markDuplicates(pairs, records)
	markRoundNumbers(txns, valid, cfg, records)
	markNewVendors(txns, valid, cfg, records)
	benford := benfordGroups(txns, valid, cfg, records)

	for _, i := range valid {
		amount := txns[i].Amount.Decimal
		if cfg.HighAmountThreshold.IsPositive() && amount.Abs().GreaterThanOrEqual(cfg.HighAmountThreshold) {
			records[i].IsHighAmount = true
		}
		wd := txns[i].Date.Weekday()
		records[i].IsWeekend = wd == time.Saturday || wd == time.Sunday
		score(&records[i], cfg)
	}

	if errs == nil {
		errs = []model.ValidationError{}
	}
	report := &Report{
		Records:    records,
		Duplicates: pairs,
		Benford:    benford,
		Errors:     errs,
	}
	report.Summary = summarize(records, len(valid), len(pairs))
	return report, nil
}

func markRoundNumbers(txns []model.Transaction, valid []int, cfg Config, records []Record) {
	type tally struct{ round, total int }
	byVendor := make(map[string]*tally)
	for _, i := range valid {
		round := money.IsMultiple(txns[i].Amount.Decimal, cfg.RoundNumberMultiple)
		records[i].IsRoundNumber = round
		v := textsim.Normalize(txns[i].Vendor)
		if v == "" {
			continue
		}
		t := byVendor[v]
		if t == nil {
			t = &tally{}
			byVendor[v] = t
		}
		t.total++
		if round {
			t.round++
		}
	}
	for _, i := range valid {
		t := byVendor[textsim.Normalize(txns[i].Vendor)]
		if t == nil {
			continue
		}
		records[i].SuspiciousRoundPattern = float64(t.round)/float64(t.total) > cfg.VendorRoundRatio
	}
}

// markNewVendors flags records whose vendor is absent from cfg.KnownVendors.
// Records without a vendor, and every record when the list is empty, stay unflagged.
func markNewVendors(txns []model.Transaction, valid []int, cfg Config, records []Record) {
	if len(cfg.KnownVendors) == 0 {
		return
	}
	known := make(map[string]bool, len(cfg.KnownVendors))
	for _, v := range cfg.KnownVendors {
		known[textsim.Normalize(v)] = true
	}
	for _, i := range valid {
		v := textsim.Normalize(txns[i].Vendor)
		records[i].IsNewVendor = v != "" && !known[v]
	}
}

func summarize(records []Record, valid, pairs int) Summary {
	s := Summary{Total: len(records), Valid: valid, Invalid: len(records) - valid, DuplicatePairs: pairs}
	for _, r := range records {
		if r.IsAnomaly {
			s.Anomalies++
		}
		if r.IsDuplicate {
			s.Duplicates++
		}
		if r.IsRoundNumber {
			s.RoundNumbers++
		}
		if r.IsWeekend {
			s.Weekend++
		}
		if r.IsHighAmount {
			s.HighAmount++
		}
		if r.IsNewVendor {
			s.NewVendors++
		}
		if r.RiskLevel == RiskHigh {
			s.HighRisk++
		}
		if r.RequiresReview {
			s.RequiresReview++
		}
	}
	return s
}
