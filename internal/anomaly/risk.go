package anomaly

import (
	"github.com/cleared-dev/ledgercheck/internal/stats"
)

// Factor names, in the order they appear in Record.Factors.
const (
	FactorOutlier     = "outlier"
	FactorDuplicate   = "duplicate"
	FactorRoundNumber = "round_number"
	FactorBenford     = "benford"
	FactorHighAmount  = "high_amount"
	FactorTiming      = "timing"
	FactorNewVendor   = "new_vendor"
)

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// score fills the composite risk fields of a valid record whose detector
// signals are already set.
func score(r *Record, cfg Config) {
	benford := 0.0
	if r.BenfordDeviation != nil {
		benford = stats.Bounded(*r.BenfordDeviation, cfg.BenfordCriticalValue)
	}
	w := cfg.Weights
	if len(cfg.KnownVendors) == 0 {
		w.NewVendor = 0
	}
	signals := []struct {
		name   string
		weight float64
		signal float64
	}{
		{FactorOutlier, w.Outlier, r.AnomalyScore},
		{FactorDuplicate, w.Duplicate, flag(r.IsDuplicate)},
		{FactorRoundNumber, w.RoundNumber, flag(r.IsRoundNumber)},
		{FactorBenford, w.Benford, benford},
		{FactorHighAmount, w.HighAmount, flag(r.IsHighAmount)},
		{FactorTiming, w.Timing, flag(r.IsWeekend)},
		{FactorNewVendor, w.NewVendor, flag(r.IsNewVendor)},
	}

	total := cfg.totalWeight()
	var sum float64
	r.Factors = nil
	for _, s := range signals {
		c := s.weight * s.signal / total
		if c == 0 {
			continue
		}
		sum += c
		r.Factors = append(r.Factors, RiskFactor{Name: s.name, Signal: s.signal, Contribution: c})
	}

	risk := stats.Clamp01(sum)
	r.FraudRiskScore = &risk
	r.RiskLevel = riskLevel(risk)
	r.RequiresReview = risk >= mediumRiskScore
}

func riskLevel(score float64) string {
	switch {
	case score >= highRiskScore:
		return RiskHigh
	case score >= mediumRiskScore:
		return RiskMedium
	default:
		return RiskLow
	}
}
