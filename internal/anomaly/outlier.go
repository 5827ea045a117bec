package anomaly

import (
	"math"

	"github.com/cleared-dev/ledgercheck/internal/model"
	"github.com/cleared-dev/ledgercheck/internal/money"
	"github.com/cleared-dev/ledgercheck/internal/stats"
)

// markOutliers scores the magnitude of each valid amount against the batch.
// AnomalyScore reaches 0.5 exactly at the z-score threshold.
func markOutliers(txns []model.Transaction, valid []int, cfg Config, records []Record) {
	xs := make([]float64, len(valid))
	for j, i := range valid {
		xs[j] = money.Float(txns[i].Amount.Decimal.Abs())
	}
	z := stats.ModifiedZScores(xs)
	for j, i := range valid {
		records[i].ZScore = z[j]
		records[i].AnomalyScore = stats.Bounded(z[j], cfg.ZScoreThreshold)
		records[i].IsAnomaly = math.Abs(z[j]) > cfg.ZScoreThreshold
	}
}
