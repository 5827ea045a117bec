package anomaly

import (
	"sort"

	"github.com/cleared-dev/ledgercheck/internal/model"
	"github.com/cleared-dev/ledgercheck/internal/money"
	"github.com/cleared-dev/ledgercheck/internal/stats"
	"github.com/cleared-dev/ledgercheck/internal/textsim"
)

// Group names for Benford results.
const (
	batchGroup    = "batch"
	noVendorGroup = "(no vendor)"
)

// BenfordResult is the leading-digit test for one group of records.
// ChiSquare and Conforms are nil when the group is too small to test.
type BenfordResult struct {
	Group         string     `json:"group"`
	Samples       int        `json:"samples"`
	ChiSquare     *float64   `json:"chi_square"`
	CriticalValue float64    `json:"critical_value"`
	Conforms      *bool      `json:"conforms"`
	Insufficient  bool       `json:"insufficient"`
	Observed      [9]int     `json:"observed"`
	Expected      [9]float64 `json:"expected"`
}

func benfordGroup(t model.Transaction, by string) string {
	if by == GroupByBatch {
		return batchGroup
	}
	if v := textsim.Normalize(t.Vendor); v != "" {
		return v
	}
	return noVendorGroup
}

// benfordGroups runs the test per group and copies each group's statistic onto
// its records. Zero amounts have no leading digit and are not counted.
func benfordGroups(txns []model.Transaction, valid []int, cfg Config, records []Record) []BenfordResult {
	members := make(map[string][]int)
	var names []string
	for _, i := range valid {
		g := benfordGroup(txns[i], cfg.BenfordGroupBy)
		if _, ok := members[g]; !ok {
			names = append(names, g)
		}
		members[g] = append(members[g], i)
	}
	sort.Strings(names)

	results := make([]BenfordResult, 0, len(names))
	for _, name := range names {
		res := BenfordResult{Group: name, CriticalValue: cfg.BenfordCriticalValue}
		for _, i := range members[name] {
			if d := money.LeadingDigit(txns[i].Amount.Decimal); d > 0 {
				res.Observed[d-1]++
				res.Samples++
			}
		}
		if res.Samples < cfg.BenfordMinSamples {
			res.Insufficient = true
			results = append(results, res)
			continue
		}
		chi, expected := stats.BenfordChiSquare(res.Observed)
		conforms := chi <= cfg.BenfordCriticalValue
		res.ChiSquare = &chi
		res.Conforms = &conforms
		res.Expected = expected
		for _, i := range members[name] {
			v := chi
			records[i].BenfordDeviation = &v
		}
		results = append(results, res)
	}
	return results
}
