package anomaly

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgercheck/internal/model"
	"github.com/cleared-dev/ledgercheck/internal/money"
)

// Pair confidences.
const (
	sameDayConfidence = 0.9
	nearbyConfidence  = 0.7
)

// DuplicatePair links two records with near-equal amounts close together in time.
// First is always the lower index.
type DuplicatePair struct {
	First      int             `json:"first"`
	Second     int             `json:"second"`
	DayGap     int             `json:"day_gap"`
	AmountDiff decimal.Decimal `json:"amount_diff"`
	Confidence float64         `json:"confidence"`
}

// dated is a row keyed by its calendar day, counted from the Unix epoch.
type dated struct {
	row int
	day int64
}

const secondsPerDay = 24 * 60 * 60

// maxWindowDays caps the duplicate window so day arithmetic stays in range.
// It spans millions of years.
const maxWindowDays = int64(1) << 32

func unixDay(t time.Time) int64 {
	return model.DateOnly(t).Unix() / secondsPerDay
}

// findDuplicates pairs valid records whose signed amounts differ by at most the
// duplicate tolerance and whose dates lie within the window. Rows are bucketed
// by cents and each bucket is kept in date order so the scan stops as soon as
// the window is exceeded.
func findDuplicates(txns []model.Transaction, valid []int, cfg Config) []DuplicatePair {
	buckets := make(map[int64][]dated)
	var keys []int64
	for _, i := range valid {
		c := money.Cents(txns[i].Amount.Decimal)
		if _, ok := buckets[c]; !ok {
			keys = append(keys, c)
		}
		buckets[c] = append(buckets[c], dated{row: i, day: unixDay(txns[i].Date)})
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a] < keys[b] })
	for _, k := range keys {
		b := buckets[k]
		sort.Slice(b, func(x, y int) bool {
			if b[x].day != b[y].day {
				return b[x].day < b[y].day
			}
			return b[x].row < b[y].row
		})
	}

	window := min(int64(cfg.DuplicateWindowDays), maxWindowDays)
	// One extra bucket covers amounts that round apart but still sit inside the tolerance.
	span := money.ToleranceCents(cfg.DuplicateAmountTolerance) + 1

	pairs := []DuplicatePair{}
	consider := func(a, b dated) {
		ta, tb := txns[a.row], txns[b.row]
		if !money.WithinTolerance(ta.Amount.Decimal, tb.Amount.Decimal, cfg.DuplicateAmountTolerance) {
			return
		}
		first, second := a.row, b.row
		if first > second {
			first, second = second, first
		}
		gap := int(b.day - a.day)
		if gap < 0 {
			gap = -gap
		}
		conf := nearbyConfidence
		if gap == 0 {
			conf = sameDayConfidence
		}
		pairs = append(pairs, DuplicatePair{
			First:      first,
			Second:     second,
			DayGap:     gap,
			AmountDiff: txns[second].Amount.Decimal.Sub(txns[first].Amount.Decimal).Abs(),
			Confidence: conf,
		})
	}

	for ki, k := range keys {
		own := buckets[k]
		for p := range own {
			for q := p + 1; q < len(own); q++ {
				if own[q].day-own[p].day > window {
					break
				}
				consider(own[p], own[q])
			}
		}
		for kj := ki + 1; kj < len(keys) && keys[kj]-k <= span; kj++ {
			other := buckets[keys[kj]]
			for _, a := range own {
				lo := a.day - window
				start := sort.Search(len(other), func(x int) bool { return other[x].day >= lo })
				for _, b := range other[start:] {
					if b.day-a.day > window {
						break
					}
					consider(a, b)
				}
			}
		}
	}

	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].First != pairs[b].First {
			return pairs[a].First < pairs[b].First
		}
		return pairs[a].Second < pairs[b].Second
	})
	return pairs
}

// markDuplicates records every partner of each paired row and picks the
// nearest one (smallest day gap, then lowest index) as DuplicateOf.
func markDuplicates(pairs []DuplicatePair, records []Record) {
	best := make(map[int]int)
	link := func(row, partner, gap int) {
		r := &records[row]
		r.IsDuplicate = true
		r.Duplicates = append(r.Duplicates, partner)
		g, seen := best[row]
		if !seen || gap < g || (gap == g && partner < *r.DuplicateOf) {
			p := partner
			r.DuplicateOf = &p
			best[row] = gap
		}
	}
	for _, p := range pairs {
		link(p.First, p.Second, p.DayGap)
		link(p.Second, p.First, p.DayGap)
	}
	for row := range best {
		sort.Ints(records[row].Duplicates)
	}
}
