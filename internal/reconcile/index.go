package reconcile

import (
	"sort"

	"github.com/cleared-dev/ledgercheck/internal/model"
	"github.com/cleared-dev/ledgercheck/internal/money"
)

// maxDirectProbe is the widest bucket span probed key by key; wider spans
// binary-search the sorted keys instead.
const maxDirectProbe = 64

// amountIndex buckets ledger rows by amount in cents.
type amountIndex struct {
	buckets map[int64][]int
	keys    []int64
}

func newAmountIndex(txns []model.Transaction, rows []int) *amountIndex {
	ix := &amountIndex{buckets: make(map[int64][]int, len(rows))}
	for _, i := range rows {
		c := money.Cents(txns[i].Amount.Decimal)
		if _, ok := ix.buckets[c]; !ok {
			ix.keys = append(ix.keys, c)
		}
		ix.buckets[c] = append(ix.buckets[c], i)
	}
	sort.Slice(ix.keys, func(a, b int) bool { return ix.keys[a] < ix.keys[b] })
	return ix
}

// probe calls fn for every row whose bucket lies within [cents-span, cents+span],
// in ascending bucket then row order. Both arguments are bounded by money.MaxCents.
func (ix *amountIndex) probe(cents, span int64, fn func(row int)) {
	lo, hi := cents-span, cents+span
	if span <= maxDirectProbe/2 {
		for k := lo; k <= hi; k++ {
			for _, row := range ix.buckets[k] {
				fn(row)
			}
		}
		return
	}
	start := sort.Search(len(ix.keys), func(i int) bool { return ix.keys[i] >= lo })
	for _, k := range ix.keys[start:] {
		if k > hi {
			break
		}
		for _, row := range ix.buckets[k] {
			fn(row)
		}
	}
}
