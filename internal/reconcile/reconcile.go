// Package reconcile pairs bank-feed transactions with book transactions.
//
// Candidate pairs come from an amount index over the book ledger, so each bank
// row only looks at book rows whose amount is within tolerance. Candidates are
// scored on amount closeness, date closeness and description similarity, and
// assigned greedily: highest score first, ties to the lowest bank index, then
// the lowest book index. Greedy assignment is deterministic and fast but not
// guaranteed to maximise the total score.
//
// Example usage:
//
//	result, err := reconcile.Reconcile(bank, book, reconcile.DefaultConfig())
//	if err != nil {
//		return err // *model.ConfigError
//	}
//	for _, m := range result.Matches {
//		fmt.Println(m.BankIndex, m.BookIndex, m.Score)
//	}
package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgercheck/internal/model"
	"github.com/cleared-dev/ledgercheck/internal/money"
)

// MatchKind classifies an accepted pair.
type MatchKind string

const (
	KindExact MatchKind = "exact"
	KindFuzzy MatchKind = "fuzzy"
)

// Status summarises the whole reconciliation.
const (
	StatusReconciled    = "reconciled"
	StatusDiscrepancies = "discrepancies"
)

// Match is one accepted bank/book pair.
type Match struct {
	Candidate
	Kind MatchKind `json:"kind"`
}

// Summary carries ledger totals over valid records.
type Summary struct {
	Status       string          `json:"status"`
	BankCount    int             `json:"bank_count"`
	BookCount    int             `json:"book_count"`
	MatchedCount int             `json:"matched_count"`
	BankTotal    decimal.Decimal `json:"bank_total"`
	BookTotal    decimal.Decimal `json:"book_total"`
	MatchedTotal decimal.Decimal `json:"matched_total"`
	Difference   decimal.Decimal `json:"difference"`
}

// Result is the outcome of Reconcile.
type Result struct {
	Matches       []Match                 `json:"matches"`
	UnmatchedBank []int                   `json:"unmatched_bank"`
	UnmatchedBook []int                   `json:"unmatched_book"`
	Invalid       []model.ValidationError `json:"invalid"`
	BankMatchRate float64                 `json:"bank_match_rate"`
	BookMatchRate float64                 `json:"book_match_rate"`
	AverageScore  float64                 `json:"average_score"`
	Candidates    int                     `json:"candidates"`
	Summary       Summary                 `json:"summary"`
}

// Reconcile matches bank against book one-to-one. Neither slice is modified.
// Records without an amount or a date are reported in Result.Invalid and
// left out of matching and of the match rates.
func Reconcile(bank, book []model.Transaction, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	validBank, bankErrs := model.Partition(bank, model.LedgerBank)
	validBook, bookErrs := model.Partition(book, model.LedgerBook)

	cands := generate(bank, book, validBank, validBook, cfg)

	accepted := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Score >= cfg.MinScore {
			accepted = append(accepted, c)
		}
	}
	sort.Slice(accepted, func(i, j int) bool {
		a, b := accepted[i], accepted[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.BankIndex != b.BankIndex {
			return a.BankIndex < b.BankIndex
		}
		return a.BookIndex < b.BookIndex
	})

	usedBank := make([]bool, len(bank))
	usedBook := make([]bool, len(book))
	matches := make([]Match, 0)
	for _, c := range accepted {
		if usedBank[c.BankIndex] || usedBook[c.BookIndex] {
			continue
		}
		usedBank[c.BankIndex] = true
		usedBook[c.BookIndex] = true
		matches = append(matches, Match{Candidate: c, Kind: kindOf(c)})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].BankIndex < matches[j].BankIndex })

	result := &Result{
		Matches:       matches,
		UnmatchedBank: unused(validBank, usedBank),
		UnmatchedBook: unused(validBook, usedBook),
		Invalid:       append(bankErrs, bookErrs...),
		Candidates:    len(cands),
	}
	if result.Invalid == nil {
		result.Invalid = []model.ValidationError{}
	}
	result.BankMatchRate = rate(len(matches), len(validBank))
	result.BookMatchRate = rate(len(matches), len(validBook))
	if len(matches) > 0 {
		var sum float64
		for _, m := range matches {
			sum += m.Score
		}
		result.AverageScore = sum / float64(len(matches))
	}
	result.Summary = summarize(bank, book, validBank, validBook, result)
	return result, nil
}

// Candidates returns every pair within both tolerances, whatever its score,
// ordered by bank index then book index.
func Candidates(bank, book []model.Transaction, cfg Config) ([]Candidate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	validBank, _ := model.Partition(bank, model.LedgerBank)
	validBook, _ := model.Partition(book, model.LedgerBook)
	return generate(bank, book, validBank, validBook, cfg), nil
}

func generate(bank, book []model.Transaction, validBank, validBook []int, cfg Config) []Candidate {
	if len(validBank) == 0 || len(validBook) == 0 {
		return nil
	}
	ix := newAmountIndex(book, validBook)
	// One extra bucket covers amounts that round apart at the edge of the tolerance.
	span := money.ToleranceCents(cfg.AmountTolerance) + 1

	var out []Candidate
	for _, bi := range validBank {
		start := len(out)
		ix.probe(money.Cents(bank[bi].Amount.Decimal), span, func(ki int) {
			if c, ok := scorePair(bank, book, bi, ki, cfg); ok {
				out = append(out, c)
			}
		})
		row := out[start:]
		sort.Slice(row, func(i, j int) bool { return row[i].BookIndex < row[j].BookIndex })
	}
	return out
}

func kindOf(c Candidate) MatchKind {
	if c.Score == 1 && c.AmountDiff.IsZero() && c.DayDiff == 0 {
		return KindExact
	}
	return KindFuzzy
}

func unused(rows []int, used []bool) []int {
	out := make([]int, 0)
	for _, i := range rows {
		if !used[i] {
			out = append(out, i)
		}
	}
	return out
}

func rate(matched, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

func summarize(bank, book []model.Transaction, validBank, validBook []int, r *Result) Summary {
	s := Summary{
		BankCount:    len(bank),
		BookCount:    len(book),
		MatchedCount: len(r.Matches),
		BankTotal:    total(bank, validBank),
		BookTotal:    total(book, validBook),
		MatchedTotal: decimal.Zero,
	}
	for _, m := range r.Matches {
		s.MatchedTotal = s.MatchedTotal.Add(bank[m.BankIndex].Amount.Decimal)
	}
	s.Difference = s.BankTotal.Sub(s.BookTotal)
	s.Status = StatusReconciled
	if len(r.UnmatchedBank) > 0 || len(r.UnmatchedBook) > 0 || len(r.Invalid) > 0 {
		s.Status = StatusDiscrepancies
	}
	return s
}

func total(txns []model.Transaction, rows []int) decimal.Decimal {
	sum := decimal.Zero
	for _, i := range rows {
		sum = sum.Add(txns[i].Amount.Decimal)
	}
	return sum
}
