package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgercheck/internal/model"
	"github.com/cleared-dev/ledgercheck/internal/textsim"
)

// Factors is the per-pair score breakdown, each in [0,1].
type Factors struct {
	Amount float64 `json:"amount"`
	Date   float64 `json:"date"`
	Text   float64 `json:"text"`
}

// Candidate is a bank/book pair that passed both tolerance filters.
type Candidate struct {
	BankIndex  int             `json:"bank_index"`
	BookIndex  int             `json:"book_index"`
	Score      float64         `json:"score"`
	Factors    Factors         `json:"factors"`
	AmountDiff decimal.Decimal `json:"amount_diff"`
	DayDiff    int             `json:"day_diff"`
}

// scorePair returns the candidate for (bank[bi], book[ki]) and false when the
// pair falls outside either tolerance.
func scorePair(bank, book []model.Transaction, bi, ki int, cfg Config) (Candidate, bool) {
	b, k := bank[bi], book[ki]

	diff := b.Amount.Decimal.Sub(k.Amount.Decimal).Abs()
	if diff.GreaterThan(cfg.AmountTolerance) {
		return Candidate{}, false
	}
	days := model.DaysBetween(b.Date, k.Date)
	if days > cfg.DateToleranceDays {
		return Candidate{}, false
	}

	f := Factors{Amount: 1, Date: 1}
	if cfg.AmountTolerance.IsPositive() {
		ratio, _ := diff.Div(cfg.AmountTolerance).Float64()
		f.Amount = 1 - ratio
	}
	if cfg.DateToleranceDays > 0 {
		f.Date = 1 - float64(days)/float64(cfg.DateToleranceDays)
	}

	bt, kt := b.Text(), k.Text()
	hasText := textsim.Normalize(bt) != "" || textsim.Normalize(kt) != ""
	if hasText {
		f.Text = textsim.Similarity(bt, kt)
	}

	return Candidate{
		BankIndex:  bi,
		BookIndex:  ki,
		Score:      cfg.Weights.combine(f, hasText),
		Factors:    f,
		AmountDiff: diff,
		DayDiff:    days,
	}, true
}
