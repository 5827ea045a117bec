package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgercheck/internal/importer"
	"github.com/cleared-dev/ledgercheck/internal/model"
	"github.com/cleared-dev/ledgercheck/internal/reconcile"
	"github.com/cleared-dev/ledgercheck/internal/runlog"
)

type reconcileOptions struct {
	bank, book        string
	format            string
	bankFormat        string
	bookFormat        string
	output            string
	minScore          float64
	amountTolerance   string
	dateToleranceDays int
	suggest           bool
}

func newReconcileCommand(g *globals) *cobra.Command {
	var opts reconcileOptions

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match a bank ledger against a book ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(opts.output); err != nil {
				return err
			}
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			cfg := e.cfg.Reconcile
			if cmd.Flags().Changed("min-score") {
				cfg.MinScore = opts.minScore
			}
			if cmd.Flags().Changed("date-tolerance") {
				cfg.DateToleranceDays = opts.dateToleranceDays
			}
			if cmd.Flags().Changed("amount-tolerance") {
				tol, err := decimal.NewFromString(opts.amountTolerance)
				if err != nil {
					return fmt.Errorf("parsing --amount-tolerance: %w", err)
				}
				cfg.AmountTolerance = tol
			}
			return runReconcile(cmd.OutOrStdout(), e, cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.bank, "bank", "", "bank ledger file (required)")
	cmd.Flags().StringVar(&opts.book, "book", "", "book ledger file (required)")
	_ = cmd.MarkFlagRequired("bank")
	_ = cmd.MarkFlagRequired("book")
	cmd.Flags().StringVar(&opts.format, "format", "", "format of both files: chase, generic or json (default: by extension)")
	cmd.Flags().StringVar(&opts.bankFormat, "bank-format", "", "bank file format, overrides --format")
	cmd.Flags().StringVar(&opts.bookFormat, "book-format", "", "book file format, overrides --format")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "output: text or json")
	cmd.Flags().Float64Var(&opts.minScore, "min-score", 0, "override the minimum match score")
	cmd.Flags().StringVar(&opts.amountTolerance, "amount-tolerance", "", "override the amount tolerance")
	cmd.Flags().IntVar(&opts.dateToleranceDays, "date-tolerance", 0, "override the date tolerance in days")
	cmd.Flags().BoolVar(&opts.suggest, "suggest", false, "list likely counterparts for unmatched bank records")

	return cmd
}

// reconcileOutput is the JSON shape printed by reconcile.
type reconcileOutput struct {
	RunID       string                         `json:"run_id"`
	Result      *reconcile.Result              `json:"result"`
	Suggestions map[int][]reconcile.Suggestion `json:"suggestions,omitempty"`
}

func runReconcile(out io.Writer, e *env, cfg reconcile.Config, opts reconcileOptions) error {
	reg := importer.DefaultRegistry()
	bank, err := reg.LoadFile(opts.bank, firstNonEmpty(opts.bankFormat, opts.format))
	if err != nil {
		return err
	}
	book, err := reg.LoadFile(opts.book, firstNonEmpty(opts.bookFormat, opts.format))
	if err != nil {
		return err
	}

	result, err := reconcile.Reconcile(bank, book, cfg)
	if err != nil {
		return err
	}

	runID := runlog.NewRunID()
	log := e.logger.WithField("run_id", runID)
	for _, v := range result.Invalid {
		log.WithFields(logrus.Fields{"ledger": v.Ledger, "index": v.Index, "field": v.Field}).Warn(v.Reason)
	}
	log.WithFields(logrus.Fields{
		"matched":        len(result.Matches),
		"unmatched_bank": len(result.UnmatchedBank),
		"unmatched_book": len(result.UnmatchedBook),
		"status":         result.Summary.Status,
	}).Info("reconciled")

	var suggestions map[int][]reconcile.Suggestion
	if opts.suggest {
		suggestions, err = suggestUnmatched(bank, book, result, e.cfg.Suggest)
		if err != nil {
			return err
		}
	}

	err = e.runs.Record(runlog.Entry{
		RunID:   runID,
		Command: runlog.CommandReconcile,
		Origin:  runlog.OriginCLI,
		Inputs:  filepath.Base(opts.bank) + "," + filepath.Base(opts.book),
		Records: len(bank) + len(book),
		Flagged: len(result.UnmatchedBank) + len(result.UnmatchedBook) + len(result.Invalid),
		Status:  result.Summary.Status,
	})
	if err != nil {
		log.WithError(err).Warn("writing run log")
	}

	if opts.output == outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reconcileOutput{RunID: runID, Result: result, Suggestions: suggestions})
	}
	return printReconcile(out, bank, book, result, suggestions)
}

// suggestUnmatched ranks the unmatched book records for every unmatched bank record.
func suggestUnmatched(bank, book []model.Transaction, r *reconcile.Result, cfg reconcile.SuggestConfig) (map[int][]reconcile.Suggestion, error) {
	pool := make([]model.Transaction, len(r.UnmatchedBook))
	for i, k := range r.UnmatchedBook {
		pool[i] = book[k]
	}
	out := make(map[int][]reconcile.Suggestion)
	for _, bi := range r.UnmatchedBank {
		list, err := reconcile.Suggest(bank[bi], pool, cfg)
		if err != nil {
			return nil, err
		}
		for j := range list {
			list[j].Index = r.UnmatchedBook[list[j].Index]
		}
		if len(list) > 0 {
			out[bi] = list
		}
	}
	return out, nil
}

func printReconcile(out io.Writer, bank, book []model.Transaction, r *reconcile.Result, suggestions map[int][]reconcile.Suggestion) error {
	s := r.Summary
	fmt.Fprintf(out, "Status: %s\n", s.Status)
	fmt.Fprintf(out, "Matched %d of %d bank and %d book records (bank rate %.1f%%, book rate %.1f%%)\n",
		s.MatchedCount, s.BankCount, s.BookCount, r.BankMatchRate*100, r.BookMatchRate*100)
	fmt.Fprintf(out, "Bank total %s, book total %s, difference %s\n\n",
		s.BankTotal.StringFixed(2), s.BookTotal.StringFixed(2), s.Difference.StringFixed(2))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if len(r.Matches) > 0 {
		fmt.Fprintln(tw, "BANK\tBOOK\tAMOUNT\tDATE\tSCORE\tKIND\tDESCRIPTION")
		for _, m := range r.Matches {
			b := bank[m.BankIndex]
			fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%.3f\t%s\t%s\n",
				m.BankIndex, m.BookIndex, b.Amount.Decimal.StringFixed(2), b.Date.Format("2006-01-02"),
				m.Score, m.Kind, b.Text())
		}
		fmt.Fprintln(tw)
	}
	printUnmatched(tw, "Unmatched bank", bank, r.UnmatchedBank, suggestions)
	printUnmatched(tw, "Unmatched book", book, r.UnmatchedBook, nil)
	for _, v := range r.Invalid {
		fmt.Fprintf(tw, "invalid\t%s\n", v.Error())
	}
	return tw.Flush()
}

func printUnmatched(tw io.Writer, title string, txns []model.Transaction, rows []int, suggestions map[int][]reconcile.Suggestion) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(tw, "%s:\n", title)
	for _, i := range rows {
		t := txns[i]
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n", i, t.Amount.Decimal.StringFixed(2), t.Date.Format("2006-01-02"), t.Text())
		for _, sg := range suggestions[i] {
			fmt.Fprintf(tw, "    maybe book %d\tconfidence %.2f\n", sg.Index, sg.Confidence)
		}
	}
	fmt.Fprintln(tw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
