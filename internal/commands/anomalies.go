package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgercheck/internal/anomaly"
	"github.com/cleared-dev/ledgercheck/internal/importer"
	"github.com/cleared-dev/ledgercheck/internal/model"
	"github.com/cleared-dev/ledgercheck/internal/runlog"
)

type anomaliesOptions struct {
	input      string
	format     string
	output     string
	groupBy    string
	reviewOnly bool
	known      []string
}

func newAnomaliesCommand(g *globals) *cobra.Command {
	var opts anomaliesOptions

	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "Score a transaction batch for fraud indicators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(opts.output); err != nil {
				return err
			}
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			cfg := e.cfg.Anomaly
			if opts.groupBy != "" {
				cfg.BenfordGroupBy = opts.groupBy
			}
			if len(opts.known) > 0 {
				cfg.KnownVendors = opts.known
			}
			return runAnomalies(cmd.OutOrStdout(), e, cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "ledger file or directory of ledger files (required)")
	_ = cmd.MarkFlagRequired("input")
	cmd.Flags().StringVar(&opts.format, "format", "", "file format: chase, generic or json (default: by extension)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "output: text or json")
	cmd.Flags().StringVar(&opts.groupBy, "benford-group-by", "", "override Benford grouping: batch or vendor")
	cmd.Flags().StringSliceVar(&opts.known, "known-vendors", nil, "vendors seen before; any other vendor is flagged as new")
	cmd.Flags().BoolVar(&opts.reviewOnly, "review-only", false, "list only records that require review")

	return cmd
}

// anomaliesOutput is the JSON shape printed by anomalies.
type anomaliesOutput struct {
	RunID  string          `json:"run_id"`
	Report *anomaly.Report `json:"report"`
}

func runAnomalies(out io.Writer, e *env, cfg anomaly.Config, opts anomaliesOptions) error {
	txns, err := importer.DefaultRegistry().LoadPath(opts.input, opts.format)
	if err != nil {
		return err
	}

	report, err := anomaly.Analyze(txns, cfg)
	if err != nil {
		return err
	}

	runID := runlog.NewRunID()
	log := e.logger.WithField("run_id", runID)
	for _, v := range report.Errors {
		log.WithFields(logrus.Fields{"index": v.Index, "field": v.Field}).Warn(v.Reason)
	}
	log.WithFields(logrus.Fields{
		"records":         report.Summary.Total,
		"anomalies":       report.Summary.Anomalies,
		"duplicate_pairs": report.Summary.DuplicatePairs,
		"high_risk":       report.Summary.HighRisk,
		"requires_review": report.Summary.RequiresReview,
	}).Info("scored")

	err = e.runs.Record(runlog.Entry{
		RunID:   runID,
		Command: runlog.CommandAnomalies,
		Origin:  runlog.OriginCLI,
		Inputs:  filepath.Base(opts.input),
		Records: len(txns),
		Flagged: report.Summary.RequiresReview + report.Summary.Invalid,
		Status:  "ok",
	})
	if err != nil {
		log.WithError(err).Warn("writing run log")
	}

	if opts.output == outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(anomaliesOutput{RunID: runID, Report: report})
	}
	return printAnomalies(out, txns, report, opts.reviewOnly)
}

func printAnomalies(out io.Writer, txns []model.Transaction, r *anomaly.Report, reviewOnly bool) error {
	s := r.Summary
	fmt.Fprintf(out, "Scored %d records (%d invalid): %d outliers, %d duplicate pairs, %d round numbers, %d weekend, %d high risk, %d to review\n\n",
		s.Total, s.Invalid, s.Anomalies, s.DuplicatePairs, s.RoundNumbers, s.Weekend, s.HighRisk, s.RequiresReview)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tAMOUNT\tDATE\tRISK\tLEVEL\tSIGNALS\tDESCRIPTION")
	for _, rec := range r.Records {
		t := txns[rec.Index]
		if rec.InsufficientData {
			if !reviewOnly {
				fmt.Fprintf(tw, "%d\t-\t-\t-\t-\t%s\t%s\n", rec.Index, rec.Error.Error(), t.Text())
			}
			continue
		}
		if reviewOnly && !rec.RequiresReview {
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\t%s\t%s\n",
			rec.Index, t.Amount.Decimal.StringFixed(2), t.Date.Format("2006-01-02"),
			*rec.FraudRiskScore, rec.RiskLevel, signals(rec), t.Text())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, b := range r.Benford {
		if b.Insufficient {
			fmt.Fprintf(out, "\nBenford %s: %d samples, too few to test\n", b.Group, b.Samples)
			continue
		}
		verdict := "conforms"
		if !*b.Conforms {
			verdict = "deviates"
		}
		fmt.Fprintf(out, "\nBenford %s: chi-square %.2f over %d samples (critical %.3f), %s\n",
			b.Group, *b.ChiSquare, b.Samples, b.CriticalValue, verdict)
	}
	return nil
}

func signals(rec anomaly.Record) string {
	var parts []string
	if rec.IsAnomaly {
		parts = append(parts, fmt.Sprintf("outlier(z=%.1f)", rec.ZScore))
	}
	if rec.IsDuplicate {
		parts = append(parts, fmt.Sprintf("duplicate(of %d)", *rec.DuplicateOf))
	}
	if rec.IsRoundNumber {
		parts = append(parts, "round")
	}
	if rec.SuspiciousRoundPattern {
		parts = append(parts, "vendor-round")
	}
	if rec.IsHighAmount {
		parts = append(parts, "high")
	}
	if rec.IsWeekend {
		parts = append(parts, "weekend")
	}
	if rec.IsNewVendor {
		parts = append(parts, "new-vendor")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}
