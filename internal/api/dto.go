package api

import (
	"github.com/cleared-dev/ledgercheck/internal/anomaly"
	"github.com/cleared-dev/ledgercheck/internal/model"
	"github.com/cleared-dev/ledgercheck/internal/reconcile"
)

// ReconcileRequest is the body of POST /api/reconcile. Config fields that are
// omitted keep the server defaults.
type ReconcileRequest struct {
	Bank   []model.Record    `json:"bank"`
	Book   []model.Record    `json:"book"`
	Config *reconcile.Config `json:"config,omitempty"`
}

// ReconcileResponse wraps a reconcile result.
type ReconcileResponse struct {
	RunID  string            `json:"run_id"`
	Result *reconcile.Result `json:"result"`
}

// AnomalyRequest is the body of POST /api/anomalies.
type AnomalyRequest struct {
	Transactions []model.Record  `json:"transactions"`
	Config       *anomaly.Config `json:"config,omitempty"`
}

// AnomalyResponse wraps an anomaly report.
type AnomalyResponse struct {
	RunID  string          `json:"run_id"`
	Report *anomaly.Report `json:"report"`
}

// SuggestRequest is the body of POST /api/reconcile/suggest.
type SuggestRequest struct {
	Transaction model.Record             `json:"transaction"`
	Candidates  []model.Record           `json:"candidates"`
	Config      *reconcile.SuggestConfig `json:"config,omitempty"`
}

// SuggestResponse lists ranked candidates.
type SuggestResponse struct {
	RunID       string                 `json:"run_id"`
	Suggestions []reconcile.Suggestion `json:"suggestions"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// VersionResponse is returned by GET /api/version.
type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// ErrorResponse is the body of every error reply. Field names the offending
// config field or record field when there is one.
type ErrorResponse struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
