package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cleared-dev/ledgercheck/internal/anomaly"
	"github.com/cleared-dev/ledgercheck/internal/buildinfo"
	"github.com/cleared-dev/ledgercheck/internal/model"
	"github.com/cleared-dev/ledgercheck/internal/reconcile"
	"github.com/cleared-dev/ledgercheck/internal/runlog"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Time: time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version: buildinfo.Version,
		Commit:  buildinfo.Commit,
		Date:    buildinfo.Date,
	})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	cfg := s.cfg.Reconcile
	req := ReconcileRequest{Config: &cfg}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Config == nil {
		req.Config = &s.cfg.Reconcile
	}

	bank, book := model.Transactions(req.Bank), model.Transactions(req.Book)
	result, err := reconcile.Reconcile(bank, book, *req.Config)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.record(r, runlog.CommandReconcile, fmt.Sprintf("bank=%d book=%d", len(bank), len(book)),
		len(bank)+len(book),
		len(result.UnmatchedBank)+len(result.UnmatchedBook)+len(result.Invalid),
		result.Summary.Status)
	writeJSON(w, http.StatusOK, ReconcileResponse{RunID: runID(r), Result: result})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	cfg := s.cfg.Suggest
	req := SuggestRequest{Config: &cfg}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Config == nil {
		req.Config = &s.cfg.Suggest
	}

	pool := model.Transactions(req.Candidates)
	suggestions, err := reconcile.Suggest(req.Transaction.Transaction(), pool, *req.Config)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.record(r, runlog.CommandSuggest, fmt.Sprintf("candidates=%d", len(pool)), len(pool), 0, "ok")
	writeJSON(w, http.StatusOK, SuggestResponse{RunID: runID(r), Suggestions: suggestions})
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	cfg := s.cfg.Anomaly
	req := AnomalyRequest{Config: &cfg}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Config == nil {
		req.Config = &s.cfg.Anomaly
	}

	txns := model.Transactions(req.Transactions)
	report, err := anomaly.Analyze(txns, *req.Config)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.record(r, runlog.CommandAnomalies, fmt.Sprintf("transactions=%d", len(txns)), len(txns),
		report.Summary.RequiresReview+report.Summary.Invalid, "ok")
	writeJSON(w, http.StatusOK, AnomalyResponse{RunID: runID(r), Report: report})
}

// decode reads a size-limited JSON body into v and writes the error reply
// itself when that fails.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
			RunID: runID(r),
			Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
		})
		return false
	}
	msg := strings.TrimPrefix(err.Error(), "json: ")
	writeJSON(w, http.StatusBadRequest, ErrorResponse{RunID: runID(r), Error: "invalid JSON: " + msg})
	return false
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var cerr *model.ConfigError
	if errors.As(err, &cerr) {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{RunID: runID(r), Error: err.Error(), Field: cerr.Field})
		return
	}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{RunID: runID(r), Error: err.Error(), Field: verr.Field})
		return
	}
	s.logger.WithError(err).WithField("run_id", runID(r)).Error("request failed")
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{RunID: runID(r), Error: "internal error"})
}

func (s *Server) record(r *http.Request, command, inputs string, records, flagged int, status string) {
	err := s.runs.Record(runlog.Entry{
		RunID:   runID(r),
		Command: command,
		Origin:  runlog.OriginAPI,
		Inputs:  inputs,
		Records: records,
		Flagged: flagged,
		Status:  status,
	})
	if err != nil {
		s.logger.WithError(err).Warn("writing run log")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
