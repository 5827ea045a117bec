package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgercheck/internal/anomaly"
	"github.com/cleared-dev/ledgercheck/internal/api"
	"github.com/cleared-dev/ledgercheck/internal/config"
	"github.com/cleared-dev/ledgercheck/internal/logging"
	"github.com/cleared-dev/ledgercheck/internal/reconcile"
	"github.com/cleared-dev/ledgercheck/internal/runlog"
)

func newTestServer(t *testing.T) (*api.Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.csv")
	server := api.NewServer(config.Default(), runlog.New(path), logging.Discard())
	return server, path
}

func do(t *testing.T, s *api.Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	s := api.NewServer(cfg, nil, logging.Discard())

	require.NoError(t, s.Shutdown(context.Background()))
	assert.NoError(t, s.Start())
}

func TestServer_StartAndShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	s := api.NewServer(cfg, nil, logging.Discard())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp api.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	_, err := uuid.Parse(rec.Header().Get(api.RunIDHeader))
	assert.NoError(t, err)
}

func TestServer_Version(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/version", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp api.VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "dev", resp.Version)
}

func TestServer_Reconcile(t *testing.T) {
	s, runsPath := newTestServer(t)
	body := `{
		"bank": [{"amount": "1000.00", "date": "2024-01-15", "description": "ACME Corp"},
		         {"amount": 12, "date": "not a date"}],
		"book": [{"amount": 1000, "date": "01/15/2024", "description": "ACME Corporation"}]
	}`
	rec := do(t, s, http.MethodPost, "/api/reconcile", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		RunID  string           `json:"run_id"`
		Result reconcile.Result `json:"result"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, rec.Header().Get(api.RunIDHeader), resp.RunID)
	require.Len(t, resp.Result.Matches, 1)
	assert.GreaterOrEqual(t, resp.Result.Matches[0].Score, 0.8)
	require.Len(t, resp.Result.Invalid, 1)
	assert.Equal(t, "date", resp.Result.Invalid[0].Field)
	assert.Equal(t, reconcile.StatusDiscrepancies, resp.Result.Summary.Status)

	entries, err := runlog.Read(runsPath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, runlog.CommandReconcile, entries[0].Command)
	assert.Equal(t, runlog.OriginAPI, entries[0].Origin)
	assert.Equal(t, resp.RunID, entries[0].RunID)
	assert.Equal(t, 1, entries[0].Flagged)
}

func TestServer_ReconcilePartialConfig(t *testing.T) {
	s, _ := newTestServer(t)
	body := `{
		"bank": [{"amount": "100.00", "date": "2024-01-01"}],
		"book": [{"amount": "100.00", "date": "2024-01-09"}],
		"config": {"date_tolerance_days": 10, "min_score": 0.5}
	}`
	rec := do(t, s, http.MethodPost, "/api/reconcile", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp api.ReconcileResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Result.Matches, 1)
}

func TestServer_ConfigError(t *testing.T) {
	s, _ := newTestServer(t)
	body := `{"bank": [], "book": [], "config": {"min_score": 1.5}}`
	rec := do(t, s, http.MethodPost, "/api/reconcile", body)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "min_score", resp.Field)
	assert.NotEmpty(t, resp.RunID)
}

func TestServer_MalformedJSON(t *testing.T) {
	s, _ := newTestServer(t)
	for _, target := range []string{"/api/reconcile", "/api/anomalies", "/api/reconcile/suggest"} {
		rec := do(t, s, http.MethodPost, target, `{"bank": [`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		var resp api.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Contains(t, resp.Error, "invalid JSON")
	}
}

func TestServer_BodyLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxBodyBytes = 64
	s := api.NewServer(cfg, nil, logging.Discard())

	big := `{"transactions": [` + strings.Repeat(`{"amount": 1, "date": "2024-01-01"},`, 10) + `{}]}`
	rec := do(t, s, http.MethodPost, "/api/anomalies", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServer_Anomalies(t *testing.T) {
	s, _ := newTestServer(t)
	body := `{"transactions": [
		{"amount": 500, "date": "2024-01-01", "vendor": "Acme"},
		{"amount": 500, "date": "2024-01-02", "vendor": "Acme"},
		{"date": "2024-01-03"}
	]}`
	rec := do(t, s, http.MethodPost, "/api/anomalies", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		RunID  string         `json:"run_id"`
		Report anomaly.Report `json:"report"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Report.Records, 3)
	assert.True(t, resp.Report.Records[0].IsDuplicate)
	require.NotNil(t, resp.Report.Records[0].DuplicateOf)
	assert.Equal(t, 1, *resp.Report.Records[0].DuplicateOf)
	assert.True(t, resp.Report.Records[2].InsufficientData)
	assert.Nil(t, resp.Report.Records[2].FraudRiskScore)
	assert.Len(t, resp.Report.Duplicates, 1)
}

func TestServer_AnomalyConfigError(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/anomalies", `{"transactions": [], "config": {"benford_group_by": "month"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "benford_group_by", resp.Field)
}

func TestServer_Suggest(t *testing.T) {
	s, _ := newTestServer(t)
	payload := map[string]any{
		"transaction": map[string]any{"amount": "-54.20", "date": "2024-02-03", "description": "Office Depot"},
		"candidates": []map[string]any{
			{"amount": "-54.20", "date": "2024-02-05", "description": "OFFICE DEPOT #1123"},
			{"amount": "-900", "date": "2023-06-01", "description": "Rent"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(payload))

	rec := do(t, s, http.MethodPost, "/api/reconcile/suggest", buf.String())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp api.SuggestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, 0, resp.Suggestions[0].Index)
	for _, sg := range resp.Suggestions {
		assert.NotEqual(t, 1, sg.Index)
	}
}

func TestServer_SuggestInvalidTarget(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/reconcile/suggest", `{"transaction": {"date": "2024-01-01"}, "candidates": []}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "amount", resp.Field)
}
