package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgercheck/internal/anomaly"
	"github.com/cleared-dev/ledgercheck/internal/model"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Reconcile.AmountTolerance = decimal.RequireFromString("0.05")
	cfg.Reconcile.DateToleranceDays = 5
	cfg.Anomaly.BenfordGroupBy = anomaly.GroupByVendor
	cfg.Logging.Format = "json"

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.True(t, got.Reconcile.AmountTolerance.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, 5, got.Reconcile.DateToleranceDays)
	assert.InDelta(t, 0.8, got.Reconcile.MinScore, 0.001)
	assert.Equal(t, anomaly.GroupByVendor, got.Anomaly.BenfordGroupBy)
	assert.True(t, got.Anomaly.HighAmountThreshold.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, "json", got.Logging.Format)
	assert.Equal(t, cfg.Server, got.Server)
	assert.Equal(t, cfg.Suggest, got.Suggest)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 3, cfg.Reconcile.DateToleranceDays)
	assert.Equal(t, 3, cfg.Anomaly.DuplicateWindowDays)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadOrDefault_Missing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	yml := "reconcile:\n  min_score: 0.6\n  amount_tolerance: 0.10\nanomaly:\n  z_score_threshold: 3.5\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, cfg.Reconcile.MinScore, 0.001)
	assert.True(t, cfg.Reconcile.AmountTolerance.Equal(decimal.RequireFromString("0.1")))
	assert.Equal(t, 3, cfg.Reconcile.DateToleranceDays)
	assert.InDelta(t, 0.4, cfg.Reconcile.Weights.Amount, 0.001)
	assert.InDelta(t, 3.5, cfg.Anomaly.ZScoreThreshold, 0.001)
	assert.Equal(t, 30, cfg.Anomaly.BenfordMinSamples)
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("LEDGERCHECK_TEST_ADDR", "127.0.0.1:9999")
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: ${LEDGERCHECK_TEST_ADDR}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
}

func TestLoad_InvalidSection(t *testing.T) {
	tests := []struct {
		name  string
		yml   string
		field string
	}{
		{"reconcile", "reconcile:\n  date_tolerance_days: -1\n", "reconcile.date_tolerance_days"},
		{"anomaly", "anomaly:\n  benford_group_by: month\n", "anomaly.benford_group_by"},
		{"suggest", "suggest:\n  limit: 0\n", "suggest.limit"},
		{"logging", "logging:\n  format: xml\n", "logging.format"},
		{"server", "server:\n  max_body_bytes: 0\n", "server.max_body_bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.yml), 0o644))

			_, err := Load(path)
			var cerr *model.ConfigError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("reconcile: [\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestPath(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, FileName, Path())
	t.Setenv(EnvPath, "/etc/ledgercheck.yaml")
	assert.Equal(t, "/etc/ledgercheck.yaml", Path())
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "reconcile:")
	assert.Contains(t, contents, "date_tolerance_days: 3")
	assert.Contains(t, contents, "benford_group_by: batch")
	assert.Contains(t, contents, "format: text")
}
