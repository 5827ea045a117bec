package commands_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgercheck/internal/commands"
	"github.com/cleared-dev/ledgercheck/internal/config"
	"github.com/cleared-dev/ledgercheck/internal/runlog"
)

func runLedgercheck(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := commands.NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// testProject writes a config whose run log lives in the temp dir.
func testProject(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	cfg := config.Default()
	cfg.RunLog.Path = filepath.Join(dir, "runs.csv")
	cfgPath = filepath.Join(dir, config.FileName)
	require.NoError(t, config.Save(cfgPath, cfg))
	return dir, cfgPath
}

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const bankCSV = "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #\n" +
	"DEBIT,01/15/2024,ACME CORP,-1000.00,ACH_DEBIT,5000.00,\n" +
	"DEBIT,01/20/2024,COFFEE SHOP,-4.50,DEBIT_CARD,4995.50,\n"

const bookJSON = `[
	{"amount": "-1000.00", "date": "2024-01-15", "description": "ACME Corporation"},
	{"amount": "-250.00", "date": "2024-01-28", "description": "Rent deposit"}
]`

func TestInit_WritesConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "project")
	out, _, err := runLedgercheck(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestInit_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runLedgercheck(t, "init", dir)
	require.NoError(t, err)

	_, _, err = runLedgercheck(t, "init", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = runLedgercheck(t, "init", dir, "--force")
	assert.NoError(t, err)
}

func TestReconcile_Text(t *testing.T) {
	dir, cfgPath := testProject(t)
	bank := writeFile(t, dir, "bank.csv", bankCSV)
	book := writeFile(t, dir, "book.json", bookJSON)

	out, logs, err := runLedgercheck(t, "reconcile", "--config", cfgPath,
		"--bank", bank, "--bank-format", "chase", "--book", book)
	require.NoError(t, err)

	assert.Contains(t, out, "Status: discrepancies")
	assert.Contains(t, out, "Matched 1 of 2 bank and 2 book records")
	assert.Contains(t, out, "Unmatched bank:")
	assert.Contains(t, out, "COFFEE SHOP")
	assert.Contains(t, logs, "msg=reconciled")

	entries, err := runlog.Read(filepath.Join(dir, "runs.csv"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, runlog.CommandReconcile, entries[0].Command)
	assert.Equal(t, runlog.OriginCLI, entries[0].Origin)
	assert.Equal(t, "bank.csv,book.json", entries[0].Inputs)
	assert.Equal(t, 2, entries[0].Flagged)
}

func TestReconcile_JSON(t *testing.T) {
	dir, cfgPath := testProject(t)
	bank := writeFile(t, dir, "bank.csv", bankCSV)
	book := writeFile(t, dir, "book.json", bookJSON)

	out, _, err := runLedgercheck(t, "reconcile", "--config", cfgPath,
		"--bank", bank, "--bank-format", "chase", "--book", book, "-o", "json")
	require.NoError(t, err)

	var resp struct {
		RunID  string `json:"run_id"`
		Result struct {
			Matches []struct {
				BankIndex int     `json:"bank_index"`
				BookIndex int     `json:"book_index"`
				Score     float64 `json:"score"`
			} `json:"matches"`
			UnmatchedBank []int `json:"unmatched_bank"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.NotEmpty(t, resp.RunID)
	require.Len(t, resp.Result.Matches, 1)
	assert.Equal(t, 0, resp.Result.Matches[0].BankIndex)
	assert.Equal(t, 0, resp.Result.Matches[0].BookIndex)
	assert.GreaterOrEqual(t, resp.Result.Matches[0].Score, 0.8)
	assert.Equal(t, []int{1}, resp.Result.UnmatchedBank)
}

func TestReconcile_FlagOverrides(t *testing.T) {
	dir, cfgPath := testProject(t)
	bank := writeFile(t, dir, "bank.json", `[{"amount": 100, "date": "2024-01-01"}]`)
	book := writeFile(t, dir, "book.json", `[{"amount": 100.5, "date": "2024-01-01"}]`)

	out, _, err := runLedgercheck(t, "reconcile", "--config", cfgPath, "--bank", bank, "--book", book)
	require.NoError(t, err)
	assert.Contains(t, out, "Matched 0 of 1")

	out, _, err = runLedgercheck(t, "reconcile", "--config", cfgPath, "--bank", bank, "--book", book,
		"--amount-tolerance", "1.00", "--min-score", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: reconciled")
}

func TestReconcile_Suggest(t *testing.T) {
	dir, cfgPath := testProject(t)
	bank := writeFile(t, dir, "bank.json", `[{"amount": "-54.20", "date": "2024-02-03", "description": "Office Depot"}]`)
	book := writeFile(t, dir, "book.json", `[{"amount": "-54.00", "date": "2024-02-05", "description": "OFFICE DEPOT #1123"}]`)

	out, _, err := runLedgercheck(t, "reconcile", "--config", cfgPath, "--bank", bank, "--book", book, "--suggest")
	require.NoError(t, err)
	assert.Contains(t, out, "maybe book 0")
}

func TestReconcile_ConfigError(t *testing.T) {
	dir, cfgPath := testProject(t)
	bank := writeFile(t, dir, "bank.json", `[]`)

	_, _, err := runLedgercheck(t, "reconcile", "--config", cfgPath, "--bank", bank, "--book", bank, "--min-score", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config min_score")
}

func TestReconcile_RequiresFiles(t *testing.T) {
	_, _, err := runLedgercheck(t, "reconcile", "--bank", "x.csv")
	require.Error(t, err)
}

func TestReconcile_BadOutput(t *testing.T) {
	_, _, err := runLedgercheck(t, "reconcile", "--bank", "a", "--book", "b", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output")
}

func TestAnomalies_Text(t *testing.T) {
	dir, cfgPath := testProject(t)
	input := writeFile(t, dir, "batch.csv", "date,amount,vendor\n"+
		"2024-01-01,500.00,Acme\n"+
		"2024-01-02,500.00,Acme\n"+
		"2024-01-03,oops,Beta\n")

	out, logs, err := runLedgercheck(t, "anomalies", "--config", cfgPath, "--input", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Scored 3 records (1 invalid)")
	assert.Contains(t, out, "1 duplicate pairs")
	assert.Contains(t, out, "duplicate(of 1)")
	assert.Contains(t, out, "too few to test")
	assert.Contains(t, logs, "msg=scored")
	assert.Contains(t, logs, "not a number")
}

func TestAnomalies_JSONDirectory(t *testing.T) {
	dir, cfgPath := testProject(t)
	ledgers := filepath.Join(dir, "ledgers")
	require.NoError(t, os.MkdirAll(ledgers, 0o755))
	writeFile(t, ledgers, "a.json", `[{"amount": 120, "date": "2024-03-04", "vendor": "Zeta"}]`)
	writeFile(t, ledgers, "b.csv", "date,amount,vendor\n2024-03-09,15000,Zeta\n")

	out, _, err := runLedgercheck(t, "anomalies", "--config", cfgPath, "--input", ledgers,
		"-o", "json", "--benford-group-by", "vendor")
	require.NoError(t, err)

	var resp struct {
		Report struct {
			Records []struct {
				Index        int  `json:"index"`
				IsHighAmount bool `json:"is_high_amount"`
			} `json:"records"`
			Benford []struct {
				Group string `json:"group"`
			} `json:"benford"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Report.Records, 2)
	assert.True(t, resp.Report.Records[1].IsHighAmount)
	require.Len(t, resp.Report.Benford, 1)
	assert.Equal(t, "zeta", resp.Report.Benford[0].Group)
}

func TestAnomalies_KnownVendors(t *testing.T) {
	dir, cfgPath := testProject(t)
	input := writeFile(t, dir, "batch.csv", "date,amount,vendor\n"+
		"2024-01-02,87.13,Acme\n"+
		"2024-01-09,87.13,Globex\n")

	out, _, err := runLedgercheck(t, "anomalies", "--config", cfgPath, "--input", input,
		"-o", "json", "--known-vendors", "Acme,Staples")
	require.NoError(t, err)

	var resp struct {
		Report struct {
			Records []struct {
				IsNewVendor bool `json:"is_new_vendor"`
			} `json:"records"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Report.Records, 2)
	assert.False(t, resp.Report.Records[0].IsNewVendor)
	assert.True(t, resp.Report.Records[1].IsNewVendor)
}

func TestAnomalies_ConfigFileError(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, config.FileName, "anomaly:\n  z_score_threshold: -1\n")
	input := writeFile(t, dir, "batch.json", `[]`)

	_, _, err := runLedgercheck(t, "anomalies", "--config", cfgPath, "--input", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anomaly.z_score_threshold")
}
