// Package runlog keeps an append-only CSV record of reconcile and anomaly runs.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Run commands.
const (
	CommandReconcile = "reconcile"
	CommandAnomalies = "anomalies"
	CommandSuggest   = "suggest"
)

// Run origins.
const (
	OriginCLI = "cli"
	OriginAPI = "api"
)

// Entry is one row in the run log.
type Entry struct {
	Timestamp time.Time
	RunID     string
	Command   string
	Origin    string
	Inputs    string // file names or request description
	Records   int    // transactions examined
	Flagged   int    // unmatched, invalid or review-worthy records
	Status    string
}

// Header is the CSV header of the run log.
const Header = "timestamp,run_id,command,origin,inputs,records,flagged,status"

const (
	numFields    = 8
	colTimestamp = 0
	colRunID     = 1
	colCommand   = 2
	colOrigin    = 3
	colInputs    = 4
	colRecords   = 5
	colFlagged   = 6
	colStatus    = 7
)

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colCommand] = e.Command
	row[colOrigin] = e.Origin
	row[colInputs] = e.Inputs
	row[colRecords] = strconv.Itoa(e.Records)
	row[colFlagged] = strconv.Itoa(e.Flagged)
	row[colStatus] = e.Status
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	if _, err := uuid.Parse(record[colRunID]); err != nil {
		return Entry{}, fmt.Errorf("parsing run id %q: %w", record[colRunID], err)
	}
	records, err := strconv.Atoi(record[colRecords])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing records %q: %w", record[colRecords], err)
	}
	flagged, err := strconv.Atoi(record[colFlagged])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing flagged %q: %w", record[colFlagged], err)
	}

	return Entry{
		Timestamp: ts,
		RunID:     record[colRunID],
		Command:   record[colCommand],
		Origin:    record[colOrigin],
		Inputs:    record[colInputs],
		Records:   records,
		Flagged:   flagged,
		Status:    record[colStatus],
	}, nil
}

// Append writes entries to path, creating the file, its directory and the
// header if needed.
func Append(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating run log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries in path. A missing file yields no entries.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Log serialises appends from concurrent requests. A Log with an empty path
// records nothing.
type Log struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New returns a Log writing to path.
func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Record stamps e with the current time when it has none and appends it.
func (l *Log) Record(e Entry) error {
	if l == nil || l.path == "" {
		return nil
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return Append(l.path, []Entry{e})
}
