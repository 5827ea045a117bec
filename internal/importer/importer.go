// Package importer loads ledgers from bank CSV exports, generic CSV files and
// JSON record arrays.
//
// Rows whose amount or date cannot be parsed are not dropped: they load as
// transactions with the field missing and the raw text kept, so the matcher
// and the scorer report them per record.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cleared-dev/ledgercheck/internal/model"
)

// Parser converts a ledger file into transactions.
type Parser interface {
	Parse(r io.Reader) ([]model.Transaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a ledger file found by Scan.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats lists the registered format names in sorted order.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	r.Register(&GenericParser{})
	r.Register(&JSONParser{})
	return r
}

// DetectFormat guesses a format from the file extension: .json is json,
// anything else is generic CSV.
func DetectFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatGeneric
}

// LoadFile parses path with the named format, or the detected one when format is empty.
// Each transaction's Source defaults to the file name.
func (r *Registry) LoadFile(path, format string) ([]model.Transaction, error) {
	if format == "" {
		format = DetectFormat(path)
	}
	p := r.Get(format)
	if p == nil {
		return nil, fmt.Errorf("unknown format %q (known: %s)", format, strings.Join(r.Formats(), ", "))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	txns, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", filepath.Base(path), err)
	}
	name := filepath.Base(path)
	for i := range txns {
		if txns[i].Source == "" {
			txns[i].Source = name
		}
	}
	return txns, nil
}

// Scan returns the .csv and .json files directly inside dir, sorted by name.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading ledger dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".csv" && ext != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// LoadPath loads a single file, or every ledger file in a directory
// concatenated in name order. format applies to every file when set.
func (r *Registry) LoadPath(path, format string) ([]model.Transaction, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return r.LoadFile(path, format)
	}

	files, err := Scan(path)
	if err != nil {
		return nil, err
	}
	txns := []model.Transaction{}
	for _, f := range files {
		part, err := r.LoadFile(f.Path, format)
		if err != nil {
			return nil, err
		}
		txns = append(txns, part...)
	}
	return txns, nil
}
