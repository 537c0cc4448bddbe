// Package export reads the community survey CSV and renders it as CSV or JSON.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 200
	MaxLimit     = 1000
)

const bom = "\ufeff"

var ErrEmptyFile = errors.New("survey file has no header")

// Table is the header row and the data rows, each padded to the header width.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ParseLimit returns the requested row count clamped to 1..MaxLimit. An
// empty or non-numeric value yields DefaultLimit.
func ParseLimit(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return DefaultLimit
	}
	return min(MaxLimit, max(1, n))
}

func ReadFile(path string, limit int) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open survey file: %w", err)
	}
	defer f.Close()
	return Read(f, limit)
}

// Read parses at most limit data rows. Blank lines are skipped and a leading
// byte order mark is dropped.
func Read(r io.Reader, limit int) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read survey file: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte(bom))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("parse survey header: %w", err)
	}
	t := &Table{Headers: trimAll(header), Rows: [][]string{}}

	for len(t.Rows) < limit {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse survey row %d: %w", len(t.Rows)+1, err)
		}
		if blank(rec) {
			continue
		}
		row := make([]string, len(t.Headers))
		for i := range row {
			if i < len(rec) {
				row[i] = strings.TrimSpace(rec[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteCSV writes the table with CRLF line endings, quoting fields as needed.
// An empty table writes nothing.
func (t *Table) WriteCSV(w io.Writer) error {
	if len(t.Rows) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// Records returns one map per row keyed by header.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			rec[h] = row[i]
		}
		out = append(out, rec)
	}
	return out
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func blank(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
