// Package reader loads delimited text files and XLSX sheets into tables.
//
// Values are read the way a dataframe loader would: configured NA tokens
// become missing cells, blank header cells become "Unnamed: <i>", repeated
// header names get ".1", ".2" suffixes, and each column gets the narrowest
// kind its values allow.
package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/KaramelBytes/tabclean-cli/internal/table"
)

// ErrUnsupported indicates a file extension the reader cannot load.
var ErrUnsupported = errors.New("unsupported table format")

// DefaultNAValues are the cell texts read as missing.
var DefaultNAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// Options controls loading.
type Options struct {
	// Delimiter for delimited text. If 0, chosen from the file extension.
	Delimiter rune
	// NAValues overrides DefaultNAValues when non-nil. Empty cells are
	// always missing.
	NAValues []string
	// SheetName selects an XLSX sheet by name; SheetIndex (1-based) is used
	// when the name is empty.
	SheetName  string
	SheetIndex int
	// Raw disables NFKC folding of cell and header text.
	Raw bool
}

// Extensions lists the file extensions ReadFile accepts.
var Extensions = []string{".csv", ".tsv", ".txt", ".xlsx"}

// Supported reports whether ReadFile can load path.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ReadFile loads path, dispatching on its extension.
func ReadFile(path string, opt Options) (*table.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		if opt.Delimiter == 0 {
			opt.Delimiter = SniffDelimiter(path)
		}
		return ReadDelimited(f, opt)
	case ".xlsx":
		return ReadXLSX(path, opt)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
}

// SniffDelimiter picks the delimiter from the file name.
func SniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// ReadDelimited reads a header line followed by data records.
func ReadDelimited(r io.Reader, opt Options) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if opt.Delimiter != 0 {
		cr.Comma = opt.Delimiter
	}

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", table.ErrMalformedTable)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", table.ErrMalformedTable, line, len(rec), len(header))
		}
		records = append(records, rec)
	}
	return build(header, records, opt)
}

// build turns raw strings into a typed table. Records shorter than the
// header are padded with missing cells.
func build(header []string, records [][]string, opt Options) (*table.Table, error) {
	fold := func(s string) string { return s }
	if !opt.Raw {
		fold = norm.NFKC.String
	}
	na := opt.NAValues
	if na == nil {
		na = DefaultNAValues
	}
	naSet := make(map[string]struct{}, len(na))
	for _, v := range na {
		naSet[v] = struct{}{}
	}

	names := make([]string, len(header))
	for j, h := range header {
		h = strings.TrimSpace(fold(h))
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", j)
		}
		names[j] = h
	}
	names = table.Dedupe(names)

	ncol := len(names)
	raw := make([][]string, ncol)
	present := make([][]bool, ncol)
	for j := range raw {
		raw[j] = make([]string, len(records))
		present[j] = make([]bool, len(records))
	}
	for i, rec := range records {
		for j := 0; j < ncol && j < len(rec); j++ {
			v := fold(rec[j])
			if _, isNA := naSet[v]; isNA || v == "" {
				continue
			}
			raw[j][i] = v
			present[j][i] = true
		}
	}

	t := &table.Table{Columns: make([]table.Column, ncol)}
	for j := range names {
		kind := inferKind(raw[j], present[j])
		cells := make([]table.Cell, len(records))
		for i, v := range raw[j] {
			switch {
			case !present[j][i]:
				cells[i] = table.Missing()
			case kind.Numeric():
				f, _ := parseNumber(v)
				cells[i] = table.Number(f)
			default:
				cells[i] = table.Text(v)
			}
		}
		t.Columns[j] = table.Column{Name: names[j], Kind: kind, Cells: cells}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// inferKind returns integer when every value is an integer and nothing is
// missing, float when every value is numeric (or the column has rows but no
// values at all), text otherwise.
func inferKind(vals []string, present []bool) table.Kind {
	if len(vals) == 0 {
		return table.KindText
	}
	ints, seen, missing := true, 0, false
	for i, v := range vals {
		if !present[i] {
			missing = true
			continue
		}
		seen++
		if _, ok := parseNumber(v); !ok {
			return table.KindText
		}
		if _, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err != nil {
			ints = false
		}
	}
	if seen > 0 && ints && !missing {
		return table.KindInteger
	}
	return table.KindFloat
}

// parseNumber accepts decimal and exponent notation. Hex literals and digit
// separators, which strconv also understands, are rejected.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
