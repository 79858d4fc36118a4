package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tabclean-cli/internal/table"
)

// ConversionFailure is a censored cell whose limit did not parse as a
// number. The cell is left as it was.
type ConversionFailure struct {
	Column string
	Row    int
	Value  string
	Err    error
}

func (f ConversionFailure) Error() string {
	return fmt.Sprintf("column %q row %d: cannot convert %q: %v", f.Column, f.Row, f.Value, f.Err)
}

func (f ConversionFailure) Unwrap() error { return f.Err }

// NormalizeCensored rewrites every cell, in any column, that starts with the
// censored marker: the markers are removed and the cell becomes half the
// remaining limit ("<10" becomes 5). Cells whose limit does not parse are
// reported and left unmodified. It returns the number of replaced cells.
func NormalizeCensored(t *table.Table, opt Options) (int, []ConversionFailure, error) {
	m, err := Compile(opt.withDefaults().CensoredPattern)
	if err != nil {
		return 0, nil, err
	}
	n, failures := normalizeCensored(t, m, nil)
	return n, failures, nil
}

// normalizeCensored applies the repair in place. onReplace, if set, sees
// each replacement with the original text.
func normalizeCensored(t *table.Table, m *Matcher, onReplace func(col string, row int, from string, to float64)) (int, []ConversionFailure) {
	var (
		replaced int
		failures []ConversionFailure
	)
	mask := m.Mask(t)
	for j := range t.Columns {
		col := &t.Columns[j]
		for i, hit := range mask[j] {
			if !hit {
				continue
			}
			raw := col.Format(i)
			limit, err := strconv.ParseFloat(strings.TrimSpace(m.Strip(raw)), 64)
			if err != nil {
				failures = append(failures, ConversionFailure{Column: col.Name, Row: i, Value: raw, Err: err})
				continue
			}
			col.Cells[i] = table.Number(limit / 2)
			replaced++
			if onReplace != nil {
				onReplace(col.Name, i, raw, limit/2)
			}
		}
	}
	return replaced, failures
}
