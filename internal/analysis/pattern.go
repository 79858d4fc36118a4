package analysis

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/KaramelBytes/tabclean-cli/internal/table"
)

// ErrInvalidPattern is returned when a match pattern does not compile.
var ErrInvalidPattern = errors.New("invalid pattern")

const (
	// FloatPattern is the classic float-literal shape: digits '.' digits.
	FloatPattern = `^\d+?\.\d+?$`
	// CensoredPattern marks a below-detection-limit value such as "<5".
	CensoredPattern = `<`
)

// Matcher tests cells against a pattern anchored at the start of the cell
// text. A prefix match is enough; the pattern need not consume the cell.
type Matcher struct {
	src string
	raw *regexp.Regexp
	re  *regexp.Regexp
}

// Compile validates pattern and returns a reusable Matcher.
func Compile(pattern string) (*Matcher, error) {
	raw, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	return &Matcher{src: pattern, raw: raw, re: re}, nil
}

// String returns the source pattern.
func (m *Matcher) String() string { return m.src }

// Strip removes every occurrence of the pattern from s.
func (m *Matcher) Strip(s string) string { return m.raw.ReplaceAllString(s, "") }

// MatchCell reports whether cell i of col matches. Missing cells never do.
func (m *Matcher) MatchCell(col *table.Column, i int) bool {
	if col.Cells[i].IsMissing() {
		return false
	}
	return m.re.MatchString(col.Format(i))
}

// Mask returns a column-major grid: mask[j][i] is cell (row i, column j).
func (m *Matcher) Mask(t *table.Table) [][]bool {
	out := make([][]bool, t.NumCols())
	for j := range t.Columns {
		col := &t.Columns[j]
		out[j] = make([]bool, len(col.Cells))
		for i := range col.Cells {
			out[j][i] = m.MatchCell(col, i)
		}
	}
	return out
}

// Rates returns, per column, matching cells over all cells (missing cells
// count in the denominator). An empty column has rate 0.
func (m *Matcher) Rates(t *table.Table) []float64 {
	out := make([]float64, t.NumCols())
	for j := range t.Columns {
		col := &t.Columns[j]
		if len(col.Cells) == 0 {
			continue
		}
		hits := 0
		for i := range col.Cells {
			if m.MatchCell(col, i) {
				hits++
			}
		}
		out[j] = float64(hits) / float64(len(col.Cells))
	}
	return out
}

// MatchRate compiles pattern and returns Rates over t.
func MatchRate(t *table.Table, pattern string) ([]float64, error) {
	m, err := Compile(pattern)
	if err != nil {
		return nil, err
	}
	return m.Rates(t), nil
}

// MatchMask compiles pattern and returns Mask over t.
func MatchMask(t *table.Table, pattern string) ([][]bool, error) {
	m, err := Compile(pattern)
	if err != nil {
		return nil, err
	}
	return m.Mask(t), nil
}
