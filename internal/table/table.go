// Package table holds the in-memory tabular model shared by the loaders, the
// cleaning pipeline and the writers.
package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedTable is returned when a table has no columns, ragged columns or
// duplicate column names.
var ErrMalformedTable = errors.New("malformed table")

// Kind is the declared value kind of a column.
type Kind uint8

const (
	KindText Kind = iota
	KindInteger
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Numeric reports whether the kind holds numbers.
func (k Kind) Numeric() bool { return k == KindInteger || k == KindFloat }

// MarshalText renders the kind by name in JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string", "object":
		return KindText, nil
	case "integer", "int", "int64":
		return KindInteger, nil
	case "float", "float64", "number":
		return KindFloat, nil
	}
	return KindText, fmt.Errorf("unknown column kind %q", s)
}

// Column is a named sequence of cells with a declared kind.
type Column struct {
	Name  string `json:"name" yaml:"name"`
	Kind  Kind   `json:"kind" yaml:"kind"`
	Cells []Cell `json:"cells" yaml:"cells"`
}

// Format returns the string projection of cell i. Missing cells project to
// "". Numbers in float columns always carry a decimal point so that 5 reads
// as "5.0", the way a float column prints.
func (c *Column) Format(i int) string {
	cell := c.Cells[i]
	switch cell.state {
	case stateText:
		return cell.text
	case stateNumber:
		s := strconv.FormatFloat(cell.num, 'f', -1, 64)
		if c.Kind == KindFloat && !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	}
	return ""
}

// Table is an ordered set of equally long columns.
type Table struct {
	Columns []Column `json:"columns" yaml:"columns"`
}

// New builds a table from column names, kinds and row-major cells. It is
// mostly a convenience for loaders and tests; the result is validated.
func New(names []string, kinds []Kind, rows [][]Cell) (*Table, error) {
	if len(kinds) != len(names) {
		return nil, fmt.Errorf("%w: %d names but %d kinds", ErrMalformedTable, len(names), len(kinds))
	}
	t := &Table{Columns: make([]Column, len(names))}
	for j, name := range names {
		t.Columns[j] = Column{Name: name, Kind: kinds[j], Cells: make([]Cell, len(rows))}
	}
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrMalformedTable, i, len(row), len(names))
		}
		for j, cell := range row {
			t.Columns[j].Cells[i] = cell
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the structural invariants of the table.
func (t *Table) Validate() error {
	if t == nil || len(t.Columns) == 0 {
		return fmt.Errorf("%w: no columns", ErrMalformedTable)
	}
	n := len(t.Columns[0].Cells)
	seen := make(map[string]int, len(t.Columns))
	for j, c := range t.Columns {
		if len(c.Cells) != n {
			return fmt.Errorf("%w: column %q has %d cells, want %d", ErrMalformedTable, c.Name, len(c.Cells), n)
		}
		if prev, ok := seen[c.Name]; ok {
			return fmt.Errorf("%w: duplicate column name %q at %d and %d", ErrMalformedTable, c.Name, prev, j)
		}
		seen[c.Name] = j
	}
	return nil
}

// NumRows returns the row count (0 for a table without columns).
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.Columns) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = c.Name
	}
	return out
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	for j := range t.Columns {
		if t.Columns[j].Name == name {
			return &t.Columns[j], true
		}
	}
	return nil, false
}

// Row returns a copy of row i across all columns.
func (t *Table) Row(i int) []Cell {
	out := make([]Cell, len(t.Columns))
	for j := range t.Columns {
		out[j] = t.Columns[j].Cells[i]
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for j, c := range t.Columns {
		cells := make([]Cell, len(c.Cells))
		copy(cells, c.Cells)
		out.Columns[j] = Column{Name: c.Name, Kind: c.Kind, Cells: cells}
	}
	return out
}

// Rename replaces all column names at once. The new names must be unique.
func (t *Table) Rename(names []string) error {
	if len(names) != len(t.Columns) {
		return fmt.Errorf("rename: got %d names for %d columns", len(names), len(t.Columns))
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			return fmt.Errorf("%w: duplicate column name %q", ErrMalformedTable, n)
		}
		seen[n] = struct{}{}
	}
	for j := range t.Columns {
		t.Columns[j].Name = names[j]
	}
	return nil
}

// KeepRows retains the rows whose flag is true, in order.
func (t *Table) KeepRows(keep []bool) {
	for j := range t.Columns {
		c := &t.Columns[j]
		out := c.Cells[:0]
		for i, cell := range c.Cells {
			if keep[i] {
				out = append(out, cell)
			}
		}
		c.Cells = out
	}
}

// KeepColumns retains the columns whose flag is true, in order.
func (t *Table) KeepColumns(keep []bool) {
	out := t.Columns[:0]
	for j, c := range t.Columns {
		if keep[j] {
			out = append(out, c)
		}
	}
	t.Columns = out
}

// Dedupe makes names unique by suffixing repeats with ".1", ".2", ...
func Dedupe(names []string) []string {
	out := make([]string, len(names))
	used := make(map[string]struct{}, len(names))
	for _, n := range names {
		used[n] = struct{}{}
	}
	seen := make(map[string]int, len(names))
	for i, n := range names {
		if _, dup := seen[n]; !dup {
			seen[n] = 0
			out[i] = n
			continue
		}
		for {
			seen[n]++
			cand := fmt.Sprintf("%s.%d", n, seen[n])
			if _, taken := used[cand]; !taken {
				used[cand] = struct{}{}
				out[i] = cand
				break
			}
		}
	}
	return out
}
