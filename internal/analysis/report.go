package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/tabclean-cli/internal/table"
)

// Metric row labels, in report order.
const (
	MetricPercentNaNs     = "percent_nans"
	MetricDataType        = "data_type"
	MetricSimilarToHeader = "data_similar_to_colname"
	MetricHasLessThan     = "has_less_than"
	MetricTurnToFloat     = "turn_to_float"
)

type valueKind uint8

const (
	valueNA valueKind = iota
	valueFloat
	valueText
)

// Value is one report cell: not applicable, a number, or a label.
type Value struct {
	kind valueKind
	f    float64
	s    string
}

// NotApplicable marks a metric that has no meaning for a column.
func NotApplicable() Value { return Value{} }

// Float wraps a numeric metric.
func Float(f float64) Value { return Value{kind: valueFloat, f: f} }

// Label wraps a textual metric such as a kind name.
func Label(s string) Value { return Value{kind: valueText, s: s} }

func (v Value) IsNA() bool { return v.kind == valueNA }

// Float returns the numeric payload and whether there is one.
func (v Value) Float() (float64, bool) { return v.f, v.kind == valueFloat }

// Label returns the textual payload and whether there is one.
func (v Value) Label() (string, bool) { return v.s, v.kind == valueText }

func (v Value) String() string {
	switch v.kind {
	case valueFloat:
		return fmt.Sprintf("%.4g", v.f)
	case valueText:
		return v.s
	}
	return "NA"
}

// MarshalJSON writes NA as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case valueFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.f)
	case valueText:
		return json.Marshal(v.s)
	}
	return []byte("null"), nil
}

// MarshalYAML writes NA as null.
func (v Value) MarshalYAML() (any, error) {
	switch v.kind {
	case valueFloat:
		return v.f, nil
	case valueText:
		return v.s, nil
	}
	return nil, nil
}

// Metric is one labeled row of the diagnostic report, keyed by the original
// column name.
type Metric struct {
	Name   string           `json:"name" yaml:"name"`
	Values map[string]Value `json:"values" yaml:"values"`
}

// Report is the diagnostic summary: metrics × original columns.
type Report struct {
	Columns []string `json:"columns" yaml:"columns"`
	Metrics []Metric `json:"metrics" yaml:"metrics"`
}

func newReport(columns []string) *Report {
	cp := make([]string, len(columns))
	copy(cp, columns)
	return &Report{Columns: cp}
}

func (r *Report) add(name string, vals []Value) {
	m := Metric{Name: name, Values: make(map[string]Value, len(vals))}
	for j, v := range vals {
		m.Values[r.Columns[j]] = v
	}
	r.Metrics = append(r.Metrics, m)
}

// Metric returns the named metric row.
func (r *Report) Metric(name string) (Metric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// Value returns one metric for one original column.
func (r *Report) Value(metric, column string) (Value, bool) {
	m, ok := r.Metric(metric)
	if !ok {
		return Value{}, false
	}
	v, ok := m.Values[column]
	return v, ok
}

// Action records one repair the pipeline applied.
type Action struct {
	Rule   string `json:"rule" yaml:"rule"`
	Column string `json:"column,omitempty" yaml:"column,omitempty"`
	// Row is the 0-based row index in the input table, -1 when not row-specific.
	Row    int    `json:"row" yaml:"row"`
	Detail string `json:"detail" yaml:"detail"`
}

// Action rules.
const (
	RuleHeaderFromFirstRow = "header_from_first_row"
	RuleDropSparseRow      = "drop_sparse_row"
	RuleDropSparseColumn   = "drop_sparse_column"
	RuleCensoredHalved     = "censored_value_halved"
	RuleCensoredUnparsed   = "censored_value_unparsed"
)

// Result is what one pipeline run produces for one table.
type Result struct {
	Name    string       `json:"name" yaml:"name"`
	Report  *Report      `json:"report" yaml:"report"`
	Table   *table.Table `json:"table" yaml:"table"`
	Actions []Action     `json:"actions" yaml:"actions"`
	RowsIn  int          `json:"rows_in" yaml:"rows_in"`
	ColsIn  int          `json:"cols_in" yaml:"cols_in"`
}

// Count returns how many actions used rule.
func (r *Result) Count(rule string) int {
	n := 0
	for _, a := range r.Actions {
		if a.Rule == rule {
			n++
		}
	}
	return n
}

// Markdown renders a compact report suitable for review or standalone docs.
func (r *Result) Markdown() string {
	var b strings.Builder
	b.WriteString("[TABLE DIAGNOSTICS]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("Table: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d -> %d\n", r.RowsIn, r.Table.NumRows()))
	b.WriteString(fmt.Sprintf("Columns: %d -> %d\n", r.ColsIn, r.Table.NumCols()))

	if r.Report != nil && len(r.Report.Columns) > 0 {
		b.WriteString("\n[COLUMN METRICS]\n")
		b.WriteString("| metric")
		for _, c := range r.Report.Columns {
			b.WriteString(" | ")
			b.WriteString(safeVal(safeName(c)))
		}
		b.WriteString(" |\n|---")
		for range r.Report.Columns {
			b.WriteString("|---")
		}
		b.WriteString("|\n")
		for _, m := range r.Report.Metrics {
			b.WriteString("| ")
			b.WriteString(m.Name)
			for _, c := range r.Report.Columns {
				b.WriteString(" | ")
				b.WriteString(safeVal(m.Values[c].String()))
			}
			b.WriteString(" |\n")
		}
	}

	if len(r.Actions) > 0 {
		b.WriteString("\n[ACTIONS]\n")
		for _, a := range r.Actions {
			b.WriteString("- ")
			b.WriteString(a.Rule)
			if a.Column != "" {
				b.WriteString(fmt.Sprintf(" [%s]", safeName(a.Column)))
			}
			if a.Row >= 0 {
				b.WriteString(fmt.Sprintf(" row %d", a.Row))
			}
			if a.Detail != "" {
				b.WriteString(": ")
				b.WriteString(safeVal(a.Detail))
			}
			b.WriteString("\n")
		}
	}

	if t := r.Table; t != nil && t.NumCols() > 0 {
		b.WriteString("\n[CLEANED HEAD]\n| ")
		b.WriteString(strings.Join(mapStrings(t.Names(), func(s string) string { return safeVal(safeName(s)) }), " | "))
		b.WriteString(" |\n|")
		b.WriteString(strings.Repeat("---|", t.NumCols()))
		b.WriteString("\n")
		for i := 0; i < t.NumRows() && i < 5; i++ {
			b.WriteString("| ")
			for j := range t.Columns {
				if j > 0 {
					b.WriteString(" | ")
				}
				val := t.Columns[j].Format(i)
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

func mapStrings(in []string, f func(string) string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = f(s)
	}
	return out
}
