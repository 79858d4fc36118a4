// Package analysis implements the table cleaning pipeline: diagnostic
// profiling of a raw table followed by a fixed sequence of heuristic repairs.
package analysis

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tabclean-cli/internal/table"
)

// Options controls one pipeline run.
type Options struct {
	// HeaderSampleRows is how many leading rows are compared with the header
	// names. Values <= 0 fall back to 5.
	HeaderSampleRows int
	// RowSlack: a row is dropped when its missing count reaches
	// columnCount - RowSlack.
	RowSlack int
	// ColumnSlack: a column is dropped when its missing count reaches
	// rowCount - ColumnSlack, counted after row pruning.
	ColumnSlack int
	// FloatPattern and CensoredPattern override the built-in patterns.
	FloatPattern    string
	CensoredPattern string
	// LegacyEmptyHeaderRow lets an all-missing first row trigger the header
	// repair, as older runs did.
	LegacyEmptyHeaderRow bool
	// Logger receives pass-level debug events. Nil disables logging.
	Logger *zap.Logger
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		HeaderSampleRows: 5,
		RowSlack:         1,
		ColumnSlack:      3,
		FloatPattern:     FloatPattern,
		CensoredPattern:  CensoredPattern,
	}
}

func (o Options) withDefaults() Options {
	if o.HeaderSampleRows <= 0 {
		o.HeaderSampleRows = 5
	}
	if o.FloatPattern == "" {
		o.FloatPattern = FloatPattern
	}
	if o.CensoredPattern == "" {
		o.CensoredPattern = CensoredPattern
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// TableError ties a fatal pipeline failure to the table it happened on so a
// driver can skip that table and carry on.
type TableError struct {
	Table string
	Err   error
}

func (e *TableError) Error() string { return fmt.Sprintf("table %s: %v", e.Table, e.Err) }
func (e *TableError) Unwrap() error { return e.Err }

// Clean runs the full pipeline on in and returns the diagnostic report and
// the cleaned copy. in is not modified.
//
// Order: profile (missing rate, kinds, header similarity, float and
// less-than rates), header repair, sparse row pruning, sparse column pruning
// on the row-pruned table, censored value normalization.
func Clean(name string, in *table.Table, opt Options) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, &TableError{Table: name, Err: err}
	}
	opt = opt.withDefaults()
	log := opt.Logger.With(zap.String("table", name))

	floats, err := Compile(opt.FloatPattern)
	if err != nil {
		return nil, &TableError{Table: name, Err: err}
	}
	censored, err := Compile(opt.CensoredPattern)
	if err != nil {
		return nil, &TableError{Table: name, Err: err}
	}

	res := &Result{
		Name:   name,
		Report: profile(in, opt.HeaderSampleRows, floats, censored),
		RowsIn: in.NumRows(),
		ColsIn: in.NumCols(),
	}
	log.Debug("profiled columns", zap.Int("rows", res.RowsIn), zap.Int("cols", res.ColsIn))

	t := in.Clone()
	// origin[i] is the input row index of current row i.
	origin := make([]int, t.NumRows())
	for i := range origin {
		origin[i] = i
	}

	if names, ok := RepairHeader(t, opt); ok {
		names = table.Dedupe(names)
		for j, n := range names {
			if n != t.Columns[j].Name {
				res.Actions = append(res.Actions, Action{Rule: RuleHeaderFromFirstRow, Column: t.Columns[j].Name, Row: -1, Detail: fmt.Sprintf("renamed to %q", n)})
			}
		}
		if err := t.Rename(names); err != nil {
			return nil, &TableError{Table: name, Err: fmt.Errorf("apply header repair: %w", err)}
		}
		log.Debug("header found in first row", zap.Strings("names", names))
	}

	rowCounts := NaNCountPerRow(t)
	keepRows, dropped := sparseFlags(rowCounts, t.NumCols()-opt.RowSlack)
	if dropped > 0 {
		kept := origin[:0]
		for i, keep := range keepRows {
			if !keep {
				res.Actions = append(res.Actions, Action{Rule: RuleDropSparseRow, Row: origin[i], Detail: fmt.Sprintf("%d of %d cells missing", rowCounts[i], t.NumCols())})
				continue
			}
			kept = append(kept, origin[i])
		}
		origin = kept
		t.KeepRows(keepRows)
		log.Debug("dropped sparse rows", zap.Int("dropped", dropped))
	}

	colCounts := NaNCountPerColumn(t)
	keepCols, dropped := sparseFlags(colCounts, t.NumRows()-opt.ColumnSlack)
	if dropped > 0 {
		for j, keep := range keepCols {
			if !keep {
				res.Actions = append(res.Actions, Action{Rule: RuleDropSparseColumn, Column: t.Columns[j].Name, Row: -1, Detail: fmt.Sprintf("%d of %d cells missing", colCounts[j], t.NumRows())})
			}
		}
		t.KeepColumns(keepCols)
		log.Debug("dropped sparse columns", zap.Int("dropped", dropped))
	}

	replaced, failures := normalizeCensored(t, censored, func(col string, row int, from string, to float64) {
		res.Actions = append(res.Actions, Action{Rule: RuleCensoredHalved, Column: col, Row: origin[row], Detail: fmt.Sprintf("%q -> %g", from, to)})
	})
	for _, f := range failures {
		res.Actions = append(res.Actions, Action{Rule: RuleCensoredUnparsed, Column: f.Column, Row: origin[f.Row], Detail: fmt.Sprintf("left %q unchanged: %v", f.Value, f.Err)})
		log.Warn("censored value not converted", zap.String("column", f.Column), zap.Int("row", origin[f.Row]), zap.Error(f.Err))
	}
	if replaced > 0 {
		log.Debug("normalized censored values", zap.Int("replaced", replaced))
	}

	res.Table = t
	return res, nil
}
