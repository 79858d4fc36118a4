package analysis

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/tabclean-cli/internal/table"
)

// row builds cells from Go values: nil is missing, strings are text and
// numbers are numbers.
func row(vals ...any) []table.Cell {
	out := make([]table.Cell, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case nil:
			out[i] = table.Missing()
		case string:
			out[i] = table.Text(x)
		case int:
			out[i] = table.Number(float64(x))
		case float64:
			out[i] = table.Number(x)
		default:
			panic("unsupported test value")
		}
	}
	return out
}

func mustTable(t *testing.T, names []string, kinds []table.Kind, rows ...[]table.Cell) *table.Table {
	t.Helper()
	if kinds == nil {
		kinds = make([]table.Kind, len(names))
	}
	tb, err := table.New(names, kinds, rows)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	return tb
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) <= 1e-9 }

func TestMatchRateBoundsAndSemantics(t *testing.T) {
	tb := mustTable(t, []string{"a", "b", "c", "d"}, []table.Kind{table.KindText, table.KindText, table.KindFloat, table.KindText},
		row("<5", "2.5", 5.0, nil),
		row("a<5", "2.5x", 1.25, nil),
		row(nil, "12", nil, nil),
		row("< 3", "0.1", 3.5, nil),
	)
	less, err := MatchRate(tb, CensoredPattern)
	if err != nil {
		t.Fatalf("MatchRate: %v", err)
	}
	if !almostEqual(less[0], 0.5) {
		t.Fatalf("less-than rate = %v, want 0.5 (prefix match only)", less[0])
	}
	floats, err := MatchRate(tb, FloatPattern)
	if err != nil {
		t.Fatalf("MatchRate: %v", err)
	}
	if !almostEqual(floats[1], 0.5) {
		t.Fatalf("float rate b = %v, want 0.5", floats[1])
	}
	if !almostEqual(floats[2], 0.75) {
		t.Fatalf("float rate c = %v, want 0.75 (missing counts in denominator)", floats[2])
	}
	if floats[3] != 0 || less[3] != 0 {
		t.Fatalf("all-missing column must have rate 0, got %v/%v", floats[3], less[3])
	}
	for _, rates := range [][]float64{less, floats} {
		for _, r := range rates {
			if r < 0 || r > 1 {
				t.Fatalf("rate %v out of [0,1]", r)
			}
		}
	}
}

func TestMatchRateEmptyTable(t *testing.T) {
	tb := mustTable(t, []string{"a"}, nil)
	rates, err := MatchRate(tb, CensoredPattern)
	if err != nil {
		t.Fatalf("MatchRate: %v", err)
	}
	if rates[0] != 0 {
		t.Fatalf("rate = %v, want 0", rates[0])
	}
}

func TestMatchMaskShape(t *testing.T) {
	tb := mustTable(t, []string{"a", "b"}, nil, row("<1", "x"), row(nil, "<2"), row("y", nil))
	mask, err := MatchMask(tb, CensoredPattern)
	if err != nil {
		t.Fatalf("MatchMask: %v", err)
	}
	if len(mask) != 2 || len(mask[0]) != 3 || len(mask[1]) != 3 {
		t.Fatalf("mask shape = %dx%d", len(mask), len(mask[0]))
	}
	want := [][]bool{{true, false, false}, {false, true, false}}
	for j := range want {
		for i := range want[j] {
			if mask[j][i] != want[j][i] {
				t.Fatalf("mask[%d][%d] = %v", j, i, mask[j][i])
			}
		}
	}
}

func TestInvalidPattern(t *testing.T) {
	tb := mustTable(t, []string{"a"}, nil, row("x"))
	if _, err := MatchRate(tb, "(unclosed"); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("err = %v, want ErrInvalidPattern", err)
	}
	if _, err := MatchMask(tb, "[z-a]"); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("err = %v, want ErrInvalidPattern", err)
	}
}

func TestNaNCountsCrossCheck(t *testing.T) {
	tb := mustTable(t, []string{"a", "b", "c"}, nil,
		row(nil, "x", nil),
		row("y", nil, nil),
		row("z", "w", "v"),
		row(nil, nil, nil),
	)
	perRow := NaNCountPerRow(tb)
	perCol := NaNCountPerColumn(tb)
	sum := func(xs []int) int {
		n := 0
		for _, x := range xs {
			n += x
		}
		return n
	}
	if sum(perRow) != sum(perCol) || sum(perRow) != 7 {
		t.Fatalf("row total %d, column total %d, want 7", sum(perRow), sum(perCol))
	}
	if perRow[3] != 3 || perCol[2] != 3 {
		t.Fatalf("perRow=%v perCol=%v", perRow, perCol)
	}
}

func TestSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"foo", "foo", 1},
		{"abcd", "bcde", 0.75},
		{"tide", "diet", 0.25},
		{"diet", "tide", 0.5},
		{"Value", "value", 0.8},
		{"A", "foo", 0},
	}
	for _, c := range cases {
		if got := similarity(c.a, c.b); !almostEqual(got, c.want) {
			t.Errorf("similarity(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestHeaderSimilarityUsesFirstRows(t *testing.T) {
	tb := mustTable(t, []string{"Name", "Dose"}, nil,
		row("Name", "Dose"),
		row("xx", "yy"),
		row("Name", "Dose"),
	)
	got := HeaderSimilarity(tb, 2)
	if !almostEqual(got[0], 0.5) || !almostEqual(got[1], 0.5) {
		t.Fatalf("similarity over 2 rows = %v, want [0.5 0.5]", got)
	}
	all := HeaderSimilarity(tb, 5)
	if !almostEqual(all[0], 2.0/3.0) {
		t.Fatalf("similarity capped at row count = %v, want 2/3", all[0])
	}
	empty := HeaderSimilarity(mustTable(t, []string{"a"}, nil), 5)
	if empty[0] != 0 {
		t.Fatalf("empty table similarity = %v", empty[0])
	}
}

func TestProfileColumns(t *testing.T) {
	tb := mustTable(t, []string{"site", "level"}, []table.Kind{table.KindText, table.KindFloat},
		row("<1", 1.5),
		row("x", nil),
		row(nil, 2.25),
		row("y", nil),
	)
	rep, err := ProfileColumns(tb, DefaultOptions())
	if err != nil {
		t.Fatalf("ProfileColumns: %v", err)
	}
	order := []string{MetricPercentNaNs, MetricDataType, MetricSimilarToHeader, MetricHasLessThan, MetricTurnToFloat}
	for i, m := range rep.Metrics {
		if m.Name != order[i] {
			t.Fatalf("metric %d = %s, want %s", i, m.Name, order[i])
		}
	}
	if v, _ := rep.Value(MetricPercentNaNs, "site"); !v.IsNA() {
		t.Fatalf("text column missing rate = %v, want NA", v)
	}
	if v, _ := rep.Value(MetricPercentNaNs, "level"); !floatIs(v, 0.5) {
		t.Fatalf("float column missing rate = %v, want 0.5", v)
	}
	if v, _ := rep.Value(MetricDataType, "level"); v.String() != "float" {
		t.Fatalf("kind = %v", v)
	}
	if v, _ := rep.Value(MetricHasLessThan, "site"); !floatIs(v, 0.25) {
		t.Fatalf("less-than rate = %v", v)
	}
	if v, _ := rep.Value(MetricTurnToFloat, "level"); !floatIs(v, 0.5) {
		t.Fatalf("float rate = %v", v)
	}

	opt := DefaultOptions()
	opt.FloatPattern = "("
	if _, err := ProfileColumns(tb, opt); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("err = %v, want ErrInvalidPattern", err)
	}
}

func floatIs(v Value, want float64) bool {
	f, ok := v.Float()
	return ok && almostEqual(f, want)
}

func TestRepairHeader(t *testing.T) {
	tb := mustTable(t, []string{"A", "B", "C"}, nil,
		row("foo", nil, "bar"),
		row("1", "2", "3"),
	)
	names, ok := RepairHeader(tb, DefaultOptions())
	if !ok {
		t.Fatalf("expected repair to fire on all-text first row")
	}
	if got := strings.Join(names, ","); got != "A_foo,B,C_bar" {
		t.Fatalf("names = %s", got)
	}
	if tb.NumRows() != 2 || tb.Columns[0].Name != "A" {
		t.Fatalf("RepairHeader must not modify the table")
	}
}

func TestRepairHeaderNoOpIsIdempotent(t *testing.T) {
	tb := mustTable(t, []string{"A", "B"}, []table.Kind{table.KindText, table.KindInteger},
		row("foo", 3),
		row("bar", 4),
	)
	for i := 0; i < 2; i++ {
		if names, ok := RepairHeader(tb, DefaultOptions()); ok || names != nil {
			t.Fatalf("run %d: repair fired on numeric first row: %v", i, names)
		}
	}
	if strings.Join(tb.Names(), ",") != "A,B" {
		t.Fatalf("names changed: %v", tb.Names())
	}
}

func TestRepairHeaderEmptyFirstRow(t *testing.T) {
	tb := mustTable(t, []string{"A", "B"}, nil,
		row(nil, nil),
		row("x", "y"),
	)
	if _, ok := RepairHeader(tb, DefaultOptions()); ok {
		t.Fatalf("all-missing first row must not trigger the repair by default")
	}
	opt := DefaultOptions()
	opt.LegacyEmptyHeaderRow = true
	names, ok := RepairHeader(tb, opt)
	if !ok {
		t.Fatalf("legacy mode should fire on an all-missing first row")
	}
	if strings.Join(names, ",") != "A,B" {
		t.Fatalf("legacy names = %v, want unchanged", names)
	}
	if _, ok := RepairHeader(mustTable(t, []string{"A"}, nil), opt); ok {
		t.Fatalf("table without rows has no first row")
	}
}

func TestNormalizeCensored(t *testing.T) {
	tb := mustTable(t, []string{"a", "b"}, nil,
		row("<10", "ok"),
		row("< 4", "<abc"),
		row("a<5", nil),
	)
	n, failures, err := NormalizeCensored(tb, DefaultOptions())
	if err != nil {
		t.Fatalf("NormalizeCensored: %v", err)
	}
	if n != 2 {
		t.Fatalf("replaced = %d, want 2", n)
	}
	if v, ok := tb.Columns[0].Cells[0].Number(); !ok || v != 5.0 {
		t.Fatalf("<10 became %v", tb.Columns[0].Cells[0])
	}
	if v, ok := tb.Columns[0].Cells[1].Number(); !ok || v != 2.0 {
		t.Fatalf("< 4 became %v", tb.Columns[0].Cells[1])
	}
	if s, _ := tb.Columns[0].Cells[2].Text(); s != "a<5" {
		t.Fatalf("non-prefix marker must be untouched, got %v", tb.Columns[0].Cells[2])
	}
	if len(failures) != 1 || failures[0].Column != "b" || failures[0].Row != 1 {
		t.Fatalf("failures = %#v", failures)
	}
	if s, _ := tb.Columns[1].Cells[1].Text(); s != "<abc" {
		t.Fatalf("unparsable cell must be left as is, got %v", tb.Columns[1].Cells[1])
	}

	again, failures2, err := NormalizeCensored(tb, DefaultOptions())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again != 0 || len(failures2) != 1 {
		t.Fatalf("second run replaced %d (failures %d), want 0 (1)", again, len(failures2))
	}
}

func TestRowDropThreshold(t *testing.T) {
	kinds := []table.Kind{table.KindInteger, table.KindText, table.KindText, table.KindText, table.KindText}
	tb := mustTable(t, []string{"a", "b", "c", "d", "e"}, kinds,
		row(1, nil, nil, nil, nil),
		row(2, "y", nil, nil, nil),
		row(3, "2", "3", "4", "5"),
		row(4, "2", "3", "4", "5"),
		row(5, "2", "3", "4", "5"),
		row(6, "2", "3", "4", "5"),
	)
	res, err := Clean("rows", tb, DefaultOptions())
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if res.Table.NumRows() != 5 {
		t.Fatalf("rows = %d, want 5 (4-missing row dropped, 3-missing row kept)", res.Table.NumRows())
	}
	if res.Count(RuleDropSparseRow) != 1 || res.Actions[0].Row != 0 {
		t.Fatalf("actions = %#v", res.Actions)
	}
}

func TestColumnDropThreshold(t *testing.T) {
	rows := make([][]table.Cell, 10)
	for i := range rows {
		var sparse, medium any
		if i >= 7 {
			sparse = "s"
		}
		if i >= 6 {
			medium = "m"
		}
		rows[i] = row(i, 2.5, sparse, medium)
	}
	kinds := []table.Kind{table.KindInteger, table.KindFloat, table.KindText, table.KindText}
	tb := mustTable(t, []string{"a", "b", "sparse", "medium"}, kinds, rows...)
	res, err := Clean("cols", tb, DefaultOptions())
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if got := strings.Join(res.Table.Names(), ","); got != "a,b,medium" {
		t.Fatalf("columns = %s, want a,b,medium (7 missing dropped, 6 kept)", got)
	}
	// The report still covers every input column by name.
	if _, ok := res.Report.Value(MetricPercentNaNs, "sparse"); !ok {
		t.Fatalf("report lost dropped column")
	}
}

func TestCleanEndToEnd(t *testing.T) {
	in := mustTable(t, []string{"A", "B"}, nil,
		row("foo", "bar"),
		row("<4", "2.5"),
		row(nil, nil),
	)
	res, err := Clean("scenario_1", in, DefaultOptions())
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if got := strings.Join(res.Table.Names(), ","); got != "A_foo,B_bar" {
		t.Fatalf("names = %s", got)
	}
	if res.Table.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", res.Table.NumRows())
	}
	if s, _ := res.Table.Columns[0].Cells[0].Text(); s != "foo" {
		t.Fatalf("first row must stay as data, got %v", res.Table.Columns[0].Cells[0])
	}
	if v, ok := res.Table.Columns[0].Cells[1].Number(); !ok || v != 2.0 {
		t.Fatalf("<4 became %v, want 2", res.Table.Columns[0].Cells[1])
	}
	if res.RowsIn != 3 || res.ColsIn != 2 {
		t.Fatalf("input shape = %dx%d", res.RowsIn, res.ColsIn)
	}
	if v, _ := res.Report.Value(MetricHasLessThan, "A"); !floatIs(v, 1.0/3.0) {
		t.Fatalf("report has_less_than[A] = %v", v)
	}
	if v, _ := res.Report.Value(MetricTurnToFloat, "B"); !floatIs(v, 1.0/3.0) {
		t.Fatalf("report turn_to_float[B] = %v", v)
	}
	for _, rule := range []string{RuleHeaderFromFirstRow, RuleDropSparseRow, RuleCensoredHalved} {
		if res.Count(rule) == 0 {
			t.Fatalf("missing %s action in %#v", rule, res.Actions)
		}
	}
	for _, a := range res.Actions {
		if a.Rule == RuleCensoredHalved && a.Row != 1 {
			t.Fatalf("censored action row = %d, want input row 1", a.Row)
		}
	}
	// Input untouched.
	if in.Columns[0].Name != "A" || in.NumRows() != 3 {
		t.Fatalf("input table was modified")
	}
	if s, _ := in.Columns[0].Cells[1].Text(); s != "<4" {
		t.Fatalf("input cell was modified")
	}

	md := res.Markdown()
	for _, want := range []string{"[TABLE DIAGNOSTICS]", "Table: scenario_1", "Rows: 3 -> 2", "[COLUMN METRICS]", "| percent_nans | NA | NA |", "[ACTIONS]", "[CLEANED HEAD]"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestCleanDedupesSynthesizedNames(t *testing.T) {
	in := mustTable(t, []string{"A_x", "A"}, nil,
		row(nil, "x"),
		row("1", "2"),
	)
	res, err := Clean("dupes", in, DefaultOptions())
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if got := strings.Join(res.Table.Names(), ","); got != "A_x,A_x.1" {
		t.Fatalf("names = %s", got)
	}
}

func TestCleanErrorsCarryTableName(t *testing.T) {
	_, err := Clean("broken", &table.Table{}, DefaultOptions())
	var te *TableError
	if !errors.As(err, &te) || te.Table != "broken" || !errors.Is(err, table.ErrMalformedTable) {
		t.Fatalf("err = %v, want TableError wrapping ErrMalformedTable", err)
	}

	opt := DefaultOptions()
	opt.CensoredPattern = "[<"
	_, err = Clean("badpattern", mustTable(t, []string{"a"}, nil, row("x")), opt)
	if !errors.As(err, &te) || te.Table != "badpattern" || !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("err = %v, want TableError wrapping ErrInvalidPattern", err)
	}
}

func TestCleanRecordsConversionFailures(t *testing.T) {
	in := mustTable(t, []string{"a", "b"}, nil,
		row("<n.d.", "1"),
		row("2", "3"),
	)
	res, err := Clean("failures", in, DefaultOptions())
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if res.Count(RuleCensoredUnparsed) != 1 {
		t.Fatalf("actions = %#v", res.Actions)
	}
	if s, _ := res.Table.Columns[0].Cells[0].Text(); s != "<n.d." {
		t.Fatalf("cell changed: %v", res.Table.Columns[0].Cells[0])
	}
}
