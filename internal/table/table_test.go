package table

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestValidateRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		tb   *Table
	}{
		{"nil", nil},
		{"no columns", &Table{}},
		{"ragged", &Table{Columns: []Column{
			{Name: "a", Cells: []Cell{Text("x"), Text("y")}},
			{Name: "b", Cells: []Cell{Text("x")}},
		}}},
		{"duplicate names", &Table{Columns: []Column{
			{Name: "a", Cells: []Cell{Text("x")}},
			{Name: "a", Cells: []Cell{Text("y")}},
		}}},
	}
	for _, c := range cases {
		if err := c.tb.Validate(); !errors.Is(err, ErrMalformedTable) {
			t.Errorf("%s: err = %v, want ErrMalformedTable", c.name, err)
		}
	}
}

func TestNewBuildsColumnsFromRows(t *testing.T) {
	tb, err := New([]string{"a", "b"}, []Kind{KindText, KindFloat}, [][]Cell{
		{Text("x"), Number(1.5)},
		{Missing(), Number(2)},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tb.NumRows() != 2 || tb.NumCols() != 2 {
		t.Fatalf("shape = %dx%d", tb.NumRows(), tb.NumCols())
	}
	if !tb.Columns[0].Cells[1].IsMissing() {
		t.Fatalf("expected missing cell")
	}
	if got := tb.Columns[1].Format(1); got != "2.0" {
		t.Fatalf("float format = %q, want 2.0", got)
	}
	if _, err := New([]string{"a"}, []Kind{KindText}, [][]Cell{{Text("x"), Text("y")}}); !errors.Is(err, ErrMalformedTable) {
		t.Fatalf("expected malformed error for wide row, got %v", err)
	}
}

func TestCellStatesAreDistinct(t *testing.T) {
	m, e, z := Missing(), Text(""), Number(0)
	if !m.IsMissing() || e.IsMissing() || z.IsMissing() {
		t.Fatalf("missing must differ from empty text and zero")
	}
	if s, ok := e.Text(); !ok || s != "" {
		t.Fatalf("empty text lost")
	}
	if _, ok := z.Number(); !ok {
		t.Fatalf("zero lost")
	}
}

func TestCloneIsDeep(t *testing.T) {
	tb, _ := New([]string{"a"}, []Kind{KindText}, [][]Cell{{Text("x")}})
	cp := tb.Clone()
	cp.Columns[0].Cells[0] = Text("changed")
	cp.Columns[0].Name = "z"
	if s, _ := tb.Columns[0].Cells[0].Text(); s != "x" || tb.Columns[0].Name != "a" {
		t.Fatalf("clone shares state with original")
	}
}

func TestKeepRowsAndColumns(t *testing.T) {
	tb, _ := New([]string{"a", "b", "c"}, []Kind{KindText, KindText, KindText}, [][]Cell{
		{Text("1"), Text("2"), Text("3")},
		{Text("4"), Text("5"), Text("6")},
		{Text("7"), Text("8"), Text("9")},
	})
	tb.KeepRows([]bool{true, false, true})
	tb.KeepColumns([]bool{false, true, true})
	if got := strings.Join(tb.Names(), ","); got != "b,c" {
		t.Fatalf("names = %s", got)
	}
	if tb.NumRows() != 2 || tb.Columns[0].Format(1) != "8" {
		t.Fatalf("unexpected rows: %v", tb.Row(1))
	}
}

func TestRenameRejectsDuplicates(t *testing.T) {
	tb, _ := New([]string{"a", "b"}, []Kind{KindText, KindText}, nil)
	if err := tb.Rename([]string{"x", "x"}); !errors.Is(err, ErrMalformedTable) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	if err := tb.Rename([]string{"x", "y"}); err != nil {
		t.Fatalf("rename: %v", err)
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{"A", "A", "A.1", "B", "A"})
	want := []string{"A", "A.2", "A.1", "B", "A.3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Dedupe = %v, want %v", got, want)
		}
	}
}

func TestWriteCSVAndJSON(t *testing.T) {
	tb, _ := New([]string{"name", "val"}, []Kind{KindText, KindInteger}, [][]Cell{
		{Text("a"), Number(3)},
		{Missing(), Missing()},
	})
	var buf bytes.Buffer
	if err := WriteCSV(&buf, tb, 0); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if got := buf.String(); got != "name,val\na,3\n,\n" {
		t.Fatalf("csv = %q", got)
	}
	b, err := json.Marshal(tb.Row(1))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "[null,null]" {
		t.Fatalf("json = %s", b)
	}
	var back []Cell
	if err := json.Unmarshal([]byte(`["x",2.5,null]`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back[0].IsText() || !back[1].IsNumber() || !back[2].IsMissing() {
		t.Fatalf("round trip states wrong: %#v", back)
	}
}
