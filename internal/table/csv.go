package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the header and every row. Missing cells become empty
// fields; numbers use the column's string projection.
func WriteCSV(w io.Writer, t *Table, comma rune) error {
	cw := csv.NewWriter(w)
	if comma != 0 {
		cw.Comma = comma
	}
	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j := range t.Columns {
			rec[j] = t.Columns[j].Format(i)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
