package analysis

import "github.com/KaramelBytes/tabclean-cli/internal/table"

// RepairHeader detects header values written into the first data row. When
// every non-missing cell of row 0 is text, it returns names where each
// column with a row-0 value becomes "<name>_<value>"; other columns keep
// their name. ok is false when the repair does not apply. Row 0 itself is
// left to the caller.
//
// An entirely missing row 0 carries no evidence and is not treated as a
// header unless opt.LegacyEmptyHeaderRow is set, in which case the repair
// fires and returns the names unchanged.
func RepairHeader(t *table.Table, opt Options) (names []string, ok bool) {
	if t.NumRows() == 0 {
		return nil, false
	}
	seen := 0
	for _, c := range t.Columns {
		cell := c.Cells[0]
		if cell.IsMissing() {
			continue
		}
		if !cell.IsText() {
			return nil, false
		}
		seen++
	}
	if seen == 0 && !opt.LegacyEmptyHeaderRow {
		return nil, false
	}
	names = t.Names()
	for j := range t.Columns {
		col := &t.Columns[j]
		if col.Cells[0].IsMissing() {
			continue
		}
		names[j] = col.Name + "_" + col.Format(0)
	}
	return names, true
}
