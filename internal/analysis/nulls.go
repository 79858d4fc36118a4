package analysis

import "github.com/KaramelBytes/tabclean-cli/internal/table"

// NaNCountPerRow counts missing cells in each row.
func NaNCountPerRow(t *table.Table) []int {
	out := make([]int, t.NumRows())
	for _, c := range t.Columns {
		for i, cell := range c.Cells {
			if cell.IsMissing() {
				out[i]++
			}
		}
	}
	return out
}

// NaNCountPerColumn counts missing cells in each column.
func NaNCountPerColumn(t *table.Table) []int {
	out := make([]int, t.NumCols())
	for j, c := range t.Columns {
		for _, cell := range c.Cells {
			if cell.IsMissing() {
				out[j]++
			}
		}
	}
	return out
}

// sparseFlags marks counts that reach limit. A non-positive limit disables
// the check so that very small tables are not wiped out entirely.
func sparseFlags(counts []int, limit int) (keep []bool, dropped int) {
	keep = make([]bool, len(counts))
	for i, n := range counts {
		keep[i] = limit <= 0 || n < limit
		if !keep[i] {
			dropped++
		}
	}
	return keep, dropped
}
