package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tabclean-cli/internal/table"
)

// ProfileColumns computes the per-column diagnostic metrics of t and returns
// them as a Report aligned with t's columns.
func ProfileColumns(t *table.Table, opt Options) (*Report, error) {
	opt = opt.withDefaults()
	floats, err := Compile(opt.FloatPattern)
	if err != nil {
		return nil, err
	}
	censored, err := Compile(opt.CensoredPattern)
	if err != nil {
		return nil, err
	}
	return profile(t, opt.HeaderSampleRows, floats, censored), nil
}

func profile(t *table.Table, sampleRows int, floats, censored *Matcher) *Report {
	rep := newReport(t.Names())
	rep.add(MetricPercentNaNs, missingRates(t))
	rep.add(MetricDataType, declaredKinds(t))
	rep.add(MetricSimilarToHeader, floatValues(HeaderSimilarity(t, sampleRows)))
	rep.add(MetricHasLessThan, floatValues(censored.Rates(t)))
	rep.add(MetricTurnToFloat, floatValues(floats.Rates(t)))
	return rep
}

// missingRates reports the missing fraction for numeric columns. Text
// columns are NotApplicable.
func missingRates(t *table.Table) []Value {
	out := make([]Value, t.NumCols())
	counts := NaNCountPerColumn(t)
	rows := t.NumRows()
	for j, c := range t.Columns {
		switch {
		case !c.Kind.Numeric():
			out[j] = NotApplicable()
		case rows == 0:
			out[j] = Float(0)
		default:
			out[j] = Float(float64(counts[j]) / float64(rows))
		}
	}
	return out
}

func declaredKinds(t *table.Table) []Value {
	out := make([]Value, t.NumCols())
	for j, c := range t.Columns {
		out[j] = Label(c.Kind.String())
	}
	return out
}

// HeaderSimilarity averages, over the first n rows, the similarity between
// each cell and its column's name. High values hint that the header has been
// duplicated into the data area.
func HeaderSimilarity(t *table.Table, n int) []float64 {
	if n > t.NumRows() {
		n = t.NumRows()
	}
	out := make([]float64, t.NumCols())
	if n <= 0 {
		return out
	}
	scores := make([]float64, n)
	for j := range t.Columns {
		col := &t.Columns[j]
		for i := 0; i < n; i++ {
			scores[i] = similarity(col.Format(i), col.Name)
		}
		out[j] = stat.Mean(scores, nil)
	}
	return out
}

func floatValues(fs []float64) []Value {
	out := make([]Value, len(fs))
	for i, f := range fs {
		out[i] = Float(f)
	}
	return out
}
