package cmd

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabclean-cli/internal/analysis"
	"github.com/KaramelBytes/tabclean-cli/internal/reader"
)

// pipelineFlags are the loading and threshold flags shared by clean and
// clean-batch. A flag only overrides the config when it was set.
type pipelineFlags struct {
	headerRows     int
	rowSlack       int
	columnSlack    int
	floatPattern   string
	censored       string
	legacyEmptyRow bool
	delimiter      string
	naValues       []string
	sheetName      string
	sheetIndex     int
	raw            bool
}

func (p *pipelineFlags) register(c *cobra.Command) {
	f := c.Flags()
	f.IntVar(&p.headerRows, "header-rows", 5, "rows compared with the header names for data_similar_to_colname")
	f.IntVar(&p.rowSlack, "row-slack", 1, "drop a row when missing cells >= columns - row-slack")
	f.IntVar(&p.columnSlack, "column-slack", 3, "drop a column when missing cells >= rows - column-slack")
	f.StringVar(&p.floatPattern, "float-pattern", analysis.FloatPattern, "pattern counted by turn_to_float")
	f.StringVar(&p.censored, "censored-pattern", analysis.CensoredPattern, "marker of below-detection-limit values")
	f.BoolVar(&p.legacyEmptyRow, "legacy-empty-header", false, "treat an all-missing first row as header values")
	f.StringVar(&p.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | any single character (default by extension)")
	f.StringSliceVar(&p.naValues, "na-values", nil, "cell texts read as missing, replacing the built-in list (empty cells are always missing)")
	f.StringVar(&p.sheetName, "sheet-name", "", "XLSX: sheet name to clean")
	f.IntVar(&p.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	f.BoolVar(&p.raw, "raw", false, "do not NFKC-normalize cell text")
}

// cleanOptions starts from the loaded config and applies changed flags.
func (p *pipelineFlags) cleanOptions(c *cobra.Command) analysis.Options {
	conf := cfg
	if conf == nil {
		conf = defaults()
	}
	opt := analysis.Options{
		HeaderSampleRows:     conf.HeaderSampleRows,
		RowSlack:             conf.RowSlack,
		ColumnSlack:          conf.ColumnSlack,
		FloatPattern:         conf.FloatPattern,
		CensoredPattern:      conf.CensoredPattern,
		LegacyEmptyHeaderRow: conf.LegacyEmptyHeaderRow,
		Logger:               logger,
	}
	f := c.Flags()
	if f.Changed("header-rows") {
		opt.HeaderSampleRows = p.headerRows
	}
	if f.Changed("row-slack") {
		opt.RowSlack = p.rowSlack
	}
	if f.Changed("column-slack") {
		opt.ColumnSlack = p.columnSlack
	}
	if f.Changed("float-pattern") {
		opt.FloatPattern = p.floatPattern
	}
	if f.Changed("censored-pattern") {
		opt.CensoredPattern = p.censored
	}
	if f.Changed("legacy-empty-header") {
		opt.LegacyEmptyHeaderRow = p.legacyEmptyRow
	}
	return opt
}

func (p *pipelineFlags) readOptions(c *cobra.Command) (reader.Options, error) {
	conf := cfg
	if conf == nil {
		conf = defaults()
	}
	opt := reader.Options{
		Delimiter:  conf.DelimiterRune(),
		SheetName:  p.sheetName,
		SheetIndex: p.sheetIndex,
		Raw:        p.raw,
	}
	if len(conf.NAValues) > 0 {
		opt.NAValues = conf.NAValues
	}
	f := c.Flags()
	if f.Changed("delimiter") {
		d, err := parseDelimiter(p.delimiter)
		if err != nil {
			return opt, err
		}
		opt.Delimiter = d
	}
	if f.Changed("na-values") {
		opt.NAValues = p.naValues
	}
	return opt, nil
}

func parseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 || s == `"` {
		return 0, fmt.Errorf("unsupported --delimiter: %s", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
