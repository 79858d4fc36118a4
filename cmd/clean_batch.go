package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabclean-cli/internal/batch"
)

var (
	cbPipeline pipelineFlags
	cbOutDir   string
	cbWorkers  int
	cbFormat   string
	cbFailFast bool
	cbQuiet    bool
)

var cleanBatchCmd = &cobra.Command{
	Use:   "clean-batch <dirs|files|globs...>",
	Short: "Clean many tables, grouped by name prefix and ordered by page",
	Long: `Clean-batch discovers CSV/TSV/XLSX tables, groups them by the name prefix
before the first '_' and orders each group by the page number after the last
'_' (e.g. lab_1.csv, lab_2.csv). For every table it writes <id>.cleaned.csv,
<id>.report.md and <id>.report.json|yaml into --out, plus a manifest.json for
the run. A failed table is reported and skipped; the command fails only when
every table failed or --fail-fast is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := cfg
		if conf == nil {
			conf = defaults()
		}
		files, err := batch.Discover(args)
		if err != nil {
			return err
		}
		ropt, err := cbPipeline.readOptions(cmd)
		if err != nil {
			return err
		}
		opt := batch.Options{
			Clean:        cbPipeline.cleanOptions(cmd),
			Read:         ropt,
			Workers:      conf.Workers,
			OutDir:       conf.OutDir,
			ReportFormat: conf.ReportFormat,
			FailFast:     cbFailFast,
			Logger:       logger,
		}
		f := cmd.Flags()
		if f.Changed("workers") {
			opt.Workers = cbWorkers
		}
		if f.Changed("out") {
			opt.OutDir = cbOutDir
		}
		if f.Changed("format") {
			opt.ReportFormat = cbFormat
		}
		out := cmd.OutOrStdout()
		if !cbQuiet {
			opt.Progress = out
		}

		m, err := batch.Run(cmd.Context(), batch.Plan(files), opt)
		if m != nil && !cbQuiet {
			for _, e := range m.Tables {
				if e.Failed() {
					fmt.Fprintf(out, "⚠ %s: %s\n", e.ID, e.Error)
				}
			}
			fmt.Fprintf(out, "✓ Cleaned %d/%d tables into %s (run %s)\n",
				len(m.Tables)-m.Failed(), len(m.Tables), opt.OutDir, m.RunID)
			fmt.Fprintf(out, "  Manifest: %s\n", filepath.Join(opt.OutDir, batch.ManifestFile))
		}
		if errors.Is(err, batch.ErrAllFailed) {
			return fmt.Errorf("no table could be cleaned (%d failed)", m.Failed())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(cleanBatchCmd)
	cbPipeline.register(cleanBatchCmd)
	cleanBatchCmd.Flags().StringVarP(&cbOutDir, "out", "o", "cleaned", "output directory (overrides config out_dir)")
	cleanBatchCmd.Flags().IntVarP(&cbWorkers, "workers", "w", 4, "tables cleaned concurrently (overrides config workers)")
	cleanBatchCmd.Flags().StringVarP(&cbFormat, "format", "f", "json", "structured report format: json|yaml (overrides config report_format)")
	cleanBatchCmd.Flags().BoolVar(&cbFailFast, "fail-fast", false, "stop at the first table that fails")
	cleanBatchCmd.Flags().BoolVar(&cbQuiet, "quiet", false, "suppress progress and non-essential output")
}
