package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabclean-cli/internal/analysis"
	"github.com/KaramelBytes/tabclean-cli/internal/batch"
	"github.com/KaramelBytes/tabclean-cli/internal/reader"
	"github.com/KaramelBytes/tabclean-cli/internal/table"
	"github.com/KaramelBytes/tabclean-cli/internal/utils"
)

var (
	clPipeline   pipelineFlags
	clOutputPath string
	clReportPath string
	clFormat     string
	clQuiet      bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Diagnose and clean one CSV/TSV/XLSX table",
	Long: `Clean loads one table, prints its diagnostic report (Markdown by default)
and optionally writes the cleaned table and a structured report.

Use --output - to write the cleaned CSV to stdout instead of the report.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		ropt, err := clPipeline.readOptions(cmd)
		if err != nil {
			return err
		}
		switch clFormat {
		case "markdown", "md", "json", "yaml":
		default:
			return fmt.Errorf("unsupported --format: %s (use markdown|json|yaml)", clFormat)
		}

		t, err := reader.ReadFile(path, ropt)
		if err != nil {
			return err
		}
		id, _, _ := batch.ParseName(path)
		res, err := analysis.Clean(id, t, clPipeline.cleanOptions(cmd))
		if err != nil {
			return err
		}

		if n := res.Count(analysis.RuleCensoredUnparsed); n > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %d censored value(s) in %s could not be converted\n", n, filepath.Base(path))
		}

		out := cmd.OutOrStdout()
		if clOutputPath == "-" {
			return table.WriteCSV(out, res.Table, ropt.Delimiter)
		}
		if clOutputPath != "" {
			var buf bytes.Buffer
			if err := table.WriteCSV(&buf, res.Table, ropt.Delimiter); err != nil {
				return err
			}
			if err := utils.SafeWriteFile(clOutputPath, buf.Bytes()); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			if !clQuiet {
				fmt.Fprintf(out, "✓ Wrote cleaned table to %s\n", clOutputPath)
			}
		}

		var report []byte
		if clFormat == "markdown" || clFormat == "md" {
			report = []byte(res.Markdown())
		} else if report, err = batch.EncodeResult(res, clFormat); err != nil {
			return err
		}
		if clReportPath != "" {
			if err := utils.SafeWriteFile(clReportPath, report); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if !clQuiet {
				fmt.Fprintf(out, "✓ Wrote report to %s\n", clReportPath)
			}
			return nil
		}
		if !clQuiet {
			fmt.Fprintln(out, string(bytes.TrimRight(report, "\n")))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	clPipeline.register(cleanCmd)
	cleanCmd.Flags().StringVarP(&clOutputPath, "output", "o", "", "path to write the cleaned table as CSV ('-' for stdout)")
	cleanCmd.Flags().StringVarP(&clReportPath, "report", "r", "", "path to write the report instead of printing it")
	cleanCmd.Flags().StringVarP(&clFormat, "format", "f", "markdown", "report format: markdown|json|yaml")
	cleanCmd.Flags().BoolVar(&clQuiet, "quiet", false, "suppress non-essential output")
}
