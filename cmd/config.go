package cmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabclean-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/tabclean-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set TabClean configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "header_sample_rows: %d\n", cfg.HeaderSampleRows)
		fmt.Fprintf(out, "row_slack: %d\n", cfg.RowSlack)
		fmt.Fprintf(out, "column_slack: %d\n", cfg.ColumnSlack)
		fmt.Fprintf(out, "float_pattern: %s\n", cfg.FloatPattern)
		fmt.Fprintf(out, "censored_pattern: %s\n", cfg.CensoredPattern)
		fmt.Fprintf(out, "legacy_empty_header_row: %t\n", cfg.LegacyEmptyHeaderRow)
		if cfg.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		}
		if len(cfg.NAValues) > 0 {
			fmt.Fprintf(out, "na_values: %s\n", strings.Join(cfg.NAValues, ","))
		}
		fmt.Fprintf(out, "workers: %d\n", cfg.Workers)
		fmt.Fprintf(out, "out_dir: %s\n", cfg.OutDir)
		fmt.Fprintf(out, "report_format: %s\n", cfg.ReportFormat)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		fmt.Fprintf(out, "server_addr: %s\n", cfg.ServerAddr)
		fmt.Fprintf(out, "max_body_bytes: %d\n", cfg.MaxBodyBytes)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		atoi := func(floor int) (int, error) {
			i, err := strconv.Atoi(val)
			if err != nil || i < floor {
				return 0, fmt.Errorf("invalid int for %s: %v", key, val)
			}
			return i, nil
		}
		var err error
		switch key {
		case "header_sample_rows":
			cfg.HeaderSampleRows, err = atoi(1)
		case "row_slack":
			cfg.RowSlack, err = atoi(math.MinInt)
		case "column_slack":
			cfg.ColumnSlack, err = atoi(math.MinInt)
		case "float_pattern", "censored_pattern":
			if _, cerr := analysis.Compile(val); cerr != nil {
				return cerr
			}
			if key == "float_pattern" {
				cfg.FloatPattern = val
			} else {
				cfg.CensoredPattern = val
			}
		case "legacy_empty_header_row":
			b, perr := strconv.ParseBool(val)
			if perr != nil {
				return fmt.Errorf("invalid bool for %s: %v", key, val)
			}
			cfg.LegacyEmptyHeaderRow = b
		case "delimiter":
			d, derr := parseDelimiter(val)
			if derr != nil {
				return derr
			}
			cfg.Delimiter = ""
			if d != 0 {
				cfg.Delimiter = string(d)
			}
		case "na_values":
			cfg.NAValues = nil
			for _, v := range strings.Split(val, ",") {
				if v = strings.TrimSpace(v); v != "" {
					cfg.NAValues = append(cfg.NAValues, v)
				}
			}
		case "workers":
			cfg.Workers, err = atoi(1)
		case "out_dir":
			cfg.OutDir = val
		case "report_format":
			switch val {
			case "json", "yaml":
				cfg.ReportFormat = val
			default:
				return fmt.Errorf("invalid report_format: %s (use json or yaml)", val)
			}
		case "log_level":
			cfg.LogLevel = val
		case "log_format":
			switch val {
			case "console", "json":
				cfg.LogFormat = val
			default:
				return fmt.Errorf("invalid log_format: %s (use console or json)", val)
			}
		case "server_addr":
			cfg.ServerAddr = val
		case "max_body_bytes":
			n, perr := strconv.ParseInt(val, 10, 64)
			if perr != nil || n <= 0 {
				return fmt.Errorf("invalid int for max_body_bytes: %v", val)
			}
			cfg.MaxBodyBytes = n
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
