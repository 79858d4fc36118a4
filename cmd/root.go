package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tabclean-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/tabclean-cli/internal/config"
	"github.com/KaramelBytes/tabclean-cli/internal/logging"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logLevel  string
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
	// logger is rebuilt from cfg and the log flags on every invocation.
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "tabclean",
	Short: "TabClean CLI: diagnose and repair raw extracted tables",
	Long: `TabClean profiles raw tables (CSV, TSV, XLSX) produced by document extraction
and applies a fixed set of heuristic repairs: header values found in the first
data row, sparse row and column pruning, and below-detection-limit values such
as "<10" rewritten as half the limit.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tabclean/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console|json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = defaults()
	}
	cfg = c

	level, format := cfg.LogLevel, cfg.LogFormat
	if logLevel != "" {
		level = logLevel
	}
	if debug {
		level = "debug"
	}
	if logFormat != "" {
		format = logFormat
	}
	logger = logging.New(level, format)
}

// defaults mirrors the config package defaults for runs without a usable
// config file.
func defaults() *cfgpkg.Global {
	return &cfgpkg.Global{
		HeaderSampleRows: 5,
		RowSlack:         1,
		ColumnSlack:      3,
		FloatPattern:     analysis.FloatPattern,
		CensoredPattern:  analysis.CensoredPattern,
		Workers:          4,
		OutDir:           "cleaned",
		ReportFormat:     "json",
		LogLevel:         "info",
		LogFormat:        "console",
		ServerAddr:       ":8080",
		MaxBodyBytes:     10 << 20,
	}
}
