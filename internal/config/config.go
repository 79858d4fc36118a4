package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. TABCLEAN_ROW_SLACK.
const EnvPrefix = "TABCLEAN"

// DotEnvFile is read, when present, before the environment is consulted.
// Variables already set in the environment win.
var DotEnvFile = ".env"

// Global configuration structure.
type Global struct {
	// Pipeline thresholds
	HeaderSampleRows     int    `mapstructure:"header_sample_rows" yaml:"header_sample_rows"`
	RowSlack             int    `mapstructure:"row_slack" yaml:"row_slack"`
	ColumnSlack          int    `mapstructure:"column_slack" yaml:"column_slack"`
	FloatPattern         string `mapstructure:"float_pattern" yaml:"float_pattern"`
	CensoredPattern      string `mapstructure:"censored_pattern" yaml:"censored_pattern"`
	LegacyEmptyHeaderRow bool   `mapstructure:"legacy_empty_header_row" yaml:"legacy_empty_header_row"`

	// Loading
	Delimiter string   `mapstructure:"delimiter" yaml:"delimiter"`
	NAValues  []string `mapstructure:"na_values" yaml:"na_values"`

	// Batch output
	Workers      int    `mapstructure:"workers" yaml:"workers"`
	OutDir       string `mapstructure:"out_dir" yaml:"out_dir"`
	ReportFormat string `mapstructure:"report_format" yaml:"report_format"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// HTTP server
	ServerAddr   string `mapstructure:"server_addr" yaml:"server_addr"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// DefaultPath returns ~/.tabclean/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tabclean", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tabclean/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (including .env) > config file > defaults. Command flags
// are applied on top by the caller.
func Load(cfgFile string) (*Global, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("header_sample_rows", 5)
	v.SetDefault("row_slack", 1)
	v.SetDefault("column_slack", 3)
	v.SetDefault("float_pattern", `^\d+?\.\d+?$`)
	v.SetDefault("censored_pattern", "<")
	v.SetDefault("legacy_empty_header_row", false)
	v.SetDefault("delimiter", "")
	v.SetDefault("na_values", []string{})
	v.SetDefault("workers", 4)
	v.SetDefault("out_dir", "cleaned")
	v.SetDefault("report_format", "json")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("max_body_bytes", 10<<20)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".tabclean"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings no command can run with.
func (c *Global) Validate() error {
	if c.HeaderSampleRows < 0 {
		return fmt.Errorf("invalid header_sample_rows: %d", c.HeaderSampleRows)
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid workers: %d", c.Workers)
	}
	switch c.ReportFormat {
	case "", "json", "yaml":
	default:
		return fmt.Errorf("invalid report_format: %s (use json or yaml)", c.ReportFormat)
	}
	if n := len([]rune(c.Delimiter)); n > 1 {
		return fmt.Errorf("invalid delimiter: %q (use a single character)", c.Delimiter)
	}
	return nil
}

// DelimiterRune returns the configured delimiter, or 0 to pick by extension.
func (c *Global) DelimiterRune() rune {
	for _, r := range c.Delimiter {
		return r
	}
	return 0
}

func loadDotEnv() error {
	if DotEnvFile == "" {
		return nil
	}
	if _, err := os.Stat(DotEnvFile); err != nil {
		return nil
	}
	if err := godotenv.Load(DotEnvFile); err != nil {
		return fmt.Errorf("load %s: %w", DotEnvFile, err)
	}
	return nil
}
