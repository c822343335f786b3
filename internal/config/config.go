package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sadopc/arqrel/internal/ops"
)

// EnvPrefix prefixes every environment override, e.g. ARQREL_REPORT_DIR.
const EnvPrefix = "ARQREL"

// Config represents the inventory configuration
type Config struct {
	Path           string `mapstructure:"path"`            // directory to inventory
	Verbose        bool   `mapstructure:"verbose"`         // log every discovered entry
	Silent         bool   `mapstructure:"silent"`          // warnings and errors only
	FollowSymlinks bool   `mapstructure:"follow_symlinks"` // walk through symbolic links
	Progress       string `mapstructure:"progress"`        // auto, on, off

	Report   ReportConfig   `mapstructure:"report"`
	SSH      SSHConfig      `mapstructure:"ssh"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
}

// ReportConfig controls report persistence
type ReportConfig struct {
	Enabled     bool   `mapstructure:"enabled"`      // write a report at all
	Dir         string `mapstructure:"dir"`          // output directory, "-" for stdout
	Layout      string `mapstructure:"layout"`       // single, split
	Format      string `mapstructure:"format"`       // json, yaml
	SummaryOnly bool   `mapstructure:"summary_only"` // drop per-file records
}

// SSHConfig configures remote inventories
type SSHConfig struct {
	Port        int           `mapstructure:"port"`
	Batch       bool          `mapstructure:"batch"` // no interactive prompts
	Timeout     time.Duration `mapstructure:"timeout"`
	ScanTimeout time.Duration `mapstructure:"scan_timeout"`
}

// DatabaseConfig enables the PostgreSQL sink when URL is set
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// S3Config enables the object storage sink when Endpoint is set
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// SetDefaults registers every key so environment overrides apply on Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("path", ".")
	v.SetDefault("verbose", false)
	v.SetDefault("silent", false)
	v.SetDefault("follow_symlinks", false)
	v.SetDefault("progress", "auto")

	v.SetDefault("report.enabled", true)
	v.SetDefault("report.dir", "logs")
	v.SetDefault("report.layout", string(ops.LayoutSingle))
	v.SetDefault("report.format", string(ops.FormatJSON))
	v.SetDefault("report.summary_only", false)

	v.SetDefault("ssh.port", 22)
	v.SetDefault("ssh.batch", false)
	v.SetDefault("ssh.timeout", 15*time.Second)
	v.SetDefault("ssh.scan_timeout", time.Duration(0))

	v.SetDefault("database.url", "")

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.use_ssl", false)
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "arqrel")
}

// LoadDotEnv loads KEY=VALUE pairs from files into the process
// environment without overriding variables already set. Missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cannot load %s: %w", f, err)
		}
	}
	return nil
}

// Load resolves configuration from defaults, an optional config file,
// ARQREL_* environment variables and whatever flags were bound to v.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.Verbose && c.Silent {
		return fmt.Errorf("--verbose and --silent cannot be used together")
	}
	switch c.Progress {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("unknown progress mode %q (want auto, on or off)", c.Progress)
	}
	if _, err := ops.ParseLayout(c.Report.Layout); err != nil {
		return err
	}
	if _, err := ops.ParseFormat(c.Report.Format); err != nil {
		return err
	}
	if c.Report.Dir == "-" && c.Report.Layout == string(ops.LayoutSplit) {
		return fmt.Errorf("split layout cannot be written to stdout")
	}
	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh port must be between 1 and 65535")
	}
	if c.SSH.Timeout < 0 || c.SSH.ScanTimeout < 0 {
		return fmt.Errorf("ssh timeouts must not be negative")
	}
	if c.S3.Endpoint != "" && c.S3.Bucket == "" {
		return fmt.Errorf("s3 bucket is required when an s3 endpoint is set")
	}
	if c.S3.Endpoint != "" && (!c.Report.Enabled || c.Report.Dir == "-") {
		return fmt.Errorf("s3 upload needs a report written to disk")
	}
	return nil
}

// ExportOptions translates the report settings for ops.ExportReport.
func (c *Config) ExportOptions() ops.ExportOptions {
	layout, _ := ops.ParseLayout(c.Report.Layout)
	format, _ := ops.ParseFormat(c.Report.Format)
	return ops.ExportOptions{
		Dir:         c.Report.Dir,
		Layout:      layout,
		Format:      format,
		SummaryOnly: c.Report.SummaryOnly,
	}
}
