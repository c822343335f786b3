package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/sadopc/arqrel/internal/config"
	"github.com/sadopc/arqrel/internal/model"
	"github.com/sadopc/arqrel/internal/ops"
	"github.com/sadopc/arqrel/internal/remote"
	"github.com/sadopc/arqrel/internal/scanner"
	"github.com/sadopc/arqrel/internal/store"
	"github.com/sadopc/arqrel/internal/ui"
	"github.com/sadopc/arqrel/internal/ui/components"
	"github.com/sadopc/arqrel/internal/ui/style"
	"github.com/sadopc/arqrel/internal/upload"
)

var version = "dev"

// defaultWidth is used for rendering when stdout is not a terminal.
const defaultWidth = 100

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "arqrel [path | user@host [remote-path]]",
		Short: "Inventory a directory tree",
		Long: `Walk a directory tree breadth-first, record size, permissions, timestamps
and a SHA-256 digest for every regular file, and summarize the files by
category. Reports are written as JSON or YAML and can also be stored in
PostgreSQL or uploaded to S3-compatible storage.`,
		Example: `  arqrel .                          Inventory the current directory
  arqrel --summary -o reports /srv  Keep only the summary
  arqrel --layout split --format yaml /data
  arqrel -o - . | jq .summary       Write the report to stdout
  arqrel alice@10.0.0.5 /var/www    Inventory a remote tree over SSH
  arqrel show logs/arq-rel_20240714_093005.json --sort size --limit 20`,
		Version:       version,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, configFile, cmd.Flags())
			if err != nil {
				return err
			}
			args, err = targetArgs(args, cfg.Path, cmd.Flags().Changed("path"))
			if err != nil {
				return err
			}
			target, err := resolveScanTarget(args)
			if err != nil {
				return err
			}
			return runInventory(cmd.Context(), cfg, target, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (YAML)")
	pf.BoolP("verbose", "v", false, "log every discovered directory and file")
	pf.BoolP("silent", "s", false, "only log warnings and errors, skip the summary printout")
	pf.String("db-url", "", "PostgreSQL URL to store reports in")

	f := cmd.Flags()
	f.StringP("path", "p", ".", "directory to inventory")
	f.Bool("follow-symlinks", false, "follow symbolic links during the walk")
	f.Bool("summary", false, "persist only the summary, not the per-file records")
	f.Bool("no-report", false, "do not write a report file")
	f.StringP("output", "o", "logs", "report directory, '-' writes the report to stdout")
	f.String("layout", string(ops.LayoutSingle), "report layout: single or split")
	f.String("format", string(ops.FormatJSON), "report format: json or yaml")
	f.String("progress", "auto", "live progress view: auto, on or off")
	f.Int("ssh-port", 22, "SSH port for remote scans")
	f.Bool("ssh-batch", false, "disable SSH password prompts (key/agent auth only)")
	f.Duration("ssh-timeout", 15*time.Second, "SSH connection timeout")
	f.Duration("ssh-scan-timeout", 0, "remote scan timeout (0 = no limit)")
	f.String("s3-endpoint", "", "S3-compatible endpoint to upload reports to")
	f.String("s3-bucket", "", "bucket for uploaded reports")
	f.String("s3-prefix", "arqrel", "object key prefix for uploaded reports")

	bindFlags(v, pf, map[string]string{
		"verbose":      "verbose",
		"silent":       "silent",
		"database.url": "db-url",
	})
	bindFlags(v, f, map[string]string{
		"path":                "path",
		"follow_symlinks":     "follow-symlinks",
		"report.summary_only": "summary",
		"report.dir":          "output",
		"report.layout":       "layout",
		"report.format":       "format",
		"progress":            "progress",
		"ssh.port":            "ssh-port",
		"ssh.batch":           "ssh-batch",
		"ssh.timeout":         "ssh-timeout",
		"ssh.scan_timeout":    "ssh-scan-timeout",
		"s3.endpoint":         "s3-endpoint",
		"s3.bucket":           "s3-bucket",
		"s3.prefix":           "s3-prefix",
	})

	// Disable built-in help command
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newHistoryCmd(v, &configFile))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind %s: %v", name, err))
		}
	}
}

// loadConfig resolves .env files, the config file, environment and flags.
func loadConfig(v *viper.Viper, configFile string, flags *pflag.FlagSet) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	if f := flags.Lookup("no-report"); f != nil && f.Changed {
		if off, _ := flags.GetBool("no-report"); off {
			v.Set("report.enabled", false)
		}
	}
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runInventory scans target and hands the report to every configured sink.
func runInventory(ctx context.Context, cfg *config.Config, target scanTarget, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logs := &heldWriter{out: stderr}
	logger := newLogger(cfg, logs)
	defer logger.Sync()

	opts := scanner.ScanOptions{
		Verbose:        cfg.Verbose,
		FollowSymlinks: cfg.FollowSymlinks,
		Logger:         logger,
	}

	var sc scanner.Scanner
	if target.Remote {
		sc = remote.NewSFTPScanner(remote.Config{
			Target:      target.SSHDestination,
			Port:        cfg.SSH.Port,
			BatchMode:   cfg.SSH.Batch,
			Timeout:     cfg.SSH.Timeout,
			ScanTimeout: cfg.SSH.ScanTimeout,
		}, nil)
	} else {
		sc = scanner.NewBFSScanner(scanner.LocalSource(), nil)
	}

	logger.Info("inventory started", zap.Stringer("target", target))

	var report *model.Report
	var err error
	if useProgressView(cfg, target, stderr) {
		logs.Hold()
		report, err = ui.Run(ctx, sc, target.Root(), opts, stderr)
		if rerr := logs.Release(); rerr != nil && err == nil {
			err = rerr
		}
	} else {
		report, err = sc.Scan(ctx, target.Root(), opts)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("inventory of %s cancelled", target)
	}
	if err != nil {
		return err
	}

	logger.Info("inventory finished",
		zap.String("base_dir", report.Summary.BaseDir),
		zap.Int64("directories", report.Summary.DirectoriesFound),
		zap.Int64("files", report.Summary.FilesFound),
		zap.Duration("took", report.Summary.TimeTaken),
	)

	files, err := persistReport(ctx, cfg, report, logger)
	if err != nil {
		return err
	}

	if !cfg.Silent && !(cfg.Report.Enabled && cfg.Report.Dir == "-") {
		fmt.Fprint(stdout, components.RenderSummary(style.DefaultTheme(), report, nil, writerWidth(stdout)))
		for _, f := range files {
			fmt.Fprintf(stdout, "Report written to %s\n", f)
		}
	}
	return nil
}

// persistReport writes the report file and feeds the optional database
// and object storage sinks. It returns the report files written.
func persistReport(ctx context.Context, cfg *config.Config, report *model.Report, logger *zap.Logger) ([]string, error) {
	var files []string
	if cfg.Report.Enabled {
		written, err := ops.ExportReport(report, cfg.ExportOptions())
		if err != nil {
			return nil, fmt.Errorf("export error: %w", err)
		}
		files = written
		for _, f := range files {
			logger.Debug("report file written", zap.String("path", f))
		}
	}

	if cfg.Database.URL != "" {
		if err := storeReport(ctx, cfg, report, logger); err != nil {
			return files, err
		}
	}

	if cfg.S3.Endpoint != "" && len(files) > 0 {
		client, err := upload.New(cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.UseSSL)
		if err != nil {
			return files, err
		}
		if err := client.EnsureBucket(ctx, cfg.S3.Bucket); err != nil {
			return files, fmt.Errorf("cannot prepare bucket %s: %w", cfg.S3.Bucket, err)
		}
		keys, err := client.UploadReport(ctx, cfg.S3.Bucket, cfg.S3.Prefix, files)
		if err != nil {
			return files, err
		}
		logger.Info("report uploaded", zap.String("bucket", cfg.S3.Bucket), zap.Strings("keys", keys))
	}
	return files, nil
}

func storeReport(ctx context.Context, cfg *config.Config, report *model.Report, logger *zap.Logger) error {
	db, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("cannot prepare schema: %w", err)
	}
	id, err := db.SaveReport(ctx, report, cfg.Report.SummaryOnly)
	if err != nil {
		return err
	}
	logger.Info("report stored", zap.Stringer("scan_id", id))
	return nil
}

// useProgressView decides whether the live view runs. Remote scans that may
// prompt for a password keep the terminal for the prompt.
func useProgressView(cfg *config.Config, target scanTarget, stderr io.Writer) bool {
	if cfg.Progress == "off" || cfg.Silent {
		return false
	}
	if target.Remote && !cfg.SSH.Batch {
		return false
	}
	if cfg.Progress == "on" {
		return true
	}
	return isTerminal(stderr)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writerWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultWidth
}
