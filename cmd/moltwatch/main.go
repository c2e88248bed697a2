// Package main provides the moltwatch CLI entry point.
package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gauthierbraillon/moltwatch/internal/aggregator"
	"github.com/gauthierbraillon/moltwatch/internal/config"
	"github.com/gauthierbraillon/moltwatch/internal/snapshot"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	exitFailure     = 1
	exitConfig      = 2
	exitEmptyWindow = 3
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps fatal run errors to distinct process exit codes.
func exitCode(err error) int {
	var cfgErr *config.Error
	switch {
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.Is(err, aggregator.ErrEmptyWindow):
		return exitEmptyWindow
	default:
		return exitFailure
	}
}

// resolveVersion picks the version moltwatch reports and stamps into
// snapshot metadata. A release build sets it through ldflags, often from
// git describe output with a trailing newline. A go install build only has
// the module version in its build info.
func resolveVersion(ldflags string, info *debug.BuildInfo) string {
	if v := strings.TrimSpace(ldflags); !unsetVersion(v) {
		return v
	}
	if info != nil {
		if v := strings.TrimSpace(info.Main.Version); !unsetVersion(v) {
			return v
		}
	}
	return "dev"
}

func unsetVersion(v string) bool {
	return v == "" || v == "dev" || v == "(devel)"
}

func currentVersion() string {
	info, _ := debug.ReadBuildInfo()
	return resolveVersion(version, info)
}

// app carries state shared by every subcommand of one invocation.
type app struct {
	cfgFile   string
	verbose   bool
	dataDir   string
	reportDir string
	noColor   bool

	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time
}

// newRootCmd creates the root command for moltwatch CLI.
func newRootCmd() *cobra.Command {
	a := &app{now: time.Now}

	rootCmd := &cobra.Command{
		Use:   "moltwatch",
		Short: "Collect daily Moltbook snapshots and build weekly reports",
		Long: "Moltwatch samples activity on Moltbook once a day, stores one snapshot per date,\n" +
			"and rolls a window of snapshots into a weekly Markdown report.",
		Version:       currentVersion(),
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd.ErrOrStderr())
		},
	}

	rootCmd.SetVersionTemplate("moltwatch version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is .moltwatch.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "snapshot directory (overrides storage.data_dir)")
	rootCmd.PersistentFlags().StringVar(&a.reportDir, "report-dir", "", "report directory (overrides storage.report_dir)")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(a.newCollectCmd())
	rootCmd.AddCommand(a.newReportCmd())
	rootCmd.AddCommand(a.newSnapshotsCmd())
	rootCmd.AddCommand(a.newConfigCmd())

	return rootCmd
}

// initConfig loads configuration, applies flag overrides and sets up logging.
func (a *app) initConfig(stderr io.Writer) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.Storage.DataDir = a.dataDir
	}
	if a.reportDir != "" {
		cfg.Storage.ReportDir = a.reportDir
	}
	if a.noColor {
		cfg.Output.Colors = false
	}
	a.cfg = cfg
	a.logger = newLogger(stderr, cfg.Logging, a.verbose)

	a.logger.Debug("configuration loaded",
		slog.String("data_dir", cfg.Storage.DataDir),
		slog.String("report_dir", cfg.Storage.ReportDir),
		slog.Any("channels", cfg.Collect.Channels),
	)
	return nil
}

func newLogger(w io.Writer, lc config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// dateArg returns the date named by the optional positional argument, or
// today in UTC.
func (a *app) dateArg(args []string) (time.Time, error) {
	if len(args) == 0 {
		y, m, d := a.now().UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return snapshot.ParseDate(args[0])
}
