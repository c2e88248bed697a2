package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gauthierbraillon/moltwatch/internal/aggregator"
	"github.com/gauthierbraillon/moltwatch/internal/collector"
	"github.com/gauthierbraillon/moltwatch/internal/config"
	"github.com/gauthierbraillon/moltwatch/internal/display"
	"github.com/gauthierbraillon/moltwatch/internal/moltbook"
	"github.com/gauthierbraillon/moltwatch/internal/snapshot"
	"github.com/gauthierbraillon/moltwatch/internal/trends"
	"github.com/gauthierbraillon/moltwatch/pkg/atomicfile"
)

// newCollectCmd creates the collect subcommand.
func (a *app) newCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect [YYYY-MM-DD]",
		Short: "Collect and store the daily snapshot",
		Long: "Fetch the global new feed and the hot feed, new feed and metadata of every\n" +
			"configured channel, derive the day's metrics and store the snapshot.\n" +
			"The date defaults to today (UTC); an existing snapshot for it is replaced.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := a.dateArg(args)
			if err != nil {
				return err
			}
			date := snapshot.FormatDate(day)

			if err := a.cfg.RequireAPIKey(); err != nil {
				return err
			}
			store := snapshot.NewStore(a.cfg.Storage.DataDir)
			if err := store.CheckWritable(); err != nil {
				return &config.Error{Key: "storage.data_dir", Msg: err.Error()}
			}

			client := moltbook.NewClient(a.cfg.API.Key,
				moltbook.WithBaseURL(a.cfg.API.BaseURL),
				moltbook.WithUserAgent(a.cfg.API.UserAgent),
				moltbook.WithHTTPClient(&http.Client{Timeout: a.cfg.API.Timeout}),
				moltbook.WithLogger(a.logger),
			)
			c := collector.New(client, store, collector.Config{
				Channels:     a.cfg.Collect.Channels,
				GlobalLimit:  a.cfg.Collect.GlobalLimit,
				ChannelLimit: a.cfg.Collect.ChannelLimit,
				PullTimeout:  a.cfg.API.Timeout,
				TopTrending:  a.cfg.Collect.TopTrending,
				TopAuthors:   a.cfg.Collect.TopAuthors,
				Agent:        a.cfg.Agent,
				Version:      currentVersion(),
			},
				collector.WithLogger(a.logger),
				collector.WithExtractor(a.extractor()),
			)

			snap, err := c.Run(cmd.Context(), date)
			if err != nil {
				return err
			}

			path, _ := store.Path(date)
			formatter := display.NewTerminalFormatter(a.cfg.Output.Colors)
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatCollectionSummary(snap, path))
			return nil
		},
	}

	return cmd
}

// newReportCmd creates the report subcommand.
func (a *app) newReportCmd() *cobra.Command {
	var days int
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "report [YYYY-MM-DD]",
		Short: "Build the weekly report ending on a date",
		Long: "Merge the stored snapshots of the window ending on the given date (default\n" +
			"today, UTC) into a Markdown report. Missing or unreadable days are skipped;\n" +
			"the command fails only when no day in the window could be read.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			anchor, err := a.dateArg(args)
			if err != nil {
				return err
			}
			if days <= 0 {
				days = a.cfg.Report.WindowDays
			}

			if !toStdout {
				if err := atomicfile.CheckWritable(a.cfg.Storage.ReportDir); err != nil {
					return &config.Error{Key: "storage.report_dir", Msg: err.Error()}
				}
			}

			store := snapshot.NewStore(a.cfg.Storage.DataDir)
			agg := aggregator.New(store,
				aggregator.WithLogger(a.logger),
				aggregator.WithLimits(aggregator.Limits{
					TopTrending:     a.cfg.Report.TopTrending,
					TopContributors: a.cfg.Report.TopContributors,
					TopTerms:        a.cfg.Report.TopTerms,
				}),
			)
			report, err := agg.Aggregate(anchor, days)
			if err != nil {
				return err
			}

			doc, err := display.RenderMarkdown(report, display.RenderOptions{Agent: a.cfg.Agent})
			if err != nil {
				return err
			}
			if toStdout {
				_, err := cmd.OutOrStdout().Write(doc)
				return err
			}

			sink := display.FileSink{Dir: a.cfg.Storage.ReportDir}
			path, err := sink.Write(report.WindowEnd, doc)
			if err != nil {
				return &config.Error{Key: "storage.report_dir", Msg: err.Error()}
			}

			formatter := display.NewTerminalFormatter(a.cfg.Output.Colors)
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatReportSummary(report, path))
			return nil
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 0, "window length in days (default from report.window_days)")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "print the Markdown report instead of writing it")

	return cmd
}

// newSnapshotsCmd creates the snapshots subcommand.
func (a *app) newSnapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List stored snapshot dates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dates, err := snapshot.NewStore(a.cfg.Storage.DataDir).ListDates()
			if err != nil {
				return err
			}
			formatter := display.NewTerminalFormatter(a.cfg.Output.Colors)
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSnapshotList(dates))
			return nil
		},
	}

	return cmd
}

// newConfigCmd creates the config subcommand.
func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		Long:  "Print the configuration after defaults, config file and environment are applied. The API key is redacted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(a.cfg.Redacted())
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	return cmd
}

func (a *app) extractor() *trends.Extractor {
	return trends.NewExtractor(
		trends.WithStopWords(a.cfg.Trends.StopWords),
		trends.WithMinLength(a.cfg.Trends.MinLength),
		trends.WithTop(a.cfg.Trends.TopTerms),
	)
}
