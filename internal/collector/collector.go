// Package collector gathers one day of Moltbook activity into a snapshot.
//
// Every feed and metadata call runs concurrently with its own deadline. A
// failed call is recorded inside the snapshot and never aborts the run, so a
// partially unavailable upstream still yields a complete, degraded snapshot.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gauthierbraillon/moltwatch/internal/moltbook"
	"github.com/gauthierbraillon/moltwatch/internal/snapshot"
	"github.com/gauthierbraillon/moltwatch/internal/trends"
)

// FeedFetcher is the subset of the Moltbook client the collector needs.
type FeedFetcher interface {
	Fetch(ctx context.Context, path string) ([]moltbook.Post, error)
	FetchChannelInfo(ctx context.Context, channel string) (moltbook.ChannelInfo, error)
}

// Saver persists a finished snapshot.
type Saver interface {
	Save(date string, snap *snapshot.DailySnapshot) error
}

// Config controls what one collection run fetches.
type Config struct {
	Channels     []string
	GlobalLimit  int
	ChannelLimit int
	PullTimeout  time.Duration
	TopTrending  int
	TopAuthors   int
	Agent        string
	Version      string
}

// DefaultConfig returns the limits used by the daily job.
func DefaultConfig() Config {
	return Config{
		Channels:     []string{"memory", "openclaw-explorers", "builds"},
		GlobalLimit:  50,
		ChannelLimit: 20,
		PullTimeout:  moltbook.DefaultTimeout,
		TopTrending:  5,
		TopAuthors:   10,
		Agent:        "moltwatch",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.GlobalLimit <= 0 {
		c.GlobalLimit = d.GlobalLimit
	}
	if c.ChannelLimit <= 0 {
		c.ChannelLimit = d.ChannelLimit
	}
	if c.PullTimeout <= 0 {
		c.PullTimeout = d.PullTimeout
	}
	if c.TopTrending <= 0 {
		c.TopTrending = d.TopTrending
	}
	if c.TopAuthors <= 0 {
		c.TopAuthors = d.TopAuthors
	}
	return c
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// WithExtractor sets the trend extraction policy.
func WithExtractor(e *trends.Extractor) Option {
	return func(c *Collector) {
		if e != nil {
			c.extractor = e
		}
	}
}

// Collector runs daily collections.
type Collector struct {
	client    FeedFetcher
	store     Saver
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
	extractor *trends.Extractor
}

// New creates a Collector.
func New(client FeedFetcher, store Saver, cfg Config, opts ...Option) *Collector {
	c := &Collector{
		client:    client,
		store:     store,
		cfg:       cfg.withDefaults(),
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
		extractor: trends.NewExtractor(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run collects the snapshot for date and saves it, replacing any snapshot
// already stored for that date. Only a failed save is returned as an error.
func (c *Collector) Run(ctx context.Context, date string) (*snapshot.DailySnapshot, error) {
	snap, err := c.Collect(ctx, date)
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(date, snap); err != nil {
		return snap, fmt.Errorf("failed to save snapshot: %w", err)
	}
	c.logger.Info("snapshot saved", slog.String("date", date), slog.String("run_id", snap.Metadata.RunID))
	return snap, nil
}

// Collect performs every pull for date concurrently and derives the day's
// metrics. It fails only when date is not a valid key.
func (c *Collector) Collect(ctx context.Context, date string) (*snapshot.DailySnapshot, error) {
	if _, err := snapshot.ParseDate(date); err != nil {
		return nil, err
	}

	start := c.now()
	runID := uuid.NewString()
	logger := c.logger.With(slog.String("date", date), slog.String("run_id", runID))
	logger.Info("collection started", slog.Int("channels", len(c.cfg.Channels)))

	pulls := Plan(c.cfg)
	feeds := make([]snapshot.FeedPull, len(pulls))
	infos := make([]snapshot.ChannelInfoPull, len(pulls))

	var g errgroup.Group
	for i, p := range pulls {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, c.cfg.PullTimeout)
			defer cancel()

			switch p.Kind {
			case KindInfo:
				infos[i] = c.pullInfo(pctx, p, logger)
			default:
				feeds[i] = c.pullFeed(pctx, p, logger)
			}
			return nil
		})
	}
	_ = g.Wait()

	snap := &snapshot.DailySnapshot{
		Channels: snapshot.Pulls{
			Hot:  []snapshot.FeedPull{},
			New:  []snapshot.FeedPull{},
			Info: []snapshot.ChannelInfoPull{},
		},
	}
	for i, p := range pulls {
		switch p.Kind {
		case KindGlobal:
			snap.Channels.GlobalNew = feeds[i]
		case KindChannel:
			if p.Sort == moltbook.SortHot {
				snap.Channels.Hot = append(snap.Channels.Hot, feeds[i])
			} else {
				snap.Channels.New = append(snap.Channels.New, feeds[i])
			}
		case KindInfo:
			snap.Channels.Info = append(snap.Channels.Info, infos[i])
		}
	}

	derive(snap, c.cfg, c.extractor)

	end := c.now()
	snap.Metadata = snapshot.Metadata{
		Date:        date,
		CollectedAt: end.UTC(),
		DurationMs:  end.Sub(start).Milliseconds(),
		RunID:       runID,
		Agent:       c.cfg.Agent,
		Version:     c.cfg.Version,
	}

	logger.Info("collection complete",
		slog.Int("new_posts", snap.Activity.NewPosts.Total),
		slog.Int("hot_posts", snap.Activity.HotPosts),
		slog.Int("unique_authors", snap.Activity.Authors.UniqueCount),
		slog.Int64("duration_ms", snap.Metadata.DurationMs),
	)
	return snap, nil
}

func (c *Collector) pullFeed(ctx context.Context, p Pull, logger *slog.Logger) snapshot.FeedPull {
	posts, err := c.client.Fetch(ctx, p.Path())
	result := snapshot.FeedPull{
		Channel:   p.Channel,
		Sort:      p.Sort,
		FetchedAt: c.now().UTC(),
		Posts:     []moltbook.Post{},
	}
	if err != nil {
		result.Error = err.Error()
		logger.Warn("feed pull failed",
			slog.String("channel", p.Label()),
			slog.String("sort", p.Sort),
			slog.String("error", err.Error()),
		)
		return result
	}
	if posts != nil {
		result.Posts = posts
	}
	result.Count = len(result.Posts)
	return result
}

func (c *Collector) pullInfo(ctx context.Context, p Pull, logger *slog.Logger) snapshot.ChannelInfoPull {
	info, err := c.client.FetchChannelInfo(ctx, p.Channel)
	info.Name = p.Channel
	result := snapshot.ChannelInfoPull{ChannelInfo: info, FetchedAt: c.now().UTC()}
	if err != nil {
		result.ChannelInfo = moltbook.ChannelInfo{Name: p.Channel}
		result.Error = err.Error()
		logger.Warn("channel info pull failed",
			slog.String("channel", p.Channel),
			slog.String("error", err.Error()),
		)
	}
	return result
}
