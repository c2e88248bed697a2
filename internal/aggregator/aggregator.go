package aggregator

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/gauthierbraillon/moltwatch/internal/moltbook"
	"github.com/gauthierbraillon/moltwatch/internal/snapshot"
	"github.com/gauthierbraillon/moltwatch/internal/trends"
)

// DefaultWindowDays is the length of a weekly window.
const DefaultWindowDays = 7

// ErrEmptyWindow is returned when no snapshot in the window could be loaded.
var ErrEmptyWindow = errors.New("no daily snapshots found in window")

// Loader reads one day's snapshot.
type Loader interface {
	Load(date string) (*snapshot.DailySnapshot, error)
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides the time source (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLimits overrides the ranking sizes. Zero fields keep their default.
func WithLimits(l Limits) Option {
	return func(a *Aggregator) {
		if l.TopTrending > 0 {
			a.limits.TopTrending = l.TopTrending
		}
		if l.TopContributors > 0 {
			a.limits.TopContributors = l.TopContributors
		}
		if l.TopTerms > 0 {
			a.limits.TopTerms = l.TopTerms
		}
	}
}

// Aggregator merges daily snapshots.
type Aggregator struct {
	loader Loader
	logger *slog.Logger
	now    func() time.Time
	limits Limits
}

// New creates an Aggregator reading through loader.
func New(loader Loader, opts ...Option) *Aggregator {
	a := &Aggregator{
		loader: loader,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
		limits: DefaultLimits(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WindowDates returns the days calendar dates ending at anchor, oldest first.
func WindowDates(anchor time.Time, days int) []string {
	if days <= 0 {
		days = DefaultWindowDays
	}
	y, m, d := anchor.Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	dates := make([]string, 0, days)
	for i := days - 1; i >= 0; i-- {
		dates = append(dates, snapshot.FormatDate(end.AddDate(0, 0, -i)))
	}
	return dates
}

// Aggregate builds the report for the windowDays days ending at anchor.
// Days without a readable snapshot are skipped; ErrEmptyWindow is returned
// only when none could be read.
func (a *Aggregator) Aggregate(anchor time.Time, windowDays int) (*WeeklyReport, error) {
	dates := WindowDates(anchor, windowDays)
	report := &WeeklyReport{
		WindowStart:   dates[0],
		WindowEnd:     dates[len(dates)-1],
		GeneratedAt:   a.now().UTC(),
		DaysRequested: len(dates),
		SkippedDates:  []string{},
	}

	var days []*snapshot.DailySnapshot
	for _, date := range dates {
		snap, err := a.loader.Load(date)
		if err != nil {
			report.SkippedDates = append(report.SkippedDates, date)
			var corrupt *snapshot.CorruptSnapshotError
			switch {
			case errors.Is(err, snapshot.ErrNotFound):
				a.logger.Debug("no snapshot for date", slog.String("date", date))
			case errors.As(err, &corrupt):
				a.logger.Warn("skipping corrupt snapshot", slog.String("date", date), slog.String("error", err.Error()))
			default:
				a.logger.Warn("skipping unreadable snapshot", slog.String("date", date), slog.String("error", err.Error()))
			}
			continue
		}
		if snap.Metadata.Date == "" {
			snap.Metadata.Date = date
		}
		days = append(days, snap)
	}

	if len(days) == 0 {
		return nil, fmt.Errorf("%w: %s to %s", ErrEmptyWindow, report.WindowStart, report.WindowEnd)
	}

	a.merge(report, days)

	a.logger.Info("window aggregated",
		slog.String("start", report.WindowStart),
		slog.String("end", report.WindowEnd),
		slog.Int("days_analyzed", report.DaysAnalyzed),
		slog.Int("skipped", len(report.SkippedDates)),
	)
	return report, nil
}

// merge folds days, which must be in chronological order, into report.
func (a *Aggregator) merge(report *WeeklyReport, days []*snapshot.DailySnapshot) {
	authors := newAuthorMerger()
	channels := newChannelMerger()
	var trending []moltbook.Post
	var terms [][]trends.Term

	report.Days = make([]DayRow, 0, len(days))
	for _, day := range days {
		act := day.Activity
		report.TotalPosts += act.NewPosts.Total
		report.TotalComments += act.Engagement.TotalComments
		report.TotalUpvotes += act.Engagement.TotalVotes

		for _, contributor := range act.Authors.TopContributors {
			authors.add(contributor)
		}
		channels.addDay(act.NewPosts.ByChannel)
		trending = append(trending, day.Trending...)
		terms = append(terms, day.Trends.SearchTerms)

		report.Days = append(report.Days, DayRow{
			Date:       day.Metadata.Date,
			Posts:      act.NewPosts.Total,
			Authors:    act.Authors.UniqueCount,
			Engagement: act.Engagement.TotalComments + act.Engagement.TotalVotes,
		})
	}

	report.DaysAnalyzed = len(days)
	report.UniqueAuthors = len(authors.list)
	report.TopContributors = snapshot.TopAuthors(authors.list, a.limits.TopContributors)
	report.ChannelActivity = channels.ranked()
	report.TopTrending = snapshot.TopByScore(dedupeFirst(trending), a.limits.TopTrending)
	report.TopTerms = trends.Merge(a.limits.TopTerms, terms...)
}

// dedupeFirst drops every post whose id was already seen, so the earliest
// copy of a post wins.
func dedupeFirst(posts []moltbook.Post) []moltbook.Post {
	seen := make(map[string]struct{}, len(posts))
	out := make([]moltbook.Post, 0, len(posts))
	for _, p := range posts {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

type authorMerger struct {
	index map[string]int
	list  []snapshot.AuthorAggregate
}

func newAuthorMerger() *authorMerger {
	return &authorMerger{index: make(map[string]int), list: []snapshot.AuthorAggregate{}}
}

func (m *authorMerger) add(a snapshot.AuthorAggregate) {
	i, ok := m.index[a.Name]
	if !ok {
		i = len(m.list)
		m.index[a.Name] = i
		m.list = append(m.list, snapshot.AuthorAggregate{Name: a.Name, Posts: []snapshot.PostSummary{}})
	}
	m.list[i].Count += a.Count
	m.list[i].Posts = append(m.list[i].Posts, a.Posts...)
}

type channelMerger struct {
	index map[string]int
	list  []ChannelAggregate
}

func newChannelMerger() *channelMerger {
	return &channelMerger{index: make(map[string]int), list: []ChannelAggregate{}}
}

// addDay adds one day's counts. Channels first seen on the same day are
// ordered by name so the result does not depend on map iteration.
func (m *channelMerger) addDay(counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		i, ok := m.index[name]
		if !ok {
			i = len(m.list)
			m.index[name] = i
			m.list = append(m.list, ChannelAggregate{Name: name})
		}
		m.list[i].PostCount += counts[name]
	}
}

func (m *channelMerger) ranked() []ChannelAggregate {
	sorted := append([]ChannelAggregate{}, m.list...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PostCount > sorted[j].PostCount
	})
	return sorted
}
