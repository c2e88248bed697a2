// Package aggregator rolls a window of daily snapshots into a weekly report.
//
// This package enables moltwatch to:
// - Load the snapshots of a contiguous run of calendar days
// - Skip days that are missing or unreadable instead of failing
// - Merge per-day contributors, channels, trending posts and terms into window-level rankings
package aggregator

import (
	"time"

	"github.com/gauthierbraillon/moltwatch/internal/moltbook"
	"github.com/gauthierbraillon/moltwatch/internal/snapshot"
	"github.com/gauthierbraillon/moltwatch/internal/trends"
)

// WeeklyReport is the aggregated view of one window. It is recomputed on every
// run and only ever persisted in rendered form.
type WeeklyReport struct {
	WindowStart     string
	WindowEnd       string
	GeneratedAt     time.Time
	DaysRequested   int
	DaysAnalyzed    int
	TotalPosts      int
	TotalComments   int64
	TotalUpvotes    int64
	UniqueAuthors   int
	ChannelActivity []ChannelAggregate
	TopTrending     []moltbook.Post
	TopContributors []snapshot.AuthorAggregate
	TopTerms        []trends.Term
	Days            []DayRow
	SkippedDates    []string
}

// ChannelAggregate is a channel's new-post count summed over the window.
type ChannelAggregate struct {
	Name      string
	PostCount int
}

// DayRow is one line of the daily breakdown.
type DayRow struct {
	Date       string
	Posts      int
	Authors    int
	Engagement int64
}

// Limits caps the length of each ranking.
type Limits struct {
	TopTrending     int
	TopContributors int
	TopTerms        int
}

// DefaultLimits returns the rankings sizes of the weekly report.
func DefaultLimits() Limits {
	return Limits{TopTrending: 10, TopContributors: 10, TopTerms: 15}
}
