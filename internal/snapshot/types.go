// Package snapshot defines the daily snapshot record and its date-keyed,
// file-backed store.
//
// A snapshot is written once per calendar day by the collector and only read
// afterwards; re-collecting a day replaces the file wholesale.
package snapshot

import (
	"time"

	"github.com/gauthierbraillon/moltwatch/internal/moltbook"
	"github.com/gauthierbraillon/moltwatch/internal/trends"
)

// DailySnapshot is the unit of persistence.
type DailySnapshot struct {
	Metadata Metadata        `json:"metadata"`
	Channels Pulls           `json:"channels"`
	Activity Activity        `json:"activity"`
	Trending []moltbook.Post `json:"trending"`
	Trends   Trends          `json:"trends"`
}

// Metadata describes the collection run that produced a snapshot.
type Metadata struct {
	Date        string    `json:"date"`
	CollectedAt time.Time `json:"collectedAt"`
	DurationMs  int64     `json:"durationMs"`
	RunID       string    `json:"runId"`
	Agent       string    `json:"agent,omitempty"`
	Version     string    `json:"version,omitempty"`
}

// Pulls holds the raw result of every feed call made for the day.
type Pulls struct {
	Hot       []FeedPull        `json:"hot"`
	New       []FeedPull        `json:"new"`
	GlobalNew FeedPull          `json:"globalNew"`
	Info      []ChannelInfoPull `json:"info"`
}

// FeedPull is the outcome of one feed call. On failure Error is set and
// Posts is empty; Count always equals len(Posts).
type FeedPull struct {
	Channel   string          `json:"channel,omitempty"`
	Sort      string          `json:"sort"`
	FetchedAt time.Time       `json:"fetchedAt"`
	Count     int             `json:"count"`
	Posts     []moltbook.Post `json:"posts"`
	Error     string          `json:"error,omitempty"`
}

// Failed reports whether the pull recorded an error.
func (p FeedPull) Failed() bool {
	return p.Error != ""
}

// ChannelInfoPull is the outcome of one channel metadata call.
type ChannelInfoPull struct {
	moltbook.ChannelInfo
	FetchedAt time.Time `json:"fetchedAt"`
	Error     string    `json:"error,omitempty"`
}

// Activity is the block of metrics derived on the day of collection.
type Activity struct {
	NewPosts   NewPosts   `json:"newPosts"`
	Engagement Engagement `json:"engagement"`
	Authors    Authors    `json:"authors"`
	HotPosts   int        `json:"hotPosts"`
}

// NewPosts counts the new-feed posts seen. Total is the length of the global
// feed concatenated with every channel feed, so a post present in both is
// counted twice.
type NewPosts struct {
	Total       int            `json:"total"`
	GlobalCount int            `json:"globalCount"`
	ByChannel   map[string]int `json:"byChannel"`
}

// Engagement sums are taken over the global new feed only; the averages
// divide them by NewPosts.Total.
type Engagement struct {
	TotalComments      int64   `json:"totalComments"`
	TotalVotes         int64   `json:"totalVotes"`
	AvgCommentsPerPost float64 `json:"avgCommentsPerPost"`
	AvgVotesPerPost    float64 `json:"avgVotesPerPost"`
}

// Authors summarizes who posted.
type Authors struct {
	UniqueCount     int               `json:"uniqueCount"`
	TopContributors []AuthorAggregate `json:"topContributors"`
}

// AuthorAggregate is one author's post count and the posts behind it.
type AuthorAggregate struct {
	Name  string        `json:"name"`
	Count int           `json:"count"`
	Posts []PostSummary `json:"posts"`
}

// PostSummary is the short form of a post kept under its author.
type PostSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Channel   string    `json:"channel"`
	CreatedAt time.Time `json:"createdAt"`
}

// Trends is the day's vocabulary ranking.
type Trends struct {
	SearchTerms        []trends.Term `json:"searchTerms"`
	TotalPostsAnalyzed int           `json:"totalPostsAnalyzed"`
}
