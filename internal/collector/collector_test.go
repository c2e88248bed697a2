package collector

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauthierbraillon/moltwatch/internal/moltbook"
	"github.com/gauthierbraillon/moltwatch/internal/snapshot"
)

type fakeFetcher struct {
	mu       sync.Mutex
	feeds    map[string][]moltbook.Post
	failures map[string]error
	infos    map[string]moltbook.ChannelInfo
	infoErr  error
	block    map[string]bool
	calls    []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, path string) ([]moltbook.Post, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()

	if f.block[path] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err, ok := f.failures[path]; ok {
		return nil, err
	}
	return f.feeds[path], nil
}

func (f *fakeFetcher) FetchChannelInfo(ctx context.Context, channel string) (moltbook.ChannelInfo, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "info:"+channel)
	f.mu.Unlock()

	if f.infoErr != nil {
		return moltbook.ChannelInfo{Name: channel}, f.infoErr
	}
	return f.infos[channel], nil
}

// barrierFetcher holds every call until all expected calls are in flight,
// so a run that issues pulls one at a time times out instead of completing.
type barrierFetcher struct {
	total    int
	mu       sync.Mutex
	inFlight int
	peak     int
	arrived  int
	all      chan struct{}
}

func newBarrierFetcher(total int) *barrierFetcher {
	return &barrierFetcher{total: total, all: make(chan struct{})}
}

func (b *barrierFetcher) enter(ctx context.Context) error {
	b.mu.Lock()
	b.inFlight++
	if b.inFlight > b.peak {
		b.peak = b.inFlight
	}
	b.arrived++
	if b.arrived == b.total {
		close(b.all)
	}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.inFlight--
		b.mu.Unlock()
	}()

	select {
	case <-b.all:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *barrierFetcher) Fetch(ctx context.Context, path string) ([]moltbook.Post, error) {
	if err := b.enter(ctx); err != nil {
		return nil, err
	}
	return []moltbook.Post{}, nil
}

func (b *barrierFetcher) FetchChannelInfo(ctx context.Context, channel string) (moltbook.ChannelInfo, error) {
	return moltbook.ChannelInfo{Name: channel}, b.enter(ctx)
}

type memorySaver struct {
	saved map[string]*snapshot.DailySnapshot
	err   error
}

func (m *memorySaver) Save(date string, snap *snapshot.DailySnapshot) error {
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = make(map[string]*snapshot.DailySnapshot)
	}
	m.saved[date] = snap
	return nil
}

var fixedNow = time.Date(2026, 2, 1, 6, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func post(id, author, channel, title string, upvotes, comments int64) moltbook.Post {
	return moltbook.Post{ID: id, Author: author, Channel: channel, Title: title, Upvotes: upvotes, CommentCount: comments}
}

func twoChannelConfig() Config {
	return Config{Channels: []string{"memory", "builds"}, GlobalLimit: 50, ChannelLimit: 20, PullTimeout: time.Second}
}

func healthyFetcher() *fakeFetcher {
	return &fakeFetcher{
		feeds: map[string][]moltbook.Post{
			moltbook.GlobalNewPath(50): {
				post("g1", "alice", "memory", "Memory agents rising", 4, 1),
				post("g2", "bob", "builds", "Build pipelines", 6, 3),
			},
			moltbook.ChannelFeedPath("memory", "hot", 20): {
				post("h1", "alice", "", "Ocean memory", 10, 0),
				post("h2", "carol", "", "Agents remember", 1, 1),
			},
			moltbook.ChannelFeedPath("builds", "hot", 20): {
				post("h3", "dave", "", "Ocean builds", 2, 5),
			},
			moltbook.ChannelFeedPath("memory", "new", 20): {
				post("g1", "alice", "memory", "Memory agents rising", 4, 1),
				post("n1", "", "memory", "Anonymous memory", 0, 0),
			},
			moltbook.ChannelFeedPath("builds", "new", 20): {
				post("n2", "bob", "builds", "Another build", 1, 0),
			},
		},
		infos: map[string]moltbook.ChannelInfo{
			"memory": {Name: "memory", SubscriberCount: 42},
			"builds": {Name: "builds", SubscriberCount: 7},
		},
	}
}

func TestPlan_ListsGlobalThenHotNewAndInfoPerChannel(t *testing.T) {
	pulls := Plan(twoChannelConfig())

	require.Len(t, pulls, 7)
	assert.Equal(t, "/posts?sort=new&limit=50", pulls[0].Path())
	assert.Equal(t, "/submolts/memory/feed?sort=hot&limit=20", pulls[1].Path())
	assert.Equal(t, "/submolts/builds/feed?sort=hot&limit=20", pulls[2].Path())
	assert.Equal(t, "/submolts/memory/feed?sort=new&limit=20", pulls[3].Path())
	assert.Equal(t, "/submolts/builds/feed?sort=new&limit=20", pulls[4].Path())
	assert.Equal(t, KindInfo, pulls[5].Kind)
	assert.Equal(t, "/submolts", pulls[6].Path())
}

func TestCollect_IssuesEveryPull(t *testing.T) {
	fetcher := healthyFetcher()
	c := New(fetcher, &memorySaver{}, twoChannelConfig(), WithClock(fixedClock))

	_, err := c.Collect(context.Background(), "2026-02-01")

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"/posts?sort=new&limit=50",
		"/submolts/memory/feed?sort=hot&limit=20",
		"/submolts/builds/feed?sort=hot&limit=20",
		"/submolts/memory/feed?sort=new&limit=20",
		"/submolts/builds/feed?sort=new&limit=20",
		"info:memory",
		"info:builds",
	}, fetcher.calls)
}

func TestCollect_OrganizesPullsInChannelOrder(t *testing.T) {
	c := New(healthyFetcher(), &memorySaver{}, twoChannelConfig(), WithClock(fixedClock))

	snap, err := c.Collect(context.Background(), "2026-02-01")

	require.NoError(t, err)
	require.Len(t, snap.Channels.Hot, 2)
	assert.Equal(t, "memory", snap.Channels.Hot[0].Channel)
	assert.Equal(t, "builds", snap.Channels.Hot[1].Channel)
	assert.Equal(t, "hot", snap.Channels.Hot[0].Sort)
	require.Len(t, snap.Channels.New, 2)
	assert.Equal(t, "new", snap.Channels.New[1].Sort)
	assert.Empty(t, snap.Channels.GlobalNew.Channel)
	assert.Equal(t, 2, snap.Channels.GlobalNew.Count)
	require.Len(t, snap.Channels.Info, 2)
	assert.Equal(t, int64(42), snap.Channels.Info[0].SubscriberCount)
	assert.Equal(t, fixedNow, snap.Channels.Info[0].FetchedAt)
}

func TestCollect_NewPostTotalDoubleCountsGlobalAndChannelFeeds(t *testing.T) {
	c := New(healthyFetcher(), &memorySaver{}, twoChannelConfig(), WithClock(fixedClock))

	snap, err := c.Collect(context.Background(), "2026-02-01")

	require.NoError(t, err)
	// g1 appears in both the global feed and the memory feed and is counted twice.
	assert.Equal(t, 5, snap.Activity.NewPosts.Total)
	assert.Equal(t, 2, snap.Activity.NewPosts.GlobalCount)
	assert.Equal(t, map[string]int{"memory": 2, "builds": 1}, snap.Activity.NewPosts.ByChannel)
	assert.Equal(t, 3, snap.Activity.HotPosts)
}

func TestCollect_EngagementSumsGlobalFeedOnly(t *testing.T) {
	c := New(healthyFetcher(), &memorySaver{}, twoChannelConfig(), WithClock(fixedClock))

	snap, err := c.Collect(context.Background(), "2026-02-01")

	require.NoError(t, err)
	e := snap.Activity.Engagement
	assert.Equal(t, int64(4), e.TotalComments)
	assert.Equal(t, int64(10), e.TotalVotes)
	assert.Equal(t, 0.8, e.AvgCommentsPerPost)
	assert.Equal(t, 2.0, e.AvgVotesPerPost)
}

func TestCollect_AuthorsSkipUnnamedPostsAndRankByCount(t *testing.T) {
	c := New(healthyFetcher(), &memorySaver{}, twoChannelConfig(), WithClock(fixedClock))

	snap, err := c.Collect(context.Background(), "2026-02-01")

	require.NoError(t, err)
	authors := snap.Activity.Authors
	assert.Equal(t, 2, authors.UniqueCount)
	require.Len(t, authors.TopContributors, 2)
	assert.Equal(t, "alice", authors.TopContributors[0].Name)
	assert.Equal(t, 2, authors.TopContributors[0].Count)
	assert.Equal(t, "bob", authors.TopContributors[1].Name)
	assert.Equal(t, []snapshot.PostSummary{
		{ID: "g2", Title: "Build pipelines", Channel: "builds"},
		{ID: "n2", Title: "Another build", Channel: "builds"},
	}, authors.TopContributors[1].Posts)
}

func TestCollect_TrendingRanksHotPostsByWeightedScoreAndTagsChannel(t *testing.T) {
	c := New(healthyFetcher(), &memorySaver{}, twoChannelConfig(), WithClock(fixedClock))

	snap, err := c.Collect(context.Background(), "2026-02-01")

	require.NoError(t, err)
	require.Len(t, snap.Trending, 3)
	assert.Equal(t, "h3", snap.Trending[0].ID, "2 + 2*5 = 12 beats 10")
	assert.Equal(t, "builds", snap.Trending[0].Channel)
	assert.Equal(t, "h1", snap.Trending[1].ID)
	assert.Equal(t, "memory", snap.Trending[1].Channel)
	assert.Equal(t, "h2", snap.Trending[2].ID)
}

func TestCollect_TrendingKeepsTopFive(t *testing.T) {
	fetcher := &fakeFetcher{feeds: map[string][]moltbook.Post{}}
	var hot []moltbook.Post
	for i := int64(0); i < 8; i++ {
		hot = append(hot, post(string(rune('a'+i)), "x", "", "title", i, 0))
	}
	fetcher.feeds[moltbook.ChannelFeedPath("memory", "hot", 20)] = hot
	c := New(fetcher, &memorySaver{}, Config{Channels: []string{"memory"}}, WithClock(fixedClock))

	snap, err := c.Collect(context.Background(), "2026-02-01")

	require.NoError(t, err)
	require.Len(t, snap.Trending, 5)
	assert.Equal(t, "h", snap.Trending[0].ID)
}

func TestCollect_TrendsUseHotAndGlobalTitles(t *testing.T) {
	c := New(healthyFetcher(), &memorySaver{}, twoChannelConfig(), WithClock(fixedClock))

	snap, err := c.Collect(context.Background(), "2026-02-01")

	require.NoError(t, err)
	assert.Equal(t, 5, snap.Trends.TotalPostsAnalyzed)
	require.NotEmpty(t, snap.Trends.SearchTerms)
	assert.Equal(t, "ocean", snap.Trends.SearchTerms[0].Term)
	assert.Equal(t, 2, snap.Trends.SearchTerms[0].Count)
	assert.Equal(t, "memory", snap.Trends.SearchTerms[1].Term)
	for _, term := range snap.Trends.SearchTerms {
		assert.NotEqual(t, "another", term.Term, "channel new-feed titles are not part of trends")
	}
}

func TestCollect_FailedGlobalFeedIsRecordedNotThrown(t *testing.T) {
	fetcher := healthyFetcher()
	fetcher.failures = map[string]error{
		moltbook.GlobalNewPath(50): &moltbook.HTTPError{Status: 502, Body: "bad gateway"},
	}
	c := New(fetcher, &memorySaver{}, twoChannelConfig(), WithClock(fixedClock))

	snap, err := c.Collect(context.Background(), "2026-02-01")

	require.NoError(t, err)
	global := snap.Channels.GlobalNew
	assert.True(t, global.Failed())
	assert.Contains(t, global.Error, "502")
	assert.NotNil(t, global.Posts)
	assert.Empty(t, global.Posts)
	assert.Equal(t, 0, global.Count)
	assert.Equal(t, 3, snap.Activity.NewPosts.Total, "only the per-channel new posts remain")
	assert.Equal(t, int64(0), snap.Activity.Engagement.TotalVotes)
}

func TestCollect_SlowPullTimesOutAloneWithoutFailingTheRun(t *testing.T) {
	fetcher := healthyFetcher()
	fetcher.block = map[string]bool{moltbook.ChannelFeedPath("builds", "hot", 20): true}
	cfg := twoChannelConfig()
	cfg.PullTimeout = 50 * time.Millisecond
	c := New(fetcher, &memorySaver{}, cfg, WithClock(fixedClock))

	snap, err := c.Collect(context.Background(), "2026-02-01")

	require.NoError(t, err)
	assert.True(t, snap.Channels.Hot[1].Failed())
	assert.Contains(t, snap.Channels.Hot[1].Error, "deadline")
	assert.False(t, snap.Channels.Hot[0].Failed())
	assert.Equal(t, 2, snap.Channels.Hot[0].Count)
}

func TestCollect_IssuesAllPullsConcurrently(t *testing.T) {
	cfg := twoChannelConfig()
	cfg.PullTimeout = 2 * time.Second
	fetcher := newBarrierFetcher(len(Plan(cfg)))
	c := New(fetcher, &memorySaver{}, cfg, WithClock(fixedClock))

	start := time.Now()
	snap, err := c.Collect(context.Background(), "2026-02-01")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, len(Plan(cfg)), fetcher.peak, "every pull should be in flight at once")
	assert.Less(t, elapsed, cfg.PullTimeout, "the run should finish before any pull deadline")
	assert.False(t, snap.Channels.GlobalNew.Failed())
	for _, p := range append(snap.Channels.Hot, snap.Channels.New...) {
		assert.False(t, p.Failed(), "%s/%s: %s", p.Channel, p.Sort, p.Error)
	}
	for _, info := range snap.Channels.Info {
		assert.Empty(t, info.Error)
	}
}

func TestCollect_FailedInfoPullKeepsChannelName(t *testing.T) {
	fetcher := healthyFetcher()
	fetcher.infoErr = errors.New("boom")
	c := New(fetcher, &memorySaver{}, twoChannelConfig(), WithClock(fixedClock))

	snap, err := c.Collect(context.Background(), "2026-02-01")

	require.NoError(t, err)
	require.Len(t, snap.Channels.Info, 2)
	assert.Equal(t, "memory", snap.Channels.Info[0].Name)
	assert.Equal(t, "boom", snap.Channels.Info[0].Error)
}

func TestCollect_EverythingFailingStillYieldsCompleteSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{failures: map[string]error{}, infoErr: errors.New("down")}
	for _, p := range Plan(twoChannelConfig()) {
		fetcher.failures[p.Path()] = &moltbook.APIError{Message: "down"}
	}
	c := New(fetcher, &memorySaver{}, twoChannelConfig(), WithClock(fixedClock))

	snap, err := c.Collect(context.Background(), "2026-02-01")

	require.NoError(t, err)
	assert.Equal(t, 0, snap.Activity.NewPosts.Total)
	assert.NotNil(t, snap.Trending)
	assert.NotNil(t, snap.Trends.SearchTerms)
	assert.NotNil(t, snap.Activity.Authors.TopContributors)
	assert.Equal(t, 0.0, snap.Activity.Engagement.AvgVotesPerPost)
}

func TestCollect_RecordsMetadata(t *testing.T) {
	cfg := twoChannelConfig()
	cfg.Agent = "moltwatch"
	cfg.Version = "v1.2.3"
	c := New(healthyFetcher(), &memorySaver{}, cfg, WithClock(fixedClock))

	snap, err := c.Collect(context.Background(), "2026-02-01")

	require.NoError(t, err)
	assert.Equal(t, "2026-02-01", snap.Metadata.Date)
	assert.Equal(t, fixedNow, snap.Metadata.CollectedAt)
	assert.NotEmpty(t, snap.Metadata.RunID)
	assert.Equal(t, "v1.2.3", snap.Metadata.Version)
}

func TestCollect_RejectsInvalidDate(t *testing.T) {
	c := New(healthyFetcher(), &memorySaver{}, twoChannelConfig())

	_, err := c.Collect(context.Background(), "yesterday")

	assert.Error(t, err)
}

func TestRun_SavesSnapshotUnderDate(t *testing.T) {
	saver := &memorySaver{}
	c := New(healthyFetcher(), saver, twoChannelConfig(), WithClock(fixedClock))

	snap, err := c.Run(context.Background(), "2026-02-01")

	require.NoError(t, err)
	assert.Same(t, snap, saver.saved["2026-02-01"])
}

func TestRun_ReturnsErrorWhenSnapshotCannotBeWritten(t *testing.T) {
	saver := &memorySaver{err: errors.New("disk full")}
	c := New(healthyFetcher(), saver, twoChannelConfig(), WithClock(fixedClock))

	_, err := c.Run(context.Background(), "2026-02-01")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRun_PersistsThroughFileStore(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())
	c := New(healthyFetcher(), store, twoChannelConfig(), WithClock(fixedClock))

	snap, err := c.Run(context.Background(), "2026-02-01")
	require.NoError(t, err)

	loaded, err := store.Load("2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, snap.Activity, loaded.Activity)
	assert.Equal(t, snap.Trending, loaded.Trending)
}

func TestRun_FileStoreRoundTripKeepsMultibyteErrorText(t *testing.T) {
	fetcher := healthyFetcher()
	fetcher.failures = map[string]error{
		moltbook.GlobalNewPath(50): &moltbook.HTTPError{Status: 502, Body: "a" + strings.Repeat("é", 200)},
	}
	store := snapshot.NewStore(t.TempDir())
	c := New(fetcher, store, twoChannelConfig(), WithClock(fixedClock))

	snap, err := c.Run(context.Background(), "2026-02-01")
	require.NoError(t, err)

	loaded, err := store.Load("2026-02-01")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(snap.Channels.GlobalNew.Error))
	assert.Equal(t, snap, loaded)
}
