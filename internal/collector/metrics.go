package collector

import (
	"math"

	"github.com/gauthierbraillon/moltwatch/internal/moltbook"
	"github.com/gauthierbraillon/moltwatch/internal/snapshot"
	"github.com/gauthierbraillon/moltwatch/internal/trends"
)

// derive fills the activity, trending and trends blocks from the raw pulls.
func derive(snap *snapshot.DailySnapshot, cfg Config, extractor *trends.Extractor) {
	pulls := snap.Channels
	newPosts := concatNewPosts(pulls)

	byChannel := make(map[string]int, len(pulls.New))
	for _, p := range pulls.New {
		byChannel[p.Channel] = p.Count
	}

	hotPosts := 0
	for _, p := range pulls.Hot {
		hotPosts += p.Count
	}

	uniqueAuthors, topAuthors := rankAuthors(newPosts, cfg.TopAuthors)
	snap.Activity = snapshot.Activity{
		NewPosts: snapshot.NewPosts{
			Total:       len(newPosts),
			GlobalCount: pulls.GlobalNew.Count,
			ByChannel:   byChannel,
		},
		Engagement: engagement(pulls.GlobalNew.Posts, len(newPosts)),
		Authors: snapshot.Authors{
			UniqueCount:     uniqueAuthors,
			TopContributors: topAuthors,
		},
		HotPosts: hotPosts,
	}

	snap.Trending = rankTrending(pulls.Hot, cfg.TopTrending)

	titles := trendTitles(pulls)
	snap.Trends = snapshot.Trends{
		SearchTerms:        extractor.Top(titles),
		TotalPostsAnalyzed: len(titles),
	}
}

// concatNewPosts is the global new feed followed by every channel new feed.
// It is a concatenation, not a set union.
func concatNewPosts(pulls snapshot.Pulls) []moltbook.Post {
	posts := append([]moltbook.Post{}, pulls.GlobalNew.Posts...)
	for _, p := range pulls.New {
		posts = append(posts, p.Posts...)
	}
	return posts
}

// rankAuthors counts posts per author name. Posts without an author are
// skipped. Ties keep first-seen order.
func rankAuthors(posts []moltbook.Post, top int) (int, []snapshot.AuthorAggregate) {
	index := make(map[string]int)
	authors := []snapshot.AuthorAggregate{}
	for _, p := range posts {
		if p.Author == "" {
			continue
		}
		i, ok := index[p.Author]
		if !ok {
			i = len(authors)
			index[p.Author] = i
			authors = append(authors, snapshot.AuthorAggregate{Name: p.Author, Posts: []snapshot.PostSummary{}})
		}
		authors[i].Count++
		authors[i].Posts = append(authors[i].Posts, snapshot.PostSummary{
			ID:        p.ID,
			Title:     p.Title,
			Channel:   p.Channel,
			CreatedAt: p.CreatedAt,
		})
	}
	return len(authors), snapshot.TopAuthors(authors, top)
}

// engagement sums comments and votes over the global feed; the averages use
// the full new-post total as denominator.
func engagement(global []moltbook.Post, total int) snapshot.Engagement {
	var e snapshot.Engagement
	for _, p := range global {
		e.TotalComments += p.CommentCount
		e.TotalVotes += p.Upvotes
	}
	if total > 0 {
		e.AvgCommentsPerPost = round2(float64(e.TotalComments) / float64(total))
		e.AvgVotesPerPost = round2(float64(e.TotalVotes) / float64(total))
	}
	return e
}

// rankTrending flattens the hot pulls, tagging each post with its pull's
// channel, and keeps the n best by trending score.
func rankTrending(hot []snapshot.FeedPull, n int) []moltbook.Post {
	var posts []moltbook.Post
	for _, pull := range hot {
		for _, p := range pull.Posts {
			p.Channel = pull.Channel
			posts = append(posts, p)
		}
	}
	return snapshot.TopByScore(posts, n)
}

// trendTitles is every hot-feed title followed by every global-feed title.
func trendTitles(pulls snapshot.Pulls) []string {
	titles := []string{}
	for _, pull := range pulls.Hot {
		for _, p := range pull.Posts {
			titles = append(titles, p.Title)
		}
	}
	for _, p := range pulls.GlobalNew.Posts {
		titles = append(titles, p.Title)
	}
	return titles
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
