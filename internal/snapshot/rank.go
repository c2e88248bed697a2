package snapshot

import (
	"sort"

	"github.com/gauthierbraillon/moltwatch/internal/moltbook"
)

// TopByScore sorts posts by trending score, highest first, keeping the input
// order among equals, and returns at most n.
func TopByScore(posts []moltbook.Post, n int) []moltbook.Post {
	sorted := append([]moltbook.Post{}, posts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score() > sorted[j].Score()
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// TopAuthors sorts authors by post count, highest first, keeping the input
// order among equals, and returns at most n.
func TopAuthors(authors []AuthorAggregate, n int) []AuthorAggregate {
	sorted := append([]AuthorAggregate{}, authors...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
