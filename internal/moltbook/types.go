// Package moltbook provides a read-only client for the Moltbook feed API.
//
// This package enables moltwatch to:
// - Fetch the global new-post feed and per-channel (submolt) hot/new feeds
// - Fetch channel metadata
// - Normalize the upstream's drifting response shapes into one Post shape
package moltbook

import "time"

// Sort modes accepted by the feed endpoints.
const (
	SortHot = "hot"
	SortNew = "new"
)

// Post is one normalized Moltbook post.
type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Channel      string    `json:"channel"`
	CreatedAt    time.Time `json:"createdAt"`
	Upvotes      int64     `json:"upvotes"`
	CommentCount int64     `json:"commentCount"`
}

// Score is the trending score used for every engagement ranking.
func (p Post) Score() int64 {
	return p.Upvotes + 2*p.CommentCount
}

// ChannelInfo is the metadata the API exposes for one channel.
type ChannelInfo struct {
	Name            string `json:"name"`
	DisplayName     string `json:"displayName,omitempty"`
	Description     string `json:"description,omitempty"`
	SubscriberCount int64  `json:"subscriberCount,omitempty"`
	PostCount       int64  `json:"postCount,omitempty"`
}
