package moltbook

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// shape classifies a response body before any field is trusted.
type shape int

const (
	shapeEnvelope shape = iota // object carrying a boolean "success"
	shapeArray                 // bare JSON array
	shapeObject                // any other JSON value
)

// payload is the tagged union produced by classify.
type payload struct {
	shape   shape
	success bool
	message string
	fields  map[string]json.RawMessage
	raw     json.RawMessage
}

func classify(body []byte) (payload, error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return payload{}, &ParseError{Raw: string(body), Err: errors.New("body is not valid JSON")}
	}

	p := payload{shape: shapeObject, raw: trimmed}
	switch trimmed[0] {
	case '[':
		p.shape = shapeArray
		return p, nil
	case '{':
	default:
		return p, nil
	}

	if err := json.Unmarshal(trimmed, &p.fields); err != nil {
		return payload{}, &ParseError{Raw: string(body), Err: err}
	}
	rawSuccess, ok := p.fields["success"]
	if !ok {
		return p, nil
	}
	var success bool
	if err := json.Unmarshal(rawSuccess, &success); err != nil {
		return p, nil
	}
	p.shape = shapeEnvelope
	p.success = success
	for _, key := range []string{"message", "error"} {
		if rawMsg, ok := p.fields[key]; ok && p.message == "" {
			_ = json.Unmarshal(rawMsg, &p.message)
		}
	}
	return p, nil
}

// list returns the raw array stored under key, or the payload itself when it
// is a bare array. A missing list is reported as empty.
func (p payload) list(key string) (json.RawMessage, error) {
	switch p.shape {
	case shapeEnvelope:
		if !p.success {
			msg := p.message
			if msg == "" {
				msg = "unknown error"
			}
			return nil, &APIError{Message: msg}
		}
		return p.fieldOrEmpty(key), nil
	case shapeArray:
		return p.raw, nil
	default:
		return p.fieldOrEmpty(key), nil
	}
}

func (p payload) fieldOrEmpty(key string) json.RawMessage {
	if v, ok := p.fields[key]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return v
	}
	return json.RawMessage("[]")
}

func decodePosts(p payload) ([]Post, error) {
	raw, err := p.list("posts")
	if err != nil {
		return nil, err
	}

	var wire []wirePost
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &ParseError{Raw: string(p.raw), Err: err}
	}

	posts := make([]Post, 0, len(wire))
	for _, w := range wire {
		posts = append(posts, w.normalize())
	}
	return posts, nil
}

func decodeChannels(p payload) ([]ChannelInfo, error) {
	raw, err := p.list("submolts")
	if err != nil {
		return nil, err
	}

	var wire []wireChannel
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &ParseError{Raw: string(p.raw), Err: err}
	}

	channels := make([]ChannelInfo, 0, len(wire))
	for _, w := range wire {
		channels = append(channels, ChannelInfo{
			Name:            string(w.Name),
			DisplayName:     string(w.DisplayName),
			Description:     string(w.Description),
			SubscriberCount: firstNonZero(w.SubscriberCount, w.Subscribers, w.MemberCount),
			PostCount:       firstNonZero(w.PostCount, w.Posts),
		})
	}
	return channels, nil
}

// API response types (private - implementation detail)

type wirePost struct {
	ID                flexString `json:"id"`
	Title             flexString `json:"title"`
	Author            nameRef    `json:"author"`
	AuthorName        flexString `json:"author_name"`
	Submolt           nameRef    `json:"submolt"`
	CreatedAt         flexString `json:"created_at"`
	CreatedAtCamel    flexString `json:"createdAt"`
	Upvotes           flexInt    `json:"upvotes"`
	Votes             flexInt    `json:"votes"`
	Score             flexInt    `json:"score"`
	CommentCount      flexInt    `json:"comment_count"`
	CommentCountCamel flexInt    `json:"commentCount"`
	Comments          flexInt    `json:"comments"`
}

func (w wirePost) normalize() Post {
	author := string(w.Author)
	if author == "" {
		author = string(w.AuthorName)
	}
	created := string(w.CreatedAt)
	if created == "" {
		created = string(w.CreatedAtCamel)
	}
	return Post{
		ID:           string(w.ID),
		Title:        string(w.Title),
		Author:       author,
		Channel:      string(w.Submolt),
		CreatedAt:    parseTime(created),
		Upvotes:      firstNonZero(w.Upvotes, w.Votes, w.Score),
		CommentCount: firstNonZero(w.CommentCount, w.CommentCountCamel, w.Comments),
	}
}

type wireChannel struct {
	Name            nameRef    `json:"name"`
	DisplayName     flexString `json:"display_name"`
	Description     flexString `json:"description"`
	SubscriberCount flexInt    `json:"subscriber_count"`
	Subscribers     flexInt    `json:"subscribers"`
	MemberCount     flexInt    `json:"member_count"`
	PostCount       flexInt    `json:"post_count"`
	Posts           flexInt    `json:"posts"`
}

// flexString accepts strings and numbers; anything else decodes as empty.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = flexString(num.String())
		return nil
	}
	*s = ""
	return nil
}

// nameRef accepts either "name" or {"name": "..."}.
type nameRef string

func (n *nameRef) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*n = nameRef(str)
		return nil
	}
	var obj struct {
		Name flexString `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		*n = nameRef(obj.Name)
		return nil
	}
	*n = ""
	return nil
}

// flexInt accepts numbers and numeric strings; anything else decodes as zero.
type flexInt int64

func (i *flexInt) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*i = flexInt(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if n, err := strconv.ParseInt(strings.TrimSpace(str), 10, 64); err == nil {
			*i = flexInt(n)
			return nil
		}
	}
	*i = 0
	return nil
}

func firstNonZero(values ...flexInt) int64 {
	for _, v := range values {
		if v != 0 {
			return int64(v)
		}
	}
	return 0
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
