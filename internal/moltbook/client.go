package moltbook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL   = "https://www.moltbook.com"
	apiPrefix        = "/api/v1"
	defaultUserAgent = "moltwatch/1.0"

	// DefaultTimeout bounds a single feed request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseBytes caps how much of a response body is read.
	DefaultMaxResponseBytes int64 = 8 << 20
)

// HTTPClient interface for making HTTP requests (allows injection for testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithMaxResponseBytes overrides the response body size cap.
func WithMaxResponseBytes(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client is a read-only Moltbook API client.
type Client struct {
	token      string
	baseURL    string
	userAgent  string
	httpClient HTTPClient
	logger     *slog.Logger
	maxBody    int64
}

// NewClient creates a new Moltbook client authenticated with a bearer token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.New(slog.DiscardHandler),
		maxBody:    DefaultMaxResponseBytes,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GlobalNewPath is the platform-wide new-post feed.
func GlobalNewPath(limit int) string {
	return fmt.Sprintf("/posts?sort=%s&limit=%d", SortNew, limit)
}

// ChannelFeedPath is the feed of one channel in the given sort mode.
func ChannelFeedPath(channel, sort string, limit int) string {
	return fmt.Sprintf("/submolts/%s/feed?sort=%s&limit=%d", url.PathEscape(channel), url.QueryEscape(sort), limit)
}

// ChannelsPath lists every channel with its metadata.
const ChannelsPath = "/submolts"

// Fetch retrieves the posts behind a relative API path such as
// "/posts?sort=new&limit=50". It performs no retries.
func (c *Client) Fetch(ctx context.Context, path string) ([]Post, error) {
	body, err := c.doRequest(ctx, path)
	if err != nil {
		return nil, err
	}

	p, err := classify(body)
	if err != nil {
		return nil, err
	}
	return decodePosts(p)
}

// FetchGlobalNew retrieves the newest posts across all channels.
func (c *Client) FetchGlobalNew(ctx context.Context, limit int) ([]Post, error) {
	return c.Fetch(ctx, GlobalNewPath(limit))
}

// FetchChannelFeed retrieves one channel's feed.
func (c *Client) FetchChannelFeed(ctx context.Context, channel, sort string, limit int) ([]Post, error) {
	return c.Fetch(ctx, ChannelFeedPath(channel, sort, limit))
}

// FetchChannels retrieves the metadata of every channel.
func (c *Client) FetchChannels(ctx context.Context) ([]ChannelInfo, error) {
	body, err := c.doRequest(ctx, ChannelsPath)
	if err != nil {
		return nil, err
	}

	p, err := classify(body)
	if err != nil {
		return nil, err
	}
	return decodeChannels(p)
}

// FetchChannelInfo retrieves the metadata of one channel. A channel missing
// from the listing yields a ChannelInfo carrying only its name.
func (c *Client) FetchChannelInfo(ctx context.Context, channel string) (ChannelInfo, error) {
	channels, err := c.FetchChannels(ctx)
	if err != nil {
		return ChannelInfo{Name: channel}, err
	}
	for _, ch := range channels {
		if ch.Name == channel {
			return ch, nil
		}
	}
	return ChannelInfo{Name: channel}, nil
}

func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	endpoint := c.baseURL + apiPrefix + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("moltbook request %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("moltbook response for %s exceeds %d bytes", path, c.maxBody)
	}

	c.logger.Debug("moltbook request",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
