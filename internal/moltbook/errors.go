package moltbook

import (
	"fmt"
	"net/http"
	"unicode/utf8"
)

const maxErrorBody = 256

// HTTPError reports a non-2xx response from the feed API.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("moltbook API returned HTTP %d (%s): %s",
		e.Status, http.StatusText(e.Status), truncate(e.Body, maxErrorBody))
}

// ParseError reports a response body that is not well-formed JSON, or that
// could not be decoded into the expected shape.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse moltbook response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// APIError reports an envelope with success=false.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return "moltbook API error: " + e.Message
}

// truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
