// Package trends extracts ranked vocabulary from post titles.
package trends

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Defaults used when an Extractor field is left zero.
const (
	DefaultMinLength = 3
	DefaultTop       = 15
)

// DefaultStopWords are English function words that carry no topic.
var DefaultStopWords = []string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by",
	"is", "are", "was", "were", "be", "been", "have", "has", "had", "do", "does", "did",
	"will", "would", "could", "should", "may", "might", "must", "can",
	"this", "that", "these", "those",
	"i", "you", "he", "she", "it", "we", "they",
	"my", "your", "his", "her", "its", "our", "their",
}

// Term is one word and the number of times it was seen.
type Term struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Extractor counts words in titles. Words shorter than MinLength runes, words
// containing a digit, and stop words are dropped.
type Extractor struct {
	stopWords map[string]struct{}
	minLength int
	top       int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithStopWords replaces the stop-word list.
func WithStopWords(words []string) Option {
	return func(e *Extractor) {
		e.stopWords = make(map[string]struct{}, len(words))
		for _, w := range words {
			e.stopWords[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
		}
	}
}

// WithMinLength sets the minimum word length in runes.
func WithMinLength(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.minLength = n
		}
	}
}

// WithTop sets how many terms Top returns.
func WithTop(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.top = n
		}
	}
}

// NewExtractor creates an Extractor with the default policy, adjusted by opts.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{minLength: DefaultMinLength, top: DefaultTop}
	WithStopWords(DefaultStopWords)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tokens splits one title into the words that count towards trends.
func (e *Extractor) Tokens(title string) []string {
	lower := cases.Lower(language.Und).String(title)
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return r
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, lower)

	var words []string
	for _, w := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(w) < e.minLength {
			continue
		}
		if strings.IndexFunc(w, unicode.IsDigit) >= 0 {
			continue
		}
		if _, stop := e.stopWords[w]; stop {
			continue
		}
		words = append(words, w)
	}
	return words
}

// Count returns every surviving word with its frequency, in first-seen order.
func (e *Extractor) Count(titles []string) []Term {
	c := newCounter()
	for _, title := range titles {
		for _, w := range e.Tokens(title) {
			c.add(w, 1)
		}
	}
	return c.terms
}

// Top returns the most frequent words, ties broken by first-seen order.
func (e *Extractor) Top(titles []string) []Term {
	return rank(e.Count(titles), e.top)
}

// Merge sums term counts across lists and returns the top n.
func Merge(n int, lists ...[]Term) []Term {
	c := newCounter()
	for _, list := range lists {
		for _, t := range list {
			c.add(t.Term, t.Count)
		}
	}
	return rank(c.terms, n)
}

type counter struct {
	index map[string]int
	terms []Term
}

func newCounter() *counter {
	return &counter{index: make(map[string]int), terms: []Term{}}
}

func (c *counter) add(word string, n int) {
	if i, ok := c.index[word]; ok {
		c.terms[i].Count += n
		return
	}
	c.index[word] = len(c.terms)
	c.terms = append(c.terms, Term{Term: word, Count: n})
}

func rank(terms []Term, n int) []Term {
	sorted := append([]Term{}, terms...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
