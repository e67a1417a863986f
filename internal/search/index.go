// Package search provides a small, deterministic, concurrency-safe in-memory
// text index used to filter catalog products by a visitor's search query.
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options for stop words and prefix matching
//   - Unicode-aware tokenization
//   - Immutable after construction (safe for concurrent use)
//   - Deterministic scoring and ordering
//
// A document matches when it shares at least one token with the query
// (every token with WithMatchAll). Scores use Jaccard similarity between
// the query token set and the document token set:
// score = |Q ∩ D| / |Q ∪ D|.
package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Document is one searchable item, typically a product's name and
// descriptions joined together.
type Document struct {
	ID   uint
	Text string
}

// Result is a matching document id with its similarity score.
type Result struct {
	ID    uint
	Score float64
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords map[string]struct{}
	minPrefix int
	matchAll  bool
}

func defaultConfig() config {
	return config{
		stopwords: toSet(DefaultStopwords),
		minPrefix: 3,
	}
}

// DefaultStopwords are dropped from queries and documents.
var DefaultStopwords = []string{"a", "an", "and", "the", "of", "for", "with", "in", "on", "to", "or"}

// WithStopwords replaces the stop-word list. An empty list disables removal.
func WithStopwords(words []string) Option {
	return func(c *config) {
		c.stopwords = toSet(words)
	}
}

// WithMinPrefix lets a query token of at least n runes match document
// tokens it prefixes ("tent" matches "tents"). n <= 0 disables prefixes.
func WithMinPrefix(n int) Option {
	return func(c *config) {
		c.minPrefix = n
	}
}

// WithMatchAll requires every query token to match.
func WithMatchAll() Option {
	return func(c *config) { c.matchAll = true }
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	id     uint
	tokens map[string]struct{}
}

// Index is an immutable token index over a set of documents.
type Index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index. Documents without any token are skipped.
func NewIndex(docs []Document, opts ...Option) *Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	out := make([]doc, 0, len(docs))
	for _, d := range docs {
		toks := tokenize(normalizeWhitespace(d.Text), cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		out = append(out, doc{id: d.ID, tokens: toks})
	}
	return &Index{cfg: cfg, docs: out}
}

// Search returns the documents matching q, best score first; ties keep
// index order. A blank or stop-word-only query matches nothing.
func (i *Index) Search(q string) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	var out []Result
	for _, d := range i.docs {
		over := i.overlap(qTokens, d.tokens)
		if over == 0 || (i.cfg.matchAll && over < qLen) {
			continue
		}
		union := float64(qLen + len(d.tokens) - over)
		out = append(out, Result{ID: d.id, Score: float64(over) / union})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

// Matches returns the set of document ids matching q.
func (i *Index) Matches(q string) map[uint]struct{} {
	res := i.Search(q)
	m := make(map[uint]struct{}, len(res))
	for _, r := range res {
		m[r.ID] = struct{}{}
	}
	return m
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := stop[w]; skip {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

// overlap counts query tokens found in the document, exactly or as a prefix.
func (i *Index) overlap(q, d map[string]struct{}) int {
	n := 0
	for qt := range q {
		if _, ok := d[qt]; ok {
			n++
			continue
		}
		if i.cfg.minPrefix <= 0 || utf8.RuneCountInString(qt) < i.cfg.minPrefix {
			continue
		}
		for dt := range d {
			if strings.HasPrefix(dt, qt) {
				n++
				break
			}
		}
	}
	return n
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func toSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			m[w] = struct{}{}
		}
	}
	return m
}
