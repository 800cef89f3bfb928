// Package search provides a small, deterministic, concurrency-safe in-memory
// ranking index over message texts. The serving layer uses it to order the
// candidates a keyword query returns from the store:
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options (Option pattern)
//   - Unicode-aware tokenization with case folding and optional stop words
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (input order breaks ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// document's token set: score = |Q ∩ D| / |Q ∪ D|.
package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Document is one text to rank, identified by the caller's key.
type Document struct {
	ID   int64
	Text string
}

// Result is a ranked document with a display snippet and its score.
type Result struct {
	ID      int64   `json:"id"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	// TopK returns up to k documents with a positive score.
	TopK(query string, k int) []Result
	// Rank returns every document, best first; documents that share no token
	// with the query keep their input order at the end with score 0.
	Rank(query string) []Result
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords    map[string]struct{}
	maxDocs      int
	snippetRunes int
}

func defaultConfig() config {
	return config{
		stopwords:    nil,
		maxDocs:      0,
		snippetRunes: 200,
	}
}

func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = fold(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// WithSnippetRunes caps the snippet length; 0 keeps the full text.
func WithSnippetRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.snippetRunes = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	id      int64
	snippet string
	tokens  map[string]struct{}
}

type index struct {
	cfg  config
	docs []doc
}

// New builds an Index over docs. Documents without any token are kept so
// that Rank still returns them.
func New(docs []Document, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	out := make([]doc, 0, len(docs))
	for _, d := range docs {
		t := strings.TrimSpace(normalizeWhitespace(d.Text))
		out = append(out, doc{
			id:      d.ID,
			snippet: snippet(t, cfg.snippetRunes),
			tokens:  tokenize(t, cfg.stopwords),
		})
		if cfg.maxDocs > 0 && len(out) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: out}
}

type scored struct {
	pos   int
	score float64
}

func (i *index) score(q string) []scored {
	qTokens := tokenize(q, i.cfg.stopwords)
	qLen := len(qTokens)
	buf := make([]scored, len(i.docs))
	for pos, d := range i.docs {
		buf[pos] = scored{pos: pos}
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + len(d.tokens) - over)
		if union > 0 {
			buf[pos].score = float64(over) / union
		}
	}
	sort.SliceStable(buf, func(a, b int) bool { return buf[a].score > buf[b].score })
	return buf
}

// TopK returns up to k best-matching documents by Jaccard similarity.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	var out []Result
	for _, s := range i.score(q) {
		if s.score <= 0 || len(out) == k {
			break
		}
		out = append(out, i.result(s))
	}
	return out
}

// Rank orders every document by score.
func (i *index) Rank(q string) []Result {
	if len(i.docs) == 0 {
		return nil
	}
	buf := i.score(q)
	out := make([]Result, len(buf))
	for n, s := range buf {
		out[n] = i.result(s)
	}
	return out
}

func (i *index) result(s scored) Result {
	d := i.docs[s.pos]
	return Result{ID: d.id, Snippet: d.snippet, Score: s.score}
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+`)

// fold creates a Caser per call; cases.Caser is not safe for concurrent use.
func fold(s string) string { return cases.Fold().String(s) }

// Tokenize returns the distinct case-folded words of s.
func Tokenize(s string) []string {
	set := tokenize(s, nil)
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(fold(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

func snippet(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:maxRunes])) + "…"
}
