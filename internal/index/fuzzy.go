package index

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

var (
	tokenCamel = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	tokenSplit = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// stopwords never match on their own.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "of": {}, "or": {}, "for": {},
	"to": {}, "in": {}, "on": {}, "at": {}, "by": {}, "with": {}, "is": {},
	"it": {}, "be": {}, "my": {}, "me": {}, "i": {}, "make": {}, "set": {},
	"change": {}, "please": {}, "want": {}, "should": {}, "how": {}, "do": {},
}

// Tokenize splits s on camelCase boundaries and punctuation and returns
// the lower-cased words.
func Tokenize(s string) []string {
	spaced := tokenCamel.ReplaceAllString(s, "$1 $2")
	fields := strings.Fields(tokenSplit.ReplaceAllString(spaced, " "))
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

// QueryTokens tokenizes a free-text query, dropping stopwords, single
// characters and duplicates.
func QueryTokens(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tok := range Tokenize(s) {
		if len(tok) < 2 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// Similarity scores how well query token q matches text token t, in [0,1].
// Containment scores 1; otherwise it is one minus the normalised
// Levenshtein distance.
func Similarity(q, t string) float64 {
	if q == "" || t == "" {
		return 0
	}
	if strings.Contains(t, q) {
		return 1
	}
	longest := max(utf8.RuneCountInString(q), utf8.RuneCountInString(t))
	d := levenshtein.ComputeDistance(q, t)
	return 1 - float64(d)/float64(longest)
}

type posting struct {
	id    string
	title bool
}

// FuzzyIndex is a typo-tolerant token index over property title,
// description and path.
type FuzzyIndex struct {
	threshold float64
	vocab     map[string][]posting
}

// NewFuzzyIndex creates an empty index. Token pairs scoring below threshold
// do not match.
func NewFuzzyIndex(threshold float64) *FuzzyIndex {
	return &FuzzyIndex{threshold: threshold, vocab: make(map[string][]posting)}
}

// Threshold returns the minimum similarity for a token match.
func (f *FuzzyIndex) Threshold() float64 { return f.threshold }

// Add indexes a document. Title tokens are flagged so they weigh double.
func (f *FuzzyIndex) Add(id, title, description, path string) {
	seen := make(map[string]bool)
	for _, tok := range Tokenize(title) {
		seen[tok] = true
	}
	for _, tok := range Tokenize(description + " " + path) {
		if _, ok := seen[tok]; !ok {
			seen[tok] = false
		}
	}
	for tok, inTitle := range seen {
		f.vocab[tok] = append(f.vocab[tok], posting{id: id, title: inTitle})
	}
}

// Search scores every document matching at least one query token. The
// score sums, per query token, the best similarity over the document's
// tokens, with title matches counted twice.
func (f *FuzzyIndex) Search(query string) map[string]float64 {
	scores := make(map[string]float64)
	for _, q := range QueryTokens(query) {
		best := make(map[string]float64)
		for tok, postings := range f.vocab {
			sim := Similarity(q, tok)
			if sim < f.threshold {
				continue
			}
			for _, p := range postings {
				w := sim
				if p.title {
					w *= 2
				}
				if w > best[p.id] {
					best[p.id] = w
				}
			}
		}
		for id, w := range best {
			scores[id] += w
		}
	}
	return scores
}
