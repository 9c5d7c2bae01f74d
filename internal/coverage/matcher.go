package coverage

import (
	"strings"
	"unicode"
)

// Matcher expands a keyword into alternative surface forms counted as
// semantic hits.
type Matcher interface {
	Variants(keyword string) []string
}

// SuffixMatcher generates morphological variants by stripping a trailing
// "ing", "ed" or "s" and by appending "ing" and "s". Stems shorter than
// MinStem are not produced, which keeps "king" from matching "k".
type SuffixMatcher struct {
	MinStem int
}

// DefaultMatcher is a SuffixMatcher with a three-letter minimum stem.
func DefaultMatcher() SuffixMatcher {
	return SuffixMatcher{MinStem: 3}
}

func (m SuffixMatcher) Variants(keyword string) []string {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" || strings.ContainsRune(kw, ' ') {
		return nil
	}

	seen := map[string]bool{kw: true}
	var out []string
	add := func(v string) {
		if len(v) < m.MinStem || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}

	for _, suffix := range []string{"ing", "ed", "s"} {
		if strings.HasSuffix(kw, suffix) {
			add(strings.TrimSuffix(kw, suffix))
		}
	}
	add(kw + "ing")
	add(kw + "s")
	return out
}

// tokenize lowercases text, splits on whitespace and strips surrounding
// punctuation from each token.
func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// tokenSet is a normalized response: its tokens for single-word lookups
// and the space-joined form for phrase keywords.
type tokenSet struct {
	words  map[string]bool
	joined string
	count  int
}

func newTokenSet(text string) tokenSet {
	tokens := tokenize(text)
	words := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		words[t] = true
	}
	return tokenSet{
		words:  words,
		joined: " " + strings.Join(tokens, " ") + " ",
		count:  len(tokens),
	}
}

func (ts tokenSet) has(term string) bool {
	term = strings.Join(tokenize(term), " ")
	if term == "" {
		return false
	}
	if !strings.ContainsRune(term, ' ') {
		return ts.words[term]
	}
	return strings.Contains(ts.joined, " "+term+" ")
}

var nameStopwords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "of": true,
	"to": true, "in": true, "on": true, "a": true, "an": true,
}

// nameTokens returns the significant tokens of a topic name.
func nameTokens(name string) []string {
	var out []string
	for _, t := range tokenize(name) {
		if len(t) < 3 || nameStopwords[t] {
			continue
		}
		out = append(out, t)
	}
	return out
}
