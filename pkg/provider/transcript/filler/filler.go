// Package filler classifies disfluency tokens for transcript sources.
//
// Speech-to-text engines spell hesitation sounds inconsistently ("um",
// "umm", "uhm", "erm", …), so a plain lexicon lookup misses many of them.
// The classifier therefore works in two stages:
//
//  1. Exact lexicon match on the normalized token.
//  2. Phonetic match: Double Metaphone codes of the token are compared
//     against the codes of each lexicon entry, and candidates are confirmed
//     with Jaro-Winkler similarity above a configurable threshold.
//
// Multi-word fillers ("you know", "i mean", "sort of") are matched against a
// sliding two-token window by the callers; Classify accepts either form.
//
// The classifier is read-only after construction and safe for concurrent use.
package filler

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// defaultLexicon lists the disfluency vocabulary shipped with the app.
var defaultLexicon = []string{
	"um", "uh", "er", "ah", "hmm", "mhm",
	"like", "basically", "actually", "literally",
	"you know", "i mean", "sort of", "kind of",
}

// defaultSimilarityThreshold is the Jaro-Winkler score a phonetic candidate
// must reach to be confirmed.
const defaultSimilarityThreshold = 0.88

// Option is a functional option for configuring a [Classifier].
type Option func(*Classifier)

// WithLexicon replaces the default disfluency vocabulary.
func WithLexicon(words []string) Option {
	return func(c *Classifier) {
		c.lexicon = words
	}
}

// WithSimilarityThreshold sets the minimum Jaro-Winkler score required to
// confirm a phonetic candidate. Default: 0.88.
func WithSimilarityThreshold(threshold float64) Option {
	return func(c *Classifier) {
		c.threshold = threshold
	}
}

// Classifier decides whether a token is a filler candidate.
type Classifier struct {
	lexicon   []string
	threshold float64

	exact map[string]struct{}
	codes map[string][]string // lexicon entry -> its metaphone codes
}

// New returns a Classifier over the default lexicon unless overridden.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		lexicon:   defaultLexicon,
		threshold: defaultSimilarityThreshold,
	}
	for _, o := range opts {
		o(c)
	}

	c.exact = make(map[string]struct{}, len(c.lexicon))
	c.codes = make(map[string][]string, len(c.lexicon))
	for _, entry := range c.lexicon {
		norm := normalize(entry)
		if norm == "" {
			continue
		}
		c.exact[norm] = struct{}{}
		p, s := matchr.DoubleMetaphone(strings.ReplaceAll(norm, " ", ""))
		var cs []string
		if p != "" {
			cs = append(cs, p)
		}
		if s != "" && s != p {
			cs = append(cs, s)
		}
		c.codes[norm] = cs
	}
	return c
}

// Classify reports whether token is a disfluency. token may be a single word
// or a short space-separated phrase.
func (c *Classifier) Classify(token string) bool {
	norm := normalize(token)
	if norm == "" {
		return false
	}
	if _, ok := c.exact[norm]; ok {
		return true
	}

	// Phonetic stage. Hesitation sounds are short; skip long tokens to
	// avoid matching real words like "umbrella".
	compact := strings.ReplaceAll(norm, " ", "")
	if len(compact) > 6 {
		return false
	}
	p, s := matchr.DoubleMetaphone(compact)

	for entry, entryCodes := range c.codes {
		if !codesOverlap(p, s, entryCodes) {
			continue
		}
		if matchr.JaroWinkler(compact, strings.ReplaceAll(entry, " ", ""), false) >= c.threshold {
			return true
		}
	}
	return false
}

// normalize lowercases a token and strips surrounding punctuation.
func normalize(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	return strings.Trim(token, ".,!?;:'\"()-")
}

// codesOverlap reports whether either input code appears in entryCodes.
func codesOverlap(primary, secondary string, entryCodes []string) bool {
	for _, code := range entryCodes {
		if code == "" {
			continue
		}
		if code == primary || code == secondary {
			return true
		}
	}
	return false
}
