// internal/analytics/parser/matcher.go
package parser

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// EntityMatcher resolves a vocabulary entry mentioned in normalized text.
// Implementations share one contract so the parser never knows which is active.
type EntityMatcher interface {
	// Match returns the first vocabulary entry (in vocabulary order) that the
	// text refers to.
	Match(text string, vocabulary []string) (string, bool)
}

// ExactMatcher only accepts literal, case-insensitive substring mentions.
type ExactMatcher struct{}

func (ExactMatcher) Match(text string, vocabulary []string) (string, bool) {
	for _, v := range vocabulary {
		if strings.Contains(text, strings.ToLower(v)) {
			return v, true
		}
	}
	return "", false
}

// DefaultFuzzyThreshold is the minimum similarity for a fuzzy token match.
const DefaultFuzzyThreshold = 0.80

// FuzzyMatcher falls back to token-level edit-distance similarity when no
// exact mention is found, so misspellings like "maharastra" still resolve.
type FuzzyMatcher struct {
	exact     ExactMatcher
	threshold float32
}

func NewFuzzyMatcher(threshold float64) *FuzzyMatcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultFuzzyThreshold
	}
	return &FuzzyMatcher{threshold: float32(threshold)}
}

// Match tries every token of the text in order and returns the best-scoring
// vocabulary entry for the first token that clears the threshold.
func (m *FuzzyMatcher) Match(text string, vocabulary []string) (string, bool) {
	if v, ok := m.exact.Match(text, vocabulary); ok {
		return v, true
	}

	candidates := make([]string, len(vocabulary))
	for i, v := range vocabulary {
		candidates[i] = sortTokens(strings.ToLower(v))
	}

	for _, tok := range strings.Fields(text) {
		best, bestScore := -1, float32(0)
		for i, c := range candidates {
			score, err := edlib.StringsSimilarity(tok, c, edlib.Levenshtein)
			if err != nil {
				continue
			}
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best >= 0 && bestScore >= m.threshold {
			return vocabulary[best], true
		}
	}
	return "", false
}

func sortTokens(s string) string {
	fields := strings.Fields(s)
	sort.Strings(fields)
	return strings.Join(fields, " ")
}

// NewMatcher selects the matcher configured at startup.
func NewMatcher(fuzzy bool, threshold float64) EntityMatcher {
	if fuzzy {
		return NewFuzzyMatcher(threshold)
	}
	return ExactMatcher{}
}
