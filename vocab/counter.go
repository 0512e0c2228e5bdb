package vocab

import (
	"sort"

	"github.com/gomlx/gomlx/types/xslices"
	"github.com/pkg/errors"
)

// Counter counts token occurrences.
type Counter map[string]int

// CountCorpus segments each text and counts its tokens.
func CountCorpus(texts []string, segmenter Segmenter) Counter {
	c := make(Counter)
	for _, text := range texts {
		for _, token := range segmenter(text) {
			c[token]++
		}
	}
	return c
}

// MostFrequent returns the tokens in decreasing order of count, ties in lexicographic order.
func (c Counter) MostFrequent() []string {
	tokens := xslices.SortedKeys(c)
	sort.SliceStable(tokens, func(i, j int) bool { return c[tokens[i]] > c[tokens[j]] })
	return tokens
}

// ByFrequency builds a Vocabulary where ids follow MostFrequent, starting at 0.
func ByFrequency(texts []string, segmenter Segmenter) (*Vocabulary, error) {
	if len(texts) == 0 {
		return nil, errors.WithStack(&EmptyCorpusError{})
	}
	return FromOrderedTokens(CountCorpus(texts, segmenter).MostFrequent())
}
