package vocab

import (
	"strings"

	"github.com/gomlx/gomlx/types/xslices"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// Segmenter splits a raw string into its tokens.
type Segmenter func(text string) []string

// Characters is a Segmenter where every character is its own token.
func Characters(text string) []string {
	tokens := make([]string, 0, len(text))
	for _, r := range text {
		tokens = append(tokens, string(r))
	}
	return tokens
}

// Words is a Segmenter that splits on single spaces.
func Words(text string) []string {
	return strings.Split(text, " ")
}

// Builder collects tokens from a corpus and builds a Vocabulary.
//
// Ids are assigned from 1 following the lexicographic order of all collected and Reserved tokens.
// Appended tokens follow, in the order given, and PadToken is always id 0.
type Builder struct {
	// Reserved tokens are always included, and sorted along with the corpus tokens.
	Reserved []string

	// Appended tokens are assigned the ids after the sorted tokens, in the given order.
	Appended []string

	tokens      map[string]struct{}
	numExamples int
}

// NewBuilder creates a Builder with the given reserved tokens.
func NewBuilder(reserved ...string) *Builder {
	return &Builder{
		Reserved: reserved,
		tokens:   make(map[string]struct{}),
	}
}

// Add tokens of one example.
func (b *Builder) Add(tokens ...string) *Builder {
	for _, token := range tokens {
		b.tokens[token] = struct{}{}
	}
	b.numExamples++
	return b
}

// AddCorpus segments each text and adds its tokens.
func (b *Builder) AddCorpus(texts []string, segmenter Segmenter) *Builder {
	for _, text := range texts {
		b.Add(segmenter(text)...)
	}
	return b
}

// Build the Vocabulary. It returns an *EmptyCorpusError if no example was added.
func (b *Builder) Build() (*Vocabulary, error) {
	if b.numExamples == 0 {
		return nil, errors.WithStack(&EmptyCorpusError{})
	}
	set := make(map[string]struct{}, len(b.tokens)+len(b.Reserved))
	for token := range b.tokens {
		set[token] = struct{}{}
	}
	for _, token := range b.Reserved {
		set[token] = struct{}{}
	}
	for _, token := range b.Appended {
		delete(set, token)
	}
	delete(set, PadToken)

	tokens := make([]string, 0, 1+len(set)+len(b.Appended))
	tokens = append(tokens, PadToken)
	tokens = append(tokens, xslices.SortedKeys(set)...)
	for _, token := range b.Appended {
		if token == PadToken || slices.Contains(tokens, token) {
			continue
		}
		tokens = append(tokens, token)
	}
	return FromTokens(tokens)
}
