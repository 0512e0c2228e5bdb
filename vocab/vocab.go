// Package vocab builds closed token sets from a corpus and maps them to dense integer ids.
//
// A Vocabulary is immutable once built: both lookup directions are computed by the Builder and never
// mutated afterward, so a Vocabulary can be shared freely across goroutines.
package vocab

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Reserved marker tokens.
const (
	PadToken   = "<PAD>"
	StartToken = "<GO>"
	EndToken   = "<EOS>"
	MaskToken  = "<MASK>"
	SepToken   = "<SEP>"
)

// PadId is always the id of PadToken.
const PadId = 0

// Vocabulary is a bijective mapping between tokens and ids in [0, Len()).
type Vocabulary struct {
	// tokens is indexed by id.
	tokens []string
	ids    map[string]int
}

// UnknownTokenError is returned when encoding a token that was not seen while building the vocabulary.
type UnknownTokenError struct {
	Token string
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("unknown token %q: not present in the vocabulary", e.Token)
}

// EmptyCorpusError is returned by Builder.Build when no example was added.
type EmptyCorpusError struct{}

func (e *EmptyCorpusError) Error() string {
	return "cannot build a vocabulary from an empty corpus"
}

// FromTokens creates a Vocabulary where each token's id is its position in tokens.
//
// tokens[0] must be PadToken, and tokens must not repeat. It is used to restore a previously
// built vocabulary.
func FromTokens(tokens []string) (*Vocabulary, error) {
	if len(tokens) == 0 || tokens[PadId] != PadToken {
		return nil, errors.Errorf("vocabulary must start with %q at id %d", PadToken, PadId)
	}
	return FromOrderedTokens(tokens)
}

// FromOrderedTokens creates a Vocabulary where each token's id is its position in tokens, with no
// reserved tokens. Used for vocabularies without padding, e.g. ordered by frequency.
func FromOrderedTokens(tokens []string) (*Vocabulary, error) {
	v := &Vocabulary{
		tokens: make([]string, len(tokens)),
		ids:    make(map[string]int, len(tokens)),
	}
	copy(v.tokens, tokens)
	for id, token := range tokens {
		if prevId, found := v.ids[token]; found {
			return nil, errors.Errorf("token %q repeated at ids %d and %d", token, prevId, id)
		}
		v.ids[token] = id
	}
	return v, nil
}

// Len returns the number of tokens, including the reserved markers.
func (v *Vocabulary) Len() int { return len(v.tokens) }

// Tokens returns a copy of the tokens, indexed by id.
func (v *Vocabulary) Tokens() []string {
	return append([]string(nil), v.tokens...)
}

// Has returns whether token is part of the vocabulary.
func (v *Vocabulary) Has(token string) bool {
	_, found := v.ids[token]
	return found
}

// Id returns the id of token, or an *UnknownTokenError.
func (v *Vocabulary) Id(token string) (int, error) {
	id, found := v.ids[token]
	if !found {
		return 0, errors.WithStack(&UnknownTokenError{Token: token})
	}
	return id, nil
}

// Token returns the token for id.
func (v *Vocabulary) Token(id int) (string, error) {
	if id < 0 || id >= len(v.tokens) {
		return "", errors.Errorf("token id %d out of range for vocabulary of size %d", id, len(v.tokens))
	}
	return v.tokens[id], nil
}

// Encode looks up each token, failing on the first unknown one.
func (v *Vocabulary) Encode(tokens []string) ([]int, error) {
	ids := make([]int, len(tokens))
	for ii, token := range tokens {
		id, err := v.Id(token)
		if err != nil {
			return nil, err
		}
		ids[ii] = id
	}
	return ids, nil
}

// Decode concatenates the tokens of ids.
//
// It stops at, and includes, the first EndToken: what follows is padding or trailing output of a
// fixed-length decode. If EndToken is not part of the vocabulary or not present in ids, all ids
// are decoded.
func (v *Vocabulary) Decode(ids []int) (string, error) {
	endId, hasEnd := v.ids[EndToken]
	var sb strings.Builder
	for _, id := range ids {
		token, err := v.Token(id)
		if err != nil {
			return "", err
		}
		sb.WriteString(token)
		if hasEnd && id == endId {
			break
		}
	}
	return sb.String(), nil
}

// String implements fmt.Stringer.
func (v *Vocabulary) String() string {
	parts := make([]string, len(v.tokens))
	for id, token := range v.tokens {
		parts[id] = fmt.Sprintf("%d:%q", id, token)
	}
	return fmt.Sprintf("Vocabulary(%d tokens){%s}", len(v.tokens), strings.Join(parts, ", "))
}
