package dates

import (
	"strings"

	"github.com/gomlx/datetrans/datasets"
	"github.com/gomlx/datetrans/vocab"
	"github.com/pkg/errors"
)

// BaseAlphabet is always part of the vocabulary, whatever the corpus.
var BaseAlphabet = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "-", "/"}

// SourceTokens splits a source date into one token per character.
func SourceTokens(source string) []string {
	return vocab.Characters(source)
}

// TargetTokens splits a "dd/Mon/yyyy" date: the first 3 characters are individual tokens, the
// month abbreviation (characters 4 to 6) is a single token, and the rest are individual tokens.
//
// Positions count characters, not bytes. Strings too short to hold a month are split per character.
func TargetTokens(target string) []string {
	runes := []rune(target)
	if len(runes) < 6 {
		return vocab.Characters(target)
	}
	tokens := vocab.Characters(string(runes[:3]))
	tokens = append(tokens, string(runes[3:6]))
	return append(tokens, vocab.Characters(string(runes[6:]))...)
}

// BuildVocabulary returns the vocabulary shared by sources and targets of the corpus.
func BuildVocabulary(corpus *Corpus) (*vocab.Vocabulary, error) {
	b := vocab.NewBuilder(append([]string{vocab.StartToken, vocab.EndToken}, BaseAlphabet...)...)
	b.AddCorpus(corpus.Sources, SourceTokens)
	b.AddCorpus(corpus.Targets, TargetTokens)
	v, err := b.Build()
	if err != nil {
		return nil, errors.WithMessage(err, "building dates vocabulary")
	}
	return v, nil
}

// Codec encodes and decodes dates with a vocabulary.
//
// It implements samplers.Vocabulary.
type Codec struct {
	Vocab *vocab.Vocabulary

	startId, endId int
}

// NewCodec creates a Codec. The vocabulary must hold the start and end tokens.
func NewCodec(v *vocab.Vocabulary) (*Codec, error) {
	c := &Codec{Vocab: v}
	var err error
	c.startId, err = v.Id(vocab.StartToken)
	if err != nil {
		return nil, errors.WithMessage(err, "dates.NewCodec()")
	}
	c.endId, err = v.Id(vocab.EndToken)
	if err != nil {
		return nil, errors.WithMessage(err, "dates.NewCodec()")
	}
	return c, nil
}

// EncodeSource returns the ids of a "yy-mm-dd" date, without boundary markers.
func (c *Codec) EncodeSource(source string) ([]int, error) {
	ids, err := c.Vocab.Encode(SourceTokens(source))
	if err != nil {
		return nil, errors.WithMessagef(err, "encoding source %q", source)
	}
	return ids, nil
}

// EncodeTarget returns the ids of a "dd/Mon/yyyy" date, wrapped by the start and end tokens.
func (c *Codec) EncodeTarget(target string) ([]int, error) {
	ids, err := c.Vocab.Encode(TargetTokens(target))
	if err != nil {
		return nil, errors.WithMessagef(err, "encoding target %q", target)
	}
	seq := make([]int, 0, len(ids)+2)
	seq = append(seq, c.startId)
	seq = append(seq, ids...)
	return append(seq, c.endId), nil
}

// Encode implements samplers.Vocabulary: it is EncodeSource.
func (c *Codec) Encode(text string) ([]int, error) {
	return c.EncodeSource(text)
}

// Decode returns the tokens of ids concatenated, up to and including the first end token.
func (c *Codec) Decode(ids []int) (string, error) {
	return c.Vocab.Decode(ids)
}

// DecodeTarget is like Decode, but it drops the start and end tokens: it returns the date only.
func (c *Codec) DecodeTarget(ids []int) (string, error) {
	text, err := c.Decode(ids)
	if err != nil {
		return "", err
	}
	text = strings.TrimPrefix(text, vocab.StartToken)
	return strings.TrimSuffix(text, vocab.EndToken), nil
}

// BeginningOfSentenceId returns the id of the start token ("<GO>").
func (c *Codec) BeginningOfSentenceId() int { return c.startId }

// EndOfSentenceId returns the id of the end token ("<EOS>").
func (c *Codec) EndOfSentenceId() int { return c.endId }

// PadId returns the id of the padding token, always 0.
func (c *Codec) PadId() int { return vocab.PadId }

// NewDataset encodes the corpus into a dataset.
func NewDataset(corpus *Corpus, codec *Codec) (*datasets.Dataset, error) {
	sources := make([][]int, corpus.Len())
	targets := make([][]int, corpus.Len())
	var err error
	for ii := range corpus.Len() {
		sources[ii], err = codec.EncodeSource(corpus.Sources[ii])
		if err != nil {
			return nil, err
		}
		targets[ii], err = codec.EncodeTarget(corpus.Targets[ii])
		if err != nil {
			return nil, err
		}
	}
	return datasets.New(sources, targets)
}
