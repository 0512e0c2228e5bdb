// Package w2v builds word-embedding training pairs (skip-gram or CBOW) from a corpus of sentences.
package w2v

import (
	"math/rand"
	"strings"

	"github.com/gomlx/datetrans/vocab"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Method of pairing words with their context.
type Method int

const (
	// SkipGram pairs each word with each of its context words.
	SkipGram Method = iota

	// CBOW pairs the whole context window with the word at its center.
	CBOW
)

// String implements fmt.Stringer.
func (m Method) String() string {
	switch m {
	case SkipGram:
		return "skip_gram"
	case CBOW:
		return "cbow"
	}
	return "unknown"
}

// ParseMethod converts "skip_gram" or "cbow" (case-insensitive) to a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "skip_gram":
		return SkipGram, nil
	case "cbow":
		return CBOW, nil
	}
	return 0, errors.Errorf("unknown w2v method %q, valid values are \"skip_gram\" or \"cbow\"", s)
}

// Dataset of word-embedding training pairs.
type Dataset struct {
	// X holds the input ids of each pair: one center word for SkipGram, the 2*skipWindow context words for CBOW.
	X [][]int

	// Y holds the id to predict: a context word for SkipGram, the center word for CBOW.
	Y []int

	// Vocab ids are ordered by decreasing word frequency, starting at 0.
	Vocab *vocab.Vocabulary
}

// Process splits each sentence of the corpus in words (on spaces) and creates the pairs of
// words within skipWindow of each other, according to method.
func Process(corpus []string, skipWindow int, method Method) (*Dataset, error) {
	if skipWindow <= 0 {
		return nil, errors.Errorf("w2v.Process(): skipWindow must be > 0, got %d", skipWindow)
	}
	if method != SkipGram && method != CBOW {
		return nil, errors.Errorf("w2v.Process(): invalid method %d", method)
	}
	v, err := vocab.ByFrequency(corpus, vocab.Words)
	if err != nil {
		return nil, errors.WithMessage(err, "w2v.Process()")
	}
	ds := &Dataset{Vocab: v}

	var offsets []int
	for j := -skipWindow; j <= skipWindow; j++ {
		if j != 0 {
			offsets = append(offsets, j)
		}
	}
	for _, sentence := range corpus {
		ids, err := v.Encode(vocab.Words(sentence))
		if err != nil {
			// All words were counted while building the vocabulary.
			exceptions.Panicf("w2v.Process(): %v", err)
		}
		switch method {
		case SkipGram:
			for i := range ids {
				for _, j := range offsets {
					if i+j < 0 || i+j >= len(ids) {
						continue
					}
					ds.X = append(ds.X, []int{ids[i]})
					ds.Y = append(ds.Y, ids[i+j])
				}
			}
		case CBOW:
			for i := skipWindow; i < len(ids)-skipWindow; i++ {
				context := make([]int, 0, len(offsets))
				for _, j := range offsets {
					context = append(context, ids[i+j])
				}
				ds.X = append(ds.X, context)
				ds.Y = append(ds.Y, ids[i])
			}
		}
	}
	if klog.V(1).Enabled() {
		for ii := range min(5, len(ds.Y)) {
			klog.Infof("w2v %s pair #%d: %v -> %d", method, ii, ds.X[ii], ds.Y[ii])
		}
	}
	return ds, nil
}

// Len returns the number of pairs.
func (d *Dataset) Len() int { return len(d.Y) }

// Sample n pairs uniformly, with replacement.
func (d *Dataset) Sample(rng *rand.Rand, n int) (x [][]int, y []int) {
	if n > 0 && d.Len() == 0 {
		exceptions.Panicf("w2v.Dataset.Sample(%d) on an empty dataset", n)
	}
	x = make([][]int, n)
	y = make([]int, n)
	for ii := range n {
		idx := rng.Intn(d.Len())
		x[ii], y[ii] = d.X[idx], d.Y[idx]
	}
	return
}
