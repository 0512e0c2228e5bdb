package mrpc

import (
	"math/rand"

	"github.com/gomlx/datetrans/batches"
	"github.com/gomlx/datetrans/vocab"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// NumSegments is the number of segment ids of PairData: 0 for the first sentence, 1 for the second
// and 2 for the padding.
const NumSegments = 3

// PairData holds the train sentence pairs as "<GO> s1 <SEP> s2 <SEP>", padded.
type PairData struct {
	Vocab *vocab.Vocabulary

	// MaxLen is the padded length, the longest pair of both train and test.
	MaxLen int

	// X [numPairs][MaxLen] holds the encoded pairs.
	X [][]int

	// Segments [numPairs][MaxLen] holds the segment of each position of X.
	Segments [][]int

	// Lengths holds the number of words of s1 and s2 of each pair.
	Lengths [][2]int

	// IsSame is the label of each pair: whether s2 is a paraphrase of s1.
	IsSame []int

	// WordIds are all ids except PadToken, MaskToken and SepToken.
	WordIds []int
}

// NewPairData creates the sentence-pair dataset of the train split.
func NewPairData(d *Data) (*PairData, error) {
	goId, sepId, err := markerIds(d.Vocab)
	if err != nil {
		return nil, err
	}
	p := &PairData{Vocab: d.Vocab}
	for _, split := range []*Split{d.Train, d.Test} {
		for ii := range split.Len() {
			p.MaxLen = max(p.MaxLen, len(split.S1Ids[ii])+len(split.S2Ids[ii])+3)
		}
	}

	train := d.Train
	seqs := make([][]int, train.Len())
	p.Lengths = make([][2]int, train.Len())
	p.Segments = make([][]int, train.Len())
	for ii := range train.Len() {
		s1, s2 := train.S1Ids[ii], train.S2Ids[ii]
		p.Lengths[ii] = [2]int{len(s1), len(s2)}
		seq := make([]int, 0, len(s1)+len(s2)+3)
		seq = append(seq, goId)
		seq = append(seq, s1...)
		seq = append(seq, sepId)
		seq = append(seq, s2...)
		seqs[ii] = append(seq, sepId)

		segments := make([]int, p.MaxLen)
		firstEnd := len(s1) + 2
		secondEnd := firstEnd + len(s2) + 1
		for jj := range segments {
			switch {
			case jj < firstEnd:
				segments[jj] = 0
			case jj < secondEnd:
				segments[jj] = 1
			default:
				segments[jj] = NumSegments - 1
			}
		}
		p.Segments[ii] = segments
	}
	if p.X, err = batches.Pad(seqs, p.MaxLen); err != nil {
		return nil, err
	}
	p.IsSame = append([]int(nil), train.IsSame...)
	p.WordIds = wordIds(d.Vocab, vocab.PadToken, vocab.MaskToken, vocab.SepToken)
	return p, nil
}

// Len returns the number of pairs.
func (p *PairData) Len() int { return len(p.X) }

// MaskId returns the id of MaskToken.
func (p *PairData) MaskId() int {
	id, err := p.Vocab.Id(vocab.MaskToken)
	if err != nil {
		exceptions.Panicf("mrpc vocabulary without %q: %v", vocab.MaskToken, err)
	}
	return id
}

// PairBatch is a sample of PairData.
type PairBatch struct {
	X, Segments [][]int
	Lengths     [][2]int
	IsSame      []int
}

// Sample n pairs uniformly, with replacement.
func (p *PairData) Sample(rng *rand.Rand, n int) *PairBatch {
	if n > 0 && p.Len() == 0 {
		exceptions.Panicf("mrpc.PairData.Sample(%d) on an empty dataset", n)
	}
	b := &PairBatch{
		X:        make([][]int, n),
		Segments: make([][]int, n),
		Lengths:  make([][2]int, n),
		IsSame:   make([]int, n),
	}
	for ii := range n {
		idx := rng.Intn(p.Len())
		b.X[ii], b.Segments[ii], b.Lengths[ii], b.IsSame[ii] = p.X[idx], p.Segments[idx], p.Lengths[idx], p.IsSame[idx]
	}
	return b
}

// SingleData holds each train sentence (both columns) as "<GO> s <SEP>", padded.
type SingleData struct {
	Vocab *vocab.Vocabulary

	// MaxLen is the padded length, the longest train sentence plus 2.
	MaxLen int

	// X [2*numPairs][MaxLen]: all first sentences, followed by all second sentences.
	X [][]int

	// WordIds are all ids except PadToken.
	WordIds []int
}

// NewSingleData creates the single-sentence dataset of the train split.
func NewSingleData(d *Data) (*SingleData, error) {
	goId, sepId, err := markerIds(d.Vocab)
	if err != nil {
		return nil, err
	}
	s := &SingleData{Vocab: d.Vocab}
	var seqs [][]int
	for _, sentences := range [][][]int{d.Train.S1Ids, d.Train.S2Ids} {
		for _, ids := range sentences {
			s.MaxLen = max(s.MaxLen, len(ids)+2)
			seq := make([]int, 0, len(ids)+2)
			seq = append(seq, goId)
			seq = append(seq, ids...)
			seqs = append(seqs, append(seq, sepId))
		}
	}
	if s.X, err = batches.Pad(seqs, s.MaxLen); err != nil {
		return nil, err
	}
	s.WordIds = wordIds(d.Vocab, vocab.PadToken)
	return s, nil
}

// Len returns the number of sentences.
func (s *SingleData) Len() int { return len(s.X) }

// Sample n sentences uniformly, with replacement.
func (s *SingleData) Sample(rng *rand.Rand, n int) [][]int {
	if n > 0 && s.Len() == 0 {
		exceptions.Panicf("mrpc.SingleData.Sample(%d) on an empty dataset", n)
	}
	x := make([][]int, n)
	for ii := range n {
		x[ii] = s.X[rng.Intn(s.Len())]
	}
	return x
}

func markerIds(v *vocab.Vocabulary) (goId, sepId int, err error) {
	if goId, err = v.Id(vocab.StartToken); err != nil {
		err = errors.WithMessage(err, "mrpc vocabulary")
		return
	}
	if sepId, err = v.Id(vocab.SepToken); err != nil {
		err = errors.WithMessage(err, "mrpc vocabulary")
	}
	return
}

// wordIds returns all ids of v except those of the excluded tokens, in increasing order.
func wordIds(v *vocab.Vocabulary, excluded ...string) []int {
	skip := make(map[string]bool, len(excluded))
	for _, token := range excluded {
		skip[token] = true
	}
	var ids []int
	for id, token := range v.Tokens() {
		if !skip[token] {
			ids = append(ids, id)
		}
	}
	return ids
}
