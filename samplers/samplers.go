// Package samplers uses a sequence model to generate target sequences with greedy decoding.
package samplers

import (
	"github.com/gomlx/datetrans/batches"
	"github.com/pkg/errors"
)

// Vocabulary converts between text and ids.
type Vocabulary interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)

	// The methods below define the special ids for the model.

	BeginningOfSentenceId() int
	EndOfSentenceId() int
	PadId() int
}

// State is the opaque running state of a Model, e.g. its hidden state.
type State any

// Model is the learned sequence model driven by the Sampler.
type Model interface {
	// Encode a batch of padded source sequences into the initial decoder state.
	Encode(sources [][]int) (State, error)

	// Step feeds one input id per example and returns the updated state and, for each example,
	// a probability distribution over the vocabulary.
	Step(state State, inputs []int) (State, [][]float64, error)
}

// Sampler has a Model and a Vocabulary configured and generates target sequences from sources.
type Sampler struct {
	Vocab Vocabulary
	Model Model

	// MaxSteps is the number of ids generated for each example.
	MaxSteps int
}

// New creates a new sampler with the registered vocabulary and model.
func New(vocab Vocabulary, model Model, maxSteps int) *Sampler {
	return &Sampler{
		Vocab:    vocab,
		Model:    model,
		MaxSteps: maxSteps,
	}
}

// Decode generates MaxSteps ids for each of the (padded) sources.
//
// Each step feeds the previously selected id (the start token at first) and selects the most
// probable next id. Decoding doesn't stop at the end token: every output has exactly MaxSteps ids,
// and Vocabulary.Decode truncates them.
func (s *Sampler) Decode(sources [][]int) ([][]int, error) {
	return s.DecodeMaxSteps(sources, s.MaxSteps)
}

// DecodeMaxSteps is like Decode, but instead of using the default MaxSteps, uses the given maxSteps instead.
func (s *Sampler) DecodeMaxSteps(sources [][]int, maxSteps int) ([][]int, error) {
	if maxSteps < 0 {
		return nil, errors.Errorf("Sampler.Decode() invalid number of steps %d, it must be >= 0", maxSteps)
	}
	batchSize := len(sources)
	outputs := make([][]int, batchSize)
	for ii := range outputs {
		outputs[ii] = make([]int, 0, maxSteps)
	}
	if batchSize == 0 {
		return outputs, nil
	}

	state, err := s.Model.Encode(sources)
	if err != nil {
		return nil, errors.WithMessage(err, "Sampler.Decode() encoding sources")
	}
	inputs := make([]int, batchSize)
	for ii := range inputs {
		inputs[ii] = s.Vocab.BeginningOfSentenceId()
	}
	var probs [][]float64
	for step := range maxSteps {
		state, probs, err = s.Model.Step(state, inputs)
		if err != nil {
			return nil, errors.WithMessagef(err, "Sampler.Decode() at step %d", step)
		}
		if len(probs) != batchSize {
			return nil, errors.Errorf("Sampler.Decode() model returned %d distributions for a batch of %d at step %d",
				len(probs), batchSize, step)
		}
		for ii, dist := range probs {
			if len(dist) == 0 {
				return nil, errors.Errorf("Sampler.Decode() model returned an empty distribution at step %d", step)
			}
			inputs[ii] = ArgMax(dist)
			outputs[ii] = append(outputs[ii], inputs[ii])
		}
	}
	return outputs, nil
}

// Sample translates the given texts: it encodes them, decodes greedily and converts the generated
// ids back to text, up to and including the end token.
func (s *Sampler) Sample(texts []string) ([]string, error) {
	ids := make([][]int, len(texts))
	var err error
	for ii, text := range texts {
		ids[ii], err = s.Vocab.Encode(text)
		if err != nil {
			return nil, err
		}
	}
	sources, err := batches.Pad(ids, batches.MaxLength(ids))
	if err != nil {
		return nil, err
	}
	outputs, err := s.Decode(sources)
	if err != nil {
		return nil, err
	}
	results := make([]string, len(outputs))
	for ii, output := range outputs {
		results[ii], err = s.Vocab.Decode(output)
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// ArgMax returns the index of the largest value. Ties are broken by the lowest index.
func ArgMax(values []float64) int {
	maxIdx := 0
	for ii, v := range values[1:] {
		if v > values[maxIdx] {
			maxIdx = ii + 1
		}
	}
	return maxIdx
}
