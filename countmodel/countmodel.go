// Package countmodel implements a sequence model based on counts, with no learned weights.
//
// For each target position it keeps, for every target id, how often it co-occurred with each
// source token (per source position) and with the previous target token. Next-token
// probabilities are computed naive-Bayes style from the smoothed counts.
//
// It plays the role of the learned sequence model (encode, step, train step) so translation can be
// trained and decoded end to end, without any tensor engine.
package countmodel

import (
	"math"

	"github.com/gomlx/datetrans/batches"
	"github.com/gomlx/datetrans/samplers"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"
)

// Model is a count-based sequence model. It implements samplers.Model.
//
// TrainStep and TrainBatch mutate the counts: they must not run concurrently with Encode or Step.
type Model struct {
	config    Config
	positions []*positionCounts
}

// positionCounts holds the counts of one target position. Matrices are flat [VocabSize*VocabSize],
// indexed by targetId*VocabSize+featureId.
type positionCounts struct {
	prior    []float64
	sources  [][]float64
	previous []float64
}

var _ samplers.Model = (*Model)(nil)

// New creates a Model with all counts zero.
func New(config Config) (*Model, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	m := &Model{
		config:    config,
		positions: make([]*positionCounts, config.NumPositions),
	}
	vocabSize := config.VocabSize
	for pos := range m.positions {
		pc := &positionCounts{
			prior:    make([]float64, vocabSize),
			sources:  make([][]float64, config.SourceLength),
			previous: make([]float64, vocabSize*vocabSize),
		}
		for ii := range pc.sources {
			pc.sources[ii] = make([]float64, vocabSize*vocabSize)
		}
		m.positions[pos] = pc
	}
	return m, nil
}

// Config returns the model configuration.
func (m *Model) Config() Config { return m.config }

// state of a batch being decoded.
type state struct {
	sources  [][]int
	position int
}

// Encode implements samplers.Model. The "encoding" of the sources is the sources themselves.
func (m *Model) Encode(sources [][]int) (samplers.State, error) {
	for ii, source := range sources {
		if len(source) > m.config.SourceLength {
			return nil, errors.WithStack(&batches.SequenceTooLongError{
				Index: ii, Length: len(source), TargetLength: m.config.SourceLength})
		}
		if err := m.checkIds(source); err != nil {
			return nil, errors.WithMessagef(err, "source #%d", ii)
		}
	}
	return &state{sources: sources}, nil
}

// Step implements samplers.Model.
func (m *Model) Step(st samplers.State, inputs []int) (samplers.State, [][]float64, error) {
	s, ok := st.(*state)
	if !ok {
		return nil, nil, errors.Errorf("countmodel.Step() given a state of type %T, not created by Encode", st)
	}
	if len(inputs) != len(s.sources) {
		return nil, nil, errors.Errorf("countmodel.Step() given %d inputs for a batch of %d", len(inputs), len(s.sources))
	}
	if err := m.checkIds(inputs); err != nil {
		return nil, nil, errors.WithMessage(err, "countmodel.Step() inputs")
	}
	probs := make([][]float64, len(inputs))
	for ii, input := range inputs {
		probs[ii] = softmax(m.logScores(s.position, s.sources[ii], input))
	}
	return &state{sources: s.sources, position: s.position + 1}, probs, nil
}

// TrainStep implements training.Model: inputs are the [sources, targets] tensors and labels the
// [targetLengths] tensor, as yielded by datasets.Loader. See TrainBatch.
func (m *Model) TrainStep(inputs, labels []*tensors.Tensor) (float64, error) {
	if len(inputs) != 2 || len(labels) != 1 {
		return 0, errors.Errorf("countmodel.TrainStep(): expected 2 inputs and 1 label, got %d and %d",
			len(inputs), len(labels))
	}
	batch, err := batches.FromTensors(inputs[0], inputs[1], labels[0])
	if err != nil {
		return 0, errors.WithMessage(err, "countmodel.TrainStep()")
	}
	return m.TrainBatch(batch)
}

// TrainBatch returns the mean negative log-likelihood of the batch targets, fed with the true previous
// target tokens, and then adds the batch to the counts.
//
// Padding positions (past each example's target length) are excluded.
func (m *Model) TrainBatch(batch *batches.Batch) (float64, error) {
	if _, err := m.Encode(batch.Sources); err != nil {
		return 0, err
	}
	type observation struct {
		example, position int
	}
	var observations []observation
	var loss float64
	for ii, target := range batch.Targets {
		if err := m.checkIds(target); err != nil {
			return 0, errors.WithMessagef(err, "target #%d", ii)
		}
		numPredicted := min(batch.TargetLengths[ii], len(target)-1, m.config.NumPositions)
		for pos := range numPredicted {
			logProbs := logSoftmax(m.logScores(pos, batch.Sources[ii], target[pos]))
			loss -= logProbs[target[pos+1]]
			observations = append(observations, observation{ii, pos})
		}
	}
	if len(observations) == 0 {
		return 0, nil
	}
	for _, obs := range observations {
		m.observe(obs.position, batch.Sources[obs.example], batch.Targets[obs.example][obs.position],
			batch.Targets[obs.example][obs.position+1])
	}
	return loss / float64(len(observations)), nil
}

// observe adds one occurrence of targetId at pos, given the source and the previous id.
func (m *Model) observe(pos int, source []int, previousId, targetId int) {
	vocabSize := m.config.VocabSize
	pc := m.positions[pos]
	pc.prior[targetId]++
	pc.previous[targetId*vocabSize+previousId]++
	for jj := range pc.sources {
		sourceId := batches.PadId
		if jj < len(source) {
			sourceId = source[jj]
		}
		pc.sources[jj][targetId*vocabSize+sourceId]++
	}
}

// logScores returns the unnormalized log-probability of each target id at pos.
func (m *Model) logScores(pos int, source []int, previousId int) []float64 {
	vocabSize := m.config.VocabSize
	scores := make([]float64, vocabSize)
	if pos >= len(m.positions) {
		return scores
	}
	pc := m.positions[pos]
	alpha := m.config.Smoothing
	smoothedVocab := alpha * float64(vocabSize)
	for targetId := range scores {
		prior := pc.prior[targetId]
		featureNorm := math.Log(prior + smoothedVocab)
		score := math.Log(prior + alpha)
		score += math.Log(pc.previous[targetId*vocabSize+previousId]+alpha) - featureNorm
		for jj, counts := range pc.sources {
			sourceId := batches.PadId
			if jj < len(source) {
				sourceId = source[jj]
			}
			score += math.Log(counts[targetId*vocabSize+sourceId]+alpha) - featureNorm
		}
		scores[targetId] = score
	}
	return scores
}

func (m *Model) checkIds(ids []int) error {
	for _, id := range ids {
		if id < 0 || id >= m.config.VocabSize {
			return errors.Errorf("id %d out of range for vocabulary size %d", id, m.config.VocabSize)
		}
	}
	return nil
}

func logSoftmax(scores []float64) []float64 {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		maxScore = max(maxScore, s)
	}
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - maxScore)
	}
	logSum := maxScore + math.Log(sum)
	logProbs := make([]float64, len(scores))
	for ii, s := range scores {
		logProbs[ii] = s - logSum
	}
	return logProbs
}

func softmax(scores []float64) []float64 {
	probs := logSoftmax(scores)
	for ii, lp := range probs {
		probs[ii] = math.Exp(lp)
	}
	return probs
}
