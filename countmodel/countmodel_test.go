package countmodel

import (
	"math"
	"math/rand"
	"testing"

	"github.com/gomlx/datetrans/batches"
	"github.com/gomlx/datetrans/dates"
	"github.com/gomlx/datetrans/datasets"
	"github.com/gomlx/datetrans/samplers"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	codec *dates.Codec
	ds    *datasets.Dataset
	model *Model
}

func newFixture(t *testing.T, corpus *dates.Corpus) *fixture {
	v, err := dates.BuildVocabulary(corpus)
	require.NoError(t, err)
	codec, err := dates.NewCodec(v)
	require.NoError(t, err)
	ds, err := dates.NewDataset(corpus, codec)
	require.NoError(t, err)
	model, err := New(DefaultConfig(v.Len(), ds.SourceLength, ds.TargetLength-1))
	require.NoError(t, err)
	return &fixture{codec: codec, ds: ds, model: model}
}

func allIndices(n int) []int {
	indices := make([]int, n)
	for ii := range indices {
		indices[ii] = ii
	}
	return indices
}

func TestTrainAndDecode(t *testing.T) {
	corpus := &dates.Corpus{
		Sources: []string{"70-01-01", "99-12-31"},
		Targets: []string{"01/Jan/1970", "31/Dec/1999"},
	}
	f := newFixture(t, corpus)
	batch, err := f.ds.Batch(allIndices(f.ds.Len()))
	require.NoError(t, err)

	// Before any counts, distributions are uniform.
	loss0, err := f.model.TrainBatch(batch)
	require.NoError(t, err)
	require.InDelta(t, math.Log(float64(f.model.Config().VocabSize)), loss0, 1e-9)

	// Same batch, through the tensors yielded by datasets.Loader.
	sources, targets, targetLengths := batch.Tensors()
	loss1, err := f.model.TrainStep([]*tensors.Tensor{sources, targets}, []*tensors.Tensor{targetLengths})
	require.NoError(t, err)
	require.Less(t, loss1, loss0)

	_, err = f.model.TrainStep([]*tensors.Tensor{sources}, []*tensors.Tensor{targetLengths})
	require.ErrorContains(t, err, "expected 2 inputs")

	sampler := samplers.New(f.codec, f.model, 11)
	outputs, err := sampler.Decode(batch.Sources)
	require.NoError(t, err)
	for ii, output := range outputs {
		require.Len(t, output, 11)
		text, err := f.codec.DecodeTarget(output)
		require.NoError(t, err)
		require.Equal(t, corpus.Targets[ii], text)
	}

	texts, err := sampler.Sample([]string{"99-12-31"})
	require.NoError(t, err)
	require.Equal(t, []string{"31/Dec/1999<EOS>"}, texts)
}

func TestStepProbabilities(t *testing.T) {
	f := newFixture(t, dates.Generate(rand.New(rand.NewSource(1)), 64))
	batch, err := f.ds.Sample(rand.New(rand.NewSource(2)), 32)
	require.NoError(t, err)
	_, err = f.model.TrainBatch(batch)
	require.NoError(t, err)

	st, err := f.model.Encode(batch.Sources[:3])
	require.NoError(t, err)
	inputs := []int{f.codec.BeginningOfSentenceId(), f.codec.BeginningOfSentenceId(), f.codec.BeginningOfSentenceId()}
	for range f.model.Config().NumPositions + 2 {
		var probs [][]float64
		st, probs, err = f.model.Step(st, inputs)
		require.NoError(t, err)
		require.Len(t, probs, 3)
		for _, dist := range probs {
			require.Len(t, dist, f.model.Config().VocabSize)
			var sum float64
			for _, p := range dist {
				require.True(t, p >= 0)
				sum += p
			}
			require.InDelta(t, 1.0, sum, 1e-9)
		}
	}
}

func TestErrors(t *testing.T) {
	_, err := New(Config{VocabSize: 10, SourceLength: 8, NumPositions: 10})
	require.ErrorContains(t, err, "Smoothing")

	model, err := New(DefaultConfig(5, 2, 3))
	require.NoError(t, err)
	_, err = model.Encode([][]int{{1, 2, 3}})
	var tooLong *batches.SequenceTooLongError
	require.ErrorAs(t, err, &tooLong)
	_, err = model.Encode([][]int{{1, 7}})
	require.ErrorContains(t, err, "out of range")

	st, err := model.Encode([][]int{{1, 2}})
	require.NoError(t, err)
	_, _, err = model.Step(st, []int{1, 2})
	require.Error(t, err)
	_, _, err = model.Step("bad state", []int{1})
	require.Error(t, err)
}

func TestParameters(t *testing.T) {
	f := newFixture(t, dates.Generate(rand.New(rand.NewSource(1)), 16))
	batch, err := f.ds.Batch(allIndices(f.ds.Len()))
	require.NoError(t, err)
	_, err = f.model.TrainBatch(batch)
	require.NoError(t, err)

	params := f.model.Parameters()
	config := f.model.Config()
	// smoothing + per position: prior, previous and one per source position.
	require.Equal(t, 1+config.NumPositions*(2+config.SourceLength), params.NumLeaves())
	prior, found := params.Get([]string{"position_00", PriorName})
	require.True(t, found)
	var total float64
	for _, c := range tensors.CopyFlatData[float64](prior) {
		total += c
	}
	require.Equal(t, float64(f.ds.Len()), total)

	restored, err := NewFromParameters(params)
	require.NoError(t, err)
	require.Equal(t, config, restored.Config())

	sampler1 := samplers.New(f.codec, f.model, 11)
	sampler2 := samplers.New(f.codec, restored, 11)
	out1, err := sampler1.Decode(batch.Sources)
	require.NoError(t, err)
	out2, err := sampler2.Decode(batch.Sources)
	require.NoError(t, err)
	require.Equal(t, out1, out2)
}
