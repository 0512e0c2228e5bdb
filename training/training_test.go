package training

import (
	"math/rand"
	"testing"

	"github.com/gomlx/datetrans/countmodel"
	"github.com/gomlx/datetrans/dates"
	"github.com/gomlx/datetrans/samplers"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// shapesModel records the shapes of the tensors fed to TrainStep.
type shapesModel struct {
	*countmodel.Model
	inputShapes, labelShapes [][]int
}

func (m *shapesModel) TrainStep(inputs, labels []*tensors.Tensor) (float64, error) {
	for _, input := range inputs {
		if input.DType() != dtypes.Int32 {
			return 0, errors.Errorf("unexpected input dtype %s", input.DType())
		}
		m.inputShapes = append(m.inputShapes, input.Shape().Dimensions)
	}
	for _, label := range labels {
		m.labelShapes = append(m.labelShapes, label.Shape().Dimensions)
	}
	return m.Model.TrainStep(inputs, labels)
}

func TestTrain(t *testing.T) {
	corpus := dates.Generate(rand.New(rand.NewSource(1)), 100)
	v, err := dates.BuildVocabulary(corpus)
	require.NoError(t, err)
	codec, err := dates.NewCodec(v)
	require.NoError(t, err)
	ds, err := dates.NewDataset(corpus, codec)
	require.NoError(t, err)
	counts, err := countmodel.New(countmodel.DefaultConfig(v.Len(), ds.SourceLength, ds.TargetLength-1))
	require.NoError(t, err)
	model := &shapesModel{Model: counts}
	sampler := samplers.New(codec, model, ds.TargetLength)

	trainer := New(model, ds, sampler, codec, Config{Epochs: 3, BatchSize: 32, ReportEvery: 2})
	var reports []Report
	trainer.OnReport = func(r Report) {
		LogReport(r)
		reports = append(reports, r)
	}
	losses, err := trainer.Train(rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, losses, 3)
	require.Less(t, losses[2], losses[0])

	// Batches of 32, 32, 32 and 4 examples per epoch, fed as [sources, targets] and [targetLengths].
	require.Len(t, model.inputShapes, 3*4*2)
	require.Equal(t, []int{32, ds.SourceLength}, model.inputShapes[0])
	require.Equal(t, []int{32, ds.TargetLength}, model.inputShapes[1])
	require.Equal(t, []int{4, ds.SourceLength}, model.inputShapes[6])
	require.Equal(t, []int{32}, model.labelShapes[0])

	// 4 batches per epoch: reports at batches 0 and 2.
	require.Len(t, reports, 6)
	for _, r := range reports {
		require.Zero(t, r.Batch%2)
		require.Len(t, r.Input, 8)
		require.Len(t, r.Target, 11)
		require.NotEmpty(t, r.Inference)
	}

	trainer.Config.BatchSize = 0
	_, err = trainer.Train(rand.New(rand.NewSource(1)))
	require.Error(t, err)
}
