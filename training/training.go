// Package training runs the epoch loop of a sequence model over a dataset, with periodic reports of
// the loss and of a greedy translation of one example.
package training

import (
	"io"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/datetrans/batches"
	"github.com/gomlx/datetrans/datasets"
	"github.com/gomlx/datetrans/samplers"
	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Model is a sequence model that can be trained.
type Model interface {
	samplers.Model

	// TrainStep updates the model with one batch, fed with the true previous target tokens (teacher
	// forcing), and returns the batch loss. inputs and labels are those yielded by a train.Dataset:
	// see datasets.Loader.
	TrainStep(inputs, labels []*tensors.Tensor) (float64, error)
}

// Config holds training hyperparameters.
type Config struct {
	Epochs    int
	BatchSize int

	// ReportEvery is the number of batches between reports. 0 disables reports.
	ReportEvery int
}

// DefaultConfig returns the default training configuration.
func DefaultConfig() Config {
	return Config{
		Epochs:      100,
		BatchSize:   32,
		ReportEvery: 70,
	}
}

// Report of the training progress, with a sample translation of the first example of the batch.
type Report struct {
	Epoch, Batch int
	Loss         float64

	Input, Target, Inference string
}

// TargetDecoder converts a target sequence to text.
type TargetDecoder interface {
	// DecodeTarget returns the text of a target sequence without its start and end tokens.
	DecodeTarget(ids []int) (string, error)
}

// Trainer holds everything needed to train a model.
type Trainer struct {
	Model   Model
	Dataset *datasets.Dataset
	Sampler *samplers.Sampler
	Targets TargetDecoder
	Config  Config

	// OnReport is called every Config.ReportEvery batches. It defaults to LogReport.
	OnReport func(Report)
}

// New creates a Trainer. The sampler is used for the reported translations, and must use model.
func New(model Model, ds *datasets.Dataset, sampler *samplers.Sampler, targets TargetDecoder, config Config) *Trainer {
	return &Trainer{
		Model:    model,
		Dataset:  ds,
		Sampler:  sampler,
		Targets:  targets,
		Config:   config,
		OnReport: LogReport,
	}
}

// LogReport logs the report with klog.
func LogReport(r Report) {
	klog.Infof("Epoch: %d | t: %d | loss: %.3f | input: %s | target: %s | inference: %s",
		r.Epoch, r.Batch, r.Loss, r.Input, r.Target, r.Inference)
}

// Train runs Config.Epochs epochs, shuffling examples with rng, and returns the mean loss of each epoch.
func (t *Trainer) Train(rng *rand.Rand) ([]float64, error) {
	if t.Config.BatchSize <= 0 {
		return nil, errors.Errorf("training: invalid batch size %d", t.Config.BatchSize)
	}
	loader := datasets.NewLoader(t.Dataset, t.Config.BatchSize, rng)
	klog.V(1).Infof("training on %s examples, %d batches per epoch", humanize.Comma(int64(t.Dataset.Len())), loader.NumBatches())
	var ds train.Dataset = loader
	klog.V(1).Infof("dataset: %s", ds.Name())
	epochLosses := make([]float64, 0, t.Config.Epochs)
	for epoch := range t.Config.Epochs {
		start := time.Now()
		ds.Reset()
		var sumLoss float64
		var numBatches int
		for batchIdx := 0; ; batchIdx++ {
			_, inputs, labels, err := ds.Yield()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, errors.WithMessagef(err, "epoch %d, batch %d", epoch, batchIdx)
			}
			loss, err := t.Model.TrainStep(inputs, labels)
			if err != nil {
				return nil, errors.WithMessagef(err, "training step in epoch %d, batch %d", epoch, batchIdx)
			}
			sumLoss += loss
			numBatches++
			if t.Config.ReportEvery > 0 && batchIdx%t.Config.ReportEvery == 0 && t.OnReport != nil {
				report, err := t.report(epoch, batchIdx, loss, inputs, labels)
				if err != nil {
					return nil, err
				}
				t.OnReport(report)
			}
		}
		meanLoss := sumLoss / float64(max(numBatches, 1))
		epochLosses = append(epochLosses, meanLoss)
		klog.V(1).Infof("epoch %d: %d batches, mean loss %.4f, took %s", epoch, numBatches, meanLoss, time.Since(start))
	}
	return epochLosses, nil
}

// report translates the first example of the batch.
func (t *Trainer) report(epoch, batchIdx int, loss float64, inputs, labels []*tensors.Tensor) (Report, error) {
	r := Report{Epoch: epoch, Batch: batchIdx, Loss: loss}
	batch, err := batches.FromTensors(inputs[0], inputs[1], labels[0])
	if err != nil {
		return r, errors.WithMessage(err, "converting report batch")
	}
	outputs, err := t.Sampler.Decode(batch.Sources[:1])
	if err != nil {
		return r, errors.WithMessage(err, "decoding report example")
	}
	if r.Input, err = t.Sampler.Vocab.Decode(batch.Sources[0]); err != nil {
		return r, err
	}
	if r.Target, err = t.Targets.DecodeTarget(batch.Targets[0]); err != nil {
		return r, err
	}
	if r.Inference, err = t.Sampler.Vocab.Decode(outputs[0]); err != nil {
		return r, err
	}
	return r, nil
}
