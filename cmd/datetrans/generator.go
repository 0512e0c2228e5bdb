package main

import (
	"flag"
	"math/rand"
	"os"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/datetrans/checkpoints"
	"github.com/gomlx/datetrans/countmodel"
	"github.com/gomlx/datetrans/dates"
	"github.com/gomlx/datetrans/datasets"
	"github.com/gomlx/datetrans/samplers"
	"github.com/gomlx/datetrans/training"
	"github.com/gomlx/datetrans/vocab"
	"github.com/gomlx/gomlx/ml/data"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagDataDir     = flag.String("data", "~/work/datetrans", "Directory to store checkpoints.")
	flagCheckpoint  = flag.String("checkpoint", "checkpoint", "Checkpoint directory. Relative to --data directory. Empty to disable saving.")
	flagLoad        = flag.Bool("load", false, "Load the model from --checkpoint instead of training it.")
	flagNumExamples = flag.Int("examples", 4000, "Number of generated date pairs.")
	flagSeed        = flag.Int64("seed", 1, "Random seed for the corpus generation and the training shuffling.")
	flagEpochs      = flag.Int("epochs", 100, "Number of training epochs.")
	flagBatchSize   = flag.Int("batch", 32, "Training batch size.")
	flagReportEvery = flag.Int("report_every", 70, "Report loss and a sample translation every given number of batches. 0 disables it.")
	flagMaxPred     = flag.Int("max_pred", 11, "Number of ids generated when translating.")
)

// App holds the trained translation pipeline.
type App struct {
	Codec   *dates.Codec
	Dataset *datasets.Dataset
	Model   *countmodel.Model
	Sampler *samplers.Sampler
}

// CheckpointDir returns the configured checkpoint directory, or "" if disabled.
func CheckpointDir() string {
	if *flagCheckpoint == "" {
		return ""
	}
	checkpointPath := data.ReplaceTildeInDir(*flagCheckpoint)
	if !path.IsAbs(checkpointPath) {
		dataDir := data.ReplaceTildeInDir(*flagDataDir)
		checkpointPath = path.Join(dataDir, checkpointPath)
	}
	return checkpointPath
}

// BuildDataset generates the corpus and encodes it, from flags --examples and --seed. Panics in case of error.
func BuildDataset(rng *rand.Rand) (*dates.Codec, *datasets.Dataset) {
	corpus := dates.Generate(rng, *flagNumExamples)
	klog.Infof("source dates (yy-mm-dd): %q", corpus.Sources[:min(3, corpus.Len())])
	klog.Infof("target dates (dd/Mon/yyyy): %q", corpus.Targets[:min(3, corpus.Len())])
	v := must.M1(dates.BuildVocabulary(corpus))
	klog.Infof("vocabulary: %d tokens", v.Len())
	klog.V(1).Infof("%s", v)
	codec := must.M1(dates.NewCodec(v))
	ds := must.M1(dates.NewDataset(corpus, codec))
	source, target, _ := ds.Get(0)
	klog.Infof("source sample: %s -> %v", must.M1(codec.Decode(source)), source)
	klog.Infof("target sample: %s -> %v", must.M1(codec.Decode(target)), target)
	return codec, ds
}

// BuildApp trains (or loads) the model and builds the sampler. Panics in case of error.
func BuildApp() *App {
	rng := rand.New(rand.NewSource(*flagSeed))
	app := &App{}
	if *flagLoad {
		checkpointDir := CheckpointDir()
		v, params, err := checkpoints.Load(checkpointDir)
		must.M(err)
		app.Codec = must.M1(dates.NewCodec(v))
		app.Model = must.M1(countmodel.NewFromParameters(params))
		app.Sampler = samplers.New(app.Codec, app.Model, *flagMaxPred)
		klog.Infof("loaded model from %q", checkpointDir)
		return app
	}

	app.Codec, app.Dataset = BuildDataset(rng)
	app.Model = must.M1(countmodel.New(countmodel.DefaultConfig(
		app.Codec.Vocab.Len(), app.Dataset.SourceLength, app.Dataset.TargetLength-1)))
	app.Sampler = samplers.New(app.Codec, app.Model, *flagMaxPred)

	trainer := training.New(app.Model, app.Dataset, app.Sampler, app.Codec, training.Config{
		Epochs:      *flagEpochs,
		BatchSize:   *flagBatchSize,
		ReportEvery: *flagReportEvery,
	})
	losses := must.M1(trainer.Train(rng))
	if len(losses) > 0 {
		klog.Infof("trained %d epochs over %s examples, last epoch mean loss %.4f",
			len(losses), humanize.Comma(int64(app.Dataset.Len())), losses[len(losses)-1])
	}

	if checkpointDir := CheckpointDir(); checkpointDir != "" {
		must.M(checkpoints.Save(checkpointDir, app.Codec.Vocab, app.Model.Parameters()))
		var size uint64
		for _, name := range []string{checkpoints.VocabularyFileName, checkpoints.ParametersFileName} {
			if info, err := os.Stat(path.Join(checkpointDir, name)); err == nil {
				size += uint64(info.Size())
			}
		}
		klog.Infof("saved checkpoint to %q (%s)", checkpointDir, humanize.Bytes(size))
	}
	return app
}

// Translate the given "yy-mm-dd" dates, returning the dates only (no end token).
func (app *App) Translate(sources []string) ([]string, error) {
	outputs, err := app.Sampler.Sample(sources)
	if err != nil {
		return nil, err
	}
	for ii, output := range outputs {
		outputs[ii] = strings.TrimSuffix(output, vocab.EndToken)
	}
	return outputs, nil
}
