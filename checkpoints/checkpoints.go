// Package checkpoints saves and loads a vocabulary along with a tree of model parameters.
//
// Both are stored with msgpack in a directory: the vocabulary tokens in VocabularyFileName and the
// parameters in ParametersFileName.
package checkpoints

import (
	"os"
	"path"

	"github.com/gomlx/datetrans/trees"
	"github.com/gomlx/datetrans/vocab"
	"github.com/gomlx/gomlx/ml/data"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"
)

const (
	VocabularyFileName = "vocabulary"
	ParametersFileName = "checkpoint"
)

// parameter is the serialized form of one float64 tensor.
type parameter struct {
	Dimensions []int     `msgpack:"dims"`
	Values     []float64 `msgpack:"values"`
}

// parametersFile holds the parameters in the order of the tree's OrderedLeaves.
type parametersFile struct {
	Paths      []string    `msgpack:"paths"`
	Parameters []parameter `msgpack:"parameters"`
}

// Save the vocabulary and the parameters under checkpointDir, creating it if needed.
//
// Only float64 parameters are supported.
func Save(checkpointDir string, v *vocab.Vocabulary, params *trees.Tree[*tensors.Tensor]) error {
	checkpointDir = data.ReplaceTildeInDir(checkpointDir)
	if err := os.MkdirAll(checkpointDir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create checkpoint directory %q", checkpointDir)
	}

	contents := parametersFile{Paths: make([]string, 0, params.NumLeaves())}
	for treePath, t := range params.OrderedLeaves() {
		if t.DType() != dtypes.Float64 {
			return errors.Errorf("checkpoints.Save(): parameter %s has dtype %s, only float64 is supported",
				treePath, t.DType())
		}
		contents.Paths = append(contents.Paths, treePath.String())
	}
	encoded := trees.Map(params, func(_ trees.Path, t *tensors.Tensor) parameter {
		return parameter{
			Dimensions: t.Shape().Dimensions,
			Values:     tensors.CopyFlatData[float64](t),
		}
	})
	contents.Parameters = trees.ValuesAsList(encoded)
	if err := writeMsgpack(path.Join(checkpointDir, VocabularyFileName), v.Tokens()); err != nil {
		return err
	}
	return writeMsgpack(path.Join(checkpointDir, ParametersFileName), contents)
}

// Load the vocabulary and the parameters saved by Save in checkpointDir.
func Load(checkpointDir string) (v *vocab.Vocabulary, params *trees.Tree[*tensors.Tensor], err error) {
	checkpointDir = data.ReplaceTildeInDir(checkpointDir)
	var tokens []string
	if err = readMsgpack(path.Join(checkpointDir, VocabularyFileName), &tokens); err != nil {
		return
	}
	v, err = vocab.FromTokens(tokens)
	if err != nil {
		err = errors.WithMessagef(err, "invalid vocabulary in checkpoint %q", checkpointDir)
		return
	}

	var contents parametersFile
	if err = readMsgpack(path.Join(checkpointDir, ParametersFileName), &contents); err != nil {
		return
	}
	if len(contents.Paths) != len(contents.Parameters) {
		err = errors.Errorf("checkpoint %q has %d parameter paths but %d parameters",
			checkpointDir, len(contents.Paths), len(contents.Parameters))
		return
	}

	// structure maps each leaf to its index in the file.
	structure := trees.New[int]()
	for idx, name := range contents.Paths {
		if err = structure.Set(trees.ParsePath(name), idx); err != nil {
			err = errors.WithMessagef(err, "loading checkpoint %q", checkpointDir)
			return
		}
	}
	values := make([]*tensors.Tensor, 0, len(contents.Parameters))
	for _, idx := range structure.OrderedLeaves() {
		p := contents.Parameters[idx]
		size := 1
		for _, dim := range p.Dimensions {
			size *= dim
		}
		if size != len(p.Values) {
			err = errors.Errorf("parameter %q in checkpoint %q has dimensions %v but %d values",
				contents.Paths[idx], checkpointDir, p.Dimensions, len(p.Values))
			return
		}
		values = append(values, tensors.FromFlatDataAndDimensions(p.Values, p.Dimensions...))
	}
	if len(values) != len(contents.Paths) {
		err = errors.Errorf("checkpoint %q has repeated parameter paths", checkpointDir)
		return
	}
	params = trees.FromValuesAndTree(values, structure)
	return
}

func writeMsgpack(filePath string, value any) error {
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create checkpoint file %q", filePath)
	}
	if err = msgpack.NewEncoder(f).Encode(value); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to write checkpoint file %q", filePath)
	}
	return errors.Wrapf(f.Close(), "failed to close checkpoint file %q", filePath)
}

func readMsgpack(filePath string, value any) error {
	f, err := os.Open(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read checkpoint file %q", filePath)
	}
	defer func() { _ = f.Close() }()
	if err = msgpack.NewDecoder(f).Decode(value); err != nil {
		return errors.Wrapf(err, "failed to decode checkpoint file %q", filePath)
	}
	return nil
}
