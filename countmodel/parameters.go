package countmodel

import (
	"fmt"
	"strings"

	"github.com/gomlx/datetrans/trees"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Names of the parameter tree nodes.
const (
	SmoothingName = "smoothing"
	PriorName     = "prior"
	PreviousName  = "previous"
)

func positionName(pos int) string { return fmt.Sprintf("position_%02d", pos) }
func sourceName(idx int) string   { return fmt.Sprintf("source_%02d", idx) }

// Parameters returns a copy of the model counts as a tree of float64 tensors:
//
//	"smoothing": scalar
//	"position_XX/prior": [VocabSize]
//	"position_XX/previous": [VocabSize, VocabSize], indexed by [targetId, previousId]
//	"position_XX/source_YY": [VocabSize, VocabSize], indexed by [targetId, sourceId]
func (m *Model) Parameters() *trees.Tree[*tensors.Tensor] {
	vocabSize := m.config.VocabSize
	params := trees.New[*tensors.Tensor]()
	mustSet := func(treePath trees.Path, t *tensors.Tensor) {
		if err := params.Set(treePath, t); err != nil {
			// Paths are unique by construction.
			panic(err)
		}
	}
	mustSet(trees.Path{SmoothingName}, tensors.FromScalar(m.config.Smoothing))
	for pos, pc := range m.positions {
		scope := positionName(pos)
		mustSet(trees.Path{scope, PriorName}, tensors.FromFlatDataAndDimensions(clone(pc.prior), vocabSize))
		mustSet(trees.Path{scope, PreviousName},
			tensors.FromFlatDataAndDimensions(clone(pc.previous), vocabSize, vocabSize))
		for jj, counts := range pc.sources {
			mustSet(trees.Path{scope, sourceName(jj)},
				tensors.FromFlatDataAndDimensions(clone(counts), vocabSize, vocabSize))
		}
	}
	return params
}

// NewFromParameters creates a Model from a tree created by Parameters.
func NewFromParameters(params *trees.Tree[*tensors.Tensor]) (*Model, error) {
	smoothing, found := params.Get(trees.Path{SmoothingName})
	if !found {
		return nil, errors.Errorf("countmodel: parameter %q missing", SmoothingName)
	}
	if err := checkShape(SmoothingName, smoothing, shapes.Make(dtypes.Float64)); err != nil {
		return nil, err
	}
	prior0, found := params.Get(trees.Path{positionName(0), PriorName})
	if !found {
		return nil, errors.Errorf("countmodel: parameter %s missing", trees.Path{positionName(0), PriorName})
	}
	config := Config{
		VocabSize: prior0.Shape().Dim(0),
		Smoothing: tensors.CopyFlatData[float64](smoothing)[0],
	}
	for key, node := range params.Map {
		if !strings.HasPrefix(key, "position_") {
			continue
		}
		config.NumPositions++
		if key == positionName(0) {
			for subKey := range node.Map {
				if strings.HasPrefix(subKey, "source_") {
					config.SourceLength++
				}
			}
		}
	}

	m, err := New(config)
	if err != nil {
		return nil, errors.WithMessage(err, "countmodel.NewFromParameters()")
	}
	vocabSize := config.VocabSize
	matrixShape := shapes.Make(dtypes.Float64, vocabSize, vocabSize)
	for pos, pc := range m.positions {
		scope := positionName(pos)
		if err := loadInto(params, trees.Path{scope, PriorName}, shapes.Make(dtypes.Float64, vocabSize), pc.prior); err != nil {
			return nil, err
		}
		if err := loadInto(params, trees.Path{scope, PreviousName}, matrixShape, pc.previous); err != nil {
			return nil, err
		}
		for jj, counts := range pc.sources {
			if err := loadInto(params, trees.Path{scope, sourceName(jj)}, matrixShape, counts); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func loadInto(params *trees.Tree[*tensors.Tensor], treePath trees.Path, shape shapes.Shape, dst []float64) error {
	t, found := params.Get(treePath)
	if !found {
		return errors.Errorf("countmodel: parameter %s missing", treePath)
	}
	if err := checkShape(treePath.String(), t, shape); err != nil {
		return err
	}
	copy(dst, tensors.CopyFlatData[float64](t))
	return nil
}

func checkShape(name string, t *tensors.Tensor, want shapes.Shape) error {
	if !t.Shape().Equal(want) {
		return errors.Errorf("countmodel: parameter %q has shape %s, expected %s", name, t.Shape(), want)
	}
	return nil
}

func clone(values []float64) []float64 {
	return append([]float64(nil), values...)
}
