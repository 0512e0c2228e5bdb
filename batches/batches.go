// Package batches pads variable-length id sequences into rectangular batches.
package batches

import (
	"fmt"

	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gomlx/types/xslices"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// PadId fills the positions past the end of each sequence.
const PadId = 0

// SequenceTooLongError is returned by Pad when a sequence doesn't fit the target length.
type SequenceTooLongError struct {
	// Index of the offending sequence.
	Index int

	Length, TargetLength int
}

func (e *SequenceTooLongError) Error() string {
	return fmt.Sprintf("sequence #%d has length %d, longer than the padding target length %d",
		e.Index, e.Length, e.TargetLength)
}

// Pad returns a [len(sequences)][targetLen] grid, where row i holds sequences[i] followed by PadId.
//
// It fails with *SequenceTooLongError if any sequence is longer than targetLen.
func Pad(sequences [][]int, targetLen int) ([][]int, error) {
	grid := make([][]int, len(sequences))
	for ii, seq := range sequences {
		if len(seq) > targetLen {
			return nil, errors.WithStack(&SequenceTooLongError{Index: ii, Length: len(seq), TargetLength: targetLen})
		}
		row := make([]int, targetLen) // Zero-filled, and PadId == 0.
		copy(row, seq)
		grid[ii] = row
	}
	return grid, nil
}

// MaxLength returns the length of the longest sequence, or 0 if there are none.
func MaxLength(sequences [][]int) int {
	var maxLen int
	for _, seq := range sequences {
		maxLen = max(maxLen, len(seq))
	}
	return maxLen
}

// Batch of padded examples.
type Batch struct {
	// Sources is shaped [batchSize][sourceLength].
	Sources [][]int

	// Targets is shaped [batchSize][targetLength], each starting with the start token.
	Targets [][]int

	// TargetLengths holds the number of predicted positions of each target: the unpadded length
	// minus the start token.
	TargetLengths []int
}

// New creates a Batch padding sources and targets to the given lengths.
func New(sources, targets [][]int, sourceLen, targetLen int) (*Batch, error) {
	if len(sources) != len(targets) {
		return nil, errors.Errorf("batches.New(): %d sources but %d targets", len(sources), len(targets))
	}
	b := &Batch{
		TargetLengths: xslices.Map(targets, func(seq []int) int { return max(len(seq)-1, 0) }),
	}
	var err error
	b.Sources, err = Pad(sources, sourceLen)
	if err != nil {
		return nil, errors.WithMessage(err, "padding sources")
	}
	b.Targets, err = Pad(targets, targetLen)
	if err != nil {
		return nil, errors.WithMessage(err, "padding targets")
	}
	return b, nil
}

// Size returns the number of examples in the batch.
func (b *Batch) Size() int { return len(b.Sources) }

// Tensors returns the batch as tensors: sources int32[batchSize, sourceLength],
// targets int32[batchSize, targetLength] and targetLengths int32[batchSize].
func (b *Batch) Tensors() (sources, targets, targetLengths *tensors.Tensor) {
	sources = gridToTensor(b.Sources)
	targets = gridToTensor(b.Targets)
	targetLengths = tensors.FromFlatDataAndDimensions(
		xslices.Map(b.TargetLengths, func(l int) int32 { return int32(l) }), len(b.TargetLengths))
	return
}

// gridToTensor creates an int32[len(grid), len(grid[0])] tensor, prefilled with PadId.
func gridToTensor(grid [][]int) *tensors.Tensor {
	batchSize := len(grid)
	length := MaxLength(grid)
	t := tensors.FromScalarAndDimensions(int32(PadId), batchSize, length)
	tensors.MutableFlatData(t, func(flat []int32) {
		for exampleIdx, row := range grid {
			exampleIds := flat[exampleIdx*length : (exampleIdx+1)*length]
			for ii, value := range row {
				exampleIds[ii] = int32(value)
			}
		}
	})
	return t
}

// FromTensors is the inverse of Batch.Tensors: it converts int32 tensors back to a Batch.
func FromTensors(sources, targets, targetLengths *tensors.Tensor) (*Batch, error) {
	b := &Batch{}
	var err error
	if b.Sources, err = tensorToGrid("sources", sources); err != nil {
		return nil, err
	}
	if b.Targets, err = tensorToGrid("targets", targets); err != nil {
		return nil, err
	}
	if targetLengths.DType() != dtypes.Int32 || targetLengths.Shape().Rank() != 1 {
		return nil, errors.Errorf("batches.FromTensors(): targetLengths must be int32[batchSize], got %s", targetLengths.Shape())
	}
	b.TargetLengths = xslices.Map(tensors.CopyFlatData[int32](targetLengths), func(l int32) int { return int(l) })
	if len(b.Sources) != len(b.Targets) || len(b.Targets) != len(b.TargetLengths) {
		return nil, errors.Errorf("batches.FromTensors(): batch sizes don't match: %d sources, %d targets and %d lengths",
			len(b.Sources), len(b.Targets), len(b.TargetLengths))
	}
	return b, nil
}

func tensorToGrid(name string, t *tensors.Tensor) ([][]int, error) {
	if t.DType() != dtypes.Int32 || t.Shape().Rank() != 2 {
		return nil, errors.Errorf("batches.FromTensors(): %s must be int32[batchSize, length], got %s", name, t.Shape())
	}
	batchSize, length := t.Shape().Dim(0), t.Shape().Dim(1)
	flat := tensors.CopyFlatData[int32](t)
	grid := make([][]int, batchSize)
	for ii := range grid {
		grid[ii] = xslices.Map(flat[ii*length:(ii+1)*length], func(id int32) int { return int(id) })
	}
	return grid, nil
}
