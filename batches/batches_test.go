package batches

import (
	"testing"

	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestPad(t *testing.T) {
	seqs := [][]int{{4, 5, 6}, {7}, {}}
	grid, err := Pad(seqs, 5)
	require.NoError(t, err)
	require.Equal(t, [][]int{{4, 5, 6, 0, 0}, {7, 0, 0, 0, 0}, {0, 0, 0, 0, 0}}, grid)
	for ii, seq := range seqs {
		require.Equal(t, seq, grid[ii][:len(seq)])
		for _, id := range grid[ii][len(seq):] {
			require.Equal(t, PadId, id)
		}
	}

	// Exact fit.
	grid, err = Pad([][]int{{1, 2}}, 2)
	require.NoError(t, err)
	require.Equal(t, [][]int{{1, 2}}, grid)

	// Input is not modified.
	require.Equal(t, []int{4, 5, 6}, seqs[0])
}

func TestPadTooLong(t *testing.T) {
	_, err := Pad([][]int{{1}, {1, 2, 3}}, 2)
	var tooLong *SequenceTooLongError
	require.True(t, errors.As(err, &tooLong), "expected SequenceTooLongError, got %v", err)
	require.Equal(t, 1, tooLong.Index)
	require.Equal(t, 3, tooLong.Length)
	require.Equal(t, 2, tooLong.TargetLength)
}

func TestBatch(t *testing.T) {
	b, err := New([][]int{{1, 2, 3}, {4}}, [][]int{{9, 5, 8}, {9, 8}}, 3, 4)
	require.NoError(t, err)
	require.Equal(t, 2, b.Size())
	require.Equal(t, []int{2, 1}, b.TargetLengths)
	require.Equal(t, [][]int{{9, 5, 8, 0}, {9, 8, 0, 0}}, b.Targets)

	sources, targets, lengths := b.Tensors()
	require.Equal(t, []int{2, 3}, sources.Shape().Dimensions)
	require.Equal(t, []int32{1, 2, 3, 4, 0, 0}, tensors.CopyFlatData[int32](sources))
	require.Equal(t, []int{2, 4}, targets.Shape().Dimensions)
	require.Equal(t, []int32{9, 5, 8, 0, 9, 8, 0, 0}, tensors.CopyFlatData[int32](targets))
	require.Equal(t, []int32{2, 1}, tensors.CopyFlatData[int32](lengths))

	_, err = New([][]int{{1, 2, 3}}, [][]int{{9}}, 2, 4)
	require.ErrorContains(t, err, "padding sources")
	_, err = New([][]int{{1}}, nil, 2, 4)
	require.Error(t, err)
}

func TestFromTensors(t *testing.T) {
	b, err := New([][]int{{1, 2, 3}, {4}}, [][]int{{9, 5, 8}, {9, 8}}, 3, 4)
	require.NoError(t, err)
	b2, err := FromTensors(b.Tensors())
	require.NoError(t, err)
	require.Equal(t, b, b2)

	sources, targets, _ := b.Tensors()
	_, err = FromTensors(sources, targets, tensors.FromFlatDataAndDimensions([]int32{1, 2, 3}, 3))
	require.ErrorContains(t, err, "batch sizes don't match")
	_, err = FromTensors(tensors.FromFlatDataAndDimensions([]float64{1, 2}, 2), targets, tensors.FromFlatDataAndDimensions([]int32{1, 2}, 2))
	require.ErrorContains(t, err, "sources must be int32")
}
