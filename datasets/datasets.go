// Package datasets holds encoded (source, target) examples with indexed access, random sampling and
// epoch batching.
package datasets

import (
	"math/rand"

	"github.com/gomlx/datetrans/batches"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Example is one encoded (source, target) pair.
type Example struct {
	Source, Target []int
}

// TargetLength is the number of predicted positions: the start token is never itself predicted.
func (e Example) TargetLength() int {
	return max(len(e.Target)-1, 0)
}

// Dataset is an ordered, fixed-size collection of examples. It is not modified after creation.
type Dataset struct {
	examples []Example

	// SourceLength and TargetLength are the maximum lengths over all examples, used as the global
	// padding lengths of batches.
	SourceLength, TargetLength int
}

// New creates a Dataset from parallel slices of encoded sources and targets.
func New(sources, targets [][]int) (*Dataset, error) {
	if len(sources) != len(targets) {
		return nil, errors.Errorf("datasets.New(): %d sources but %d targets", len(sources), len(targets))
	}
	d := &Dataset{
		examples:     make([]Example, len(sources)),
		SourceLength: batches.MaxLength(sources),
		TargetLength: batches.MaxLength(targets),
	}
	for ii := range sources {
		d.examples[ii] = Example{Source: sources[ii], Target: targets[ii]}
	}
	return d, nil
}

// Len returns the number of examples.
func (d *Dataset) Len() int { return len(d.examples) }

// Get returns the example at index, and its target length.
func (d *Dataset) Get(index int) (source, target []int, targetLength int) {
	if index < 0 || index >= len(d.examples) {
		exceptions.Panicf("datasets.Dataset.Get(%d) out of range for dataset with %d examples", index, len(d.examples))
	}
	e := d.examples[index]
	return e.Source, e.Target, e.TargetLength()
}

// SampleIndices draws n indices uniformly from [0, Len()), with replacement.
func (d *Dataset) SampleIndices(rng *rand.Rand, n int) []int {
	if n > 0 && len(d.examples) == 0 {
		exceptions.Panicf("datasets.Dataset.SampleIndices(%d) on an empty dataset", n)
	}
	indices := make([]int, n)
	for ii := range indices {
		indices[ii] = rng.Intn(len(d.examples))
	}
	return indices
}

// Sample returns a padded batch of n examples drawn uniformly with replacement.
//
// n can be larger than Len().
func (d *Dataset) Sample(rng *rand.Rand, n int) (*batches.Batch, error) {
	return d.Batch(d.SampleIndices(rng, n))
}

// Batch returns the examples at the given indices, padded to the dataset's global lengths.
func (d *Dataset) Batch(indices []int) (*batches.Batch, error) {
	sources := make([][]int, len(indices))
	targets := make([][]int, len(indices))
	for ii, index := range indices {
		sources[ii], targets[ii], _ = d.Get(index)
	}
	return batches.New(sources, targets, d.SourceLength, d.TargetLength)
}
