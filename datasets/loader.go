package datasets

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/gomlx/datetrans/batches"
	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gomlx/types/xslices"
	"github.com/pkg/errors"
)

// Loader iterates over a Dataset in shuffled batches, one epoch at a time.
//
// It implements train.Dataset: Yield returns the inputs [sources, targets] and the labels
// [targetLengths] as tensors.
//
// A Loader owns its random source and is not safe for concurrent use.
type Loader struct {
	ds        *Dataset
	rng       *rand.Rand
	batchSize int
	order     []int
	next      int

	// Shuffle reorders the examples at the start of each epoch. Defaults to true.
	Shuffle bool

	// DropIncomplete skips the last batch of an epoch if it has fewer than batchSize examples.
	DropIncomplete bool
}

var _ train.Dataset = (*Loader)(nil)

// NewLoader creates a Loader yielding batches of batchSize examples from ds, shuffled with rng.
func NewLoader(ds *Dataset, batchSize int, rng *rand.Rand) *Loader {
	l := &Loader{
		ds:        ds,
		rng:       rng,
		batchSize: batchSize,
		order:     xslices.Iota(0, ds.Len()),
		Shuffle:   true,
	}
	l.Reset()
	return l
}

// Name implements train.Dataset.
func (l *Loader) Name() string {
	return fmt.Sprintf("datasets.Loader(%d examples, batch size %d)", l.ds.Len(), l.batchSize)
}

// Reset starts a new epoch. Without Shuffle, examples are visited in dataset order.
func (l *Loader) Reset() {
	l.next = 0
	if !l.Shuffle {
		for ii := range l.order {
			l.order[ii] = ii
		}
		return
	}
	l.rng.Shuffle(len(l.order), func(i, j int) { l.order[i], l.order[j] = l.order[j], l.order[i] })
}

// NumBatches returns the number of batches in one epoch.
func (l *Loader) NumBatches() int {
	if l.DropIncomplete {
		return l.ds.Len() / l.batchSize
	}
	return (l.ds.Len() + l.batchSize - 1) / l.batchSize
}

// Next returns the next batch of the epoch, or io.EOF when the epoch is over.
func (l *Loader) Next() (*batches.Batch, error) {
	if l.batchSize <= 0 {
		return nil, errors.Errorf("datasets.Loader: invalid batch size %d", l.batchSize)
	}
	remaining := len(l.order) - l.next
	if remaining <= 0 || (l.DropIncomplete && remaining < l.batchSize) {
		return nil, io.EOF
	}
	end := min(l.next+l.batchSize, len(l.order))
	indices := l.order[l.next:end]
	l.next = end
	return l.ds.Batch(indices)
}

// Yield implements train.Dataset.
func (l *Loader) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	var b *batches.Batch
	b, err = l.Next()
	if err != nil {
		return
	}
	sources, targets, targetLengths := b.Tensors()
	inputs = []*tensors.Tensor{sources, targets}
	labels = []*tensors.Tensor{targetLengths}
	return
}
