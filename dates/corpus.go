// Package dates generates the date-translation corpus and encodes it.
//
// Sources are dates formatted as "yy-mm-dd" (e.g. "70-01-01"), and targets the same dates as
// "dd/Mon/yyyy" (e.g. "01/Jan/1970"). Sources are tokenized one character per token, while targets
// keep the month abbreviation as one token.
package dates

import (
	"math/rand"
	"time"
)

const (
	// SourceLayout is the time layout of source dates: "yy-mm-dd".
	SourceLayout = "06-01-02"

	// TargetLayout is the time layout of target dates: "dd/Mon/yyyy".
	TargetLayout = "02/Jan/2006"

	// MinTimestamp and MaxTimestamp (exclusive) bound the generated Unix timestamps.
	MinTimestamp = 143835585
	MaxTimestamp = 2043835585
)

// Corpus holds parallel source and target date strings.
type Corpus struct {
	Sources, Targets []string
}

// Len returns the number of pairs.
func (c *Corpus) Len() int { return len(c.Sources) }

// Generate n date pairs from timestamps drawn uniformly with rng.
//
// Dates are formatted in UTC, so the corpus only depends on the seed of rng.
func Generate(rng *rand.Rand, n int) *Corpus {
	c := &Corpus{
		Sources: make([]string, n),
		Targets: make([]string, n),
	}
	for ii := range n {
		timestamp := MinTimestamp + rng.Int63n(MaxTimestamp-MinTimestamp)
		date := time.Unix(timestamp, 0).UTC()
		c.Sources[ii] = date.Format(SourceLayout)
		c.Targets[ii] = date.Format(TargetLayout)
	}
	return c
}
