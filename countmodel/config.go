package countmodel

import "github.com/pkg/errors"

// Config of a count model.
type Config struct {
	// VocabSize is the number of ids of both sources and targets.
	VocabSize int

	// SourceLength is the (padded) length of the source sequences.
	SourceLength int

	// NumPositions is the number of target positions modeled. Steps past it return a uniform distribution.
	NumPositions int

	// Smoothing is the additive (Laplace) smoothing applied to every count.
	Smoothing float64
}

// DefaultSmoothing is the additive smoothing used by DefaultConfig.
const DefaultSmoothing = 0.1

// DefaultConfig returns a Config with DefaultSmoothing.
func DefaultConfig(vocabSize, sourceLength, numPositions int) Config {
	return Config{
		VocabSize:    vocabSize,
		SourceLength: sourceLength,
		NumPositions: numPositions,
		Smoothing:    DefaultSmoothing,
	}
}

// Validate returns an error if the configuration is not usable.
func (c Config) Validate() error {
	switch {
	case c.VocabSize <= 0:
		return errors.Errorf("countmodel.Config: VocabSize must be > 0, got %d", c.VocabSize)
	case c.SourceLength <= 0:
		return errors.Errorf("countmodel.Config: SourceLength must be > 0, got %d", c.SourceLength)
	case c.NumPositions <= 0:
		return errors.Errorf("countmodel.Config: NumPositions must be > 0, got %d", c.NumPositions)
	case c.Smoothing <= 0:
		return errors.Errorf("countmodel.Config: Smoothing must be > 0, got %g", c.Smoothing)
	}
	return nil
}
