package app

import (
	"fmt"
	"math/rand/v2"

	"github.com/jaminalder/atetria/internal/config"
	"github.com/jaminalder/atetria/internal/domain"
)

// newSource builds the piece source named by cfg.Randomizer.
func newSource(cfg config.GameConfig, rng *rand.Rand) (domain.Source, error) {
	switch cfg.Randomizer {
	case config.RandomizerUniform, "":
		return domain.NewRandomSource(rng), nil
	case config.RandomizerBag:
		return domain.NewBagSource(rng), nil
	case config.RandomizerFixed:
		t, err := domain.ParseTetromino(cfg.FixedPiece)
		if err != nil {
			return nil, fmt.Errorf("fixed_piece: %w", err)
		}
		return domain.FixedSource(t), nil
	default:
		return nil, fmt.Errorf("unknown randomizer %q", cfg.Randomizer)
	}
}
