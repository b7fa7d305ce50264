package sim

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/cuemby/spartan-farmer/pkg/piece"
	"github.com/cuemby/spartan-farmer/pkg/plot"
	"github.com/cuemby/spartan-farmer/pkg/xcrypto"
)

// DefaultExpectedSlotsPerBlock, DefaultBlocksPerEra, and DefaultEraTrials
// mirror the reference difficulty-adjustment constants.
const (
	DefaultExpectedSlotsPerBlock = 6
	DefaultBlocksPerEra          = 2016
	DefaultEraTrials             = 100

	initialPlotSizeBytes = 1024 * 1024 * 1024
)

// DefaultInitialPlotSize is the canonical reference plot size, in
// pieces, the default solution range is calibrated against.
func DefaultInitialPlotSize() uint64 {
	return initialPlotSizeBytes / piece.Size
}

// Config parameterizes a simulation run.
type Config struct {
	ExpectedSlotsPerBlock uint64
	BlocksPerEra          uint64
	SlotTrials            uint64
	InitialSolutionRange  uint64
}

// DefaultConfig returns the reference simulator's parameters: a
// century of eras' worth of slot trials, calibrated against a 1 GiB
// reference plot.
func DefaultConfig() Config {
	expected := uint64(DefaultExpectedSlotsPerBlock)
	blocksPerEra := uint64(DefaultBlocksPerEra)
	slotsPerEra := blocksPerEra * expected
	slotTrials := slotsPerEra * DefaultEraTrials
	initialSolutionRange := math.MaxUint64 / DefaultInitialPlotSize() / expected

	return Config{
		ExpectedSlotsPerBlock: expected,
		BlocksPerEra:          blocksPerEra,
		SlotTrials:            slotTrials,
		InitialSolutionRange:  initialSolutionRange,
	}
}

// EraResult records one difficulty-adjustment event.
type EraResult struct {
	Era                 int
	ActualSlotsPerBlock  float64
	AdjustmentFactor     float64
	NewSolutionRange     uint64
}

// Run replays cfg.SlotTrials synthetic slots against p, chaining the
// challenge with xcrypto.HashChallengeChain after each trial and
// adjusting the solution range at every era boundary, the same way the
// reference simulator does. It stops early if ctx is cancelled.
func Run(ctx context.Context, p *plot.Plot, cfg Config, logger zerolog.Logger) ([]EraResult, error) {
	var challenge [8]byte
	if _, err := rand.Read(challenge[:]); err != nil {
		return nil, fmt.Errorf("generate initial challenge: %w", err)
	}

	solutionRange := cfg.InitialSolutionRange
	var eraSolutionCount, eraSlotCount uint64
	era := 0
	var results []EraResult

	for i := uint64(0); i < cfg.SlotTrials; i++ {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		eraSlotCount++

		_, found, err := p.FindByRange(challenge, solutionRange)
		if err != nil {
			return results, fmt.Errorf("find_by_range at trial %d: %w", i, err)
		}
		if found {
			eraSolutionCount++
		}

		challenge = xcrypto.HashChallengeChain(challenge)

		if eraSolutionCount > 0 && eraSolutionCount%cfg.BlocksPerEra == 0 {
			actualSlotsPerBlock := float64(eraSlotCount) / float64(eraSolutionCount)
			adjustmentFactor := actualSlotsPerBlock / float64(cfg.ExpectedSlotsPerBlock)
			solutionRange = uint64(math.Round(float64(solutionRange) * adjustmentFactor))
			era++

			result := EraResult{
				Era:                 era,
				ActualSlotsPerBlock: actualSlotsPerBlock,
				AdjustmentFactor:    adjustmentFactor,
				NewSolutionRange:    solutionRange,
			}
			results = append(results, result)

			logger.Info().
				Int("era", era).
				Float64("expected_slots_per_block", float64(cfg.ExpectedSlotsPerBlock)).
				Float64("actual_slots_per_block", actualSlotsPerBlock).
				Float64("adjustment_factor", adjustmentFactor).
				Uint64("new_solution_range", solutionRange).
				Msg("era transition")

			eraSolutionCount = 0
			eraSlotCount = 0
		}
	}

	return results, nil
}
