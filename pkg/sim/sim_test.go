package sim

import (
	"context"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/spartan-farmer/pkg/config"
	"github.com/cuemby/spartan-farmer/pkg/piece"
	"github.com/cuemby/spartan-farmer/pkg/plot"
)

func openSimPlot(t *testing.T) *plot.Plot {
	t.Helper()
	dir := t.TempDir()
	p, err := plot.OpenOrCreate(config.DefaultPlotOptions(dir, 0))
	require.NoError(t, err)
	t.Cleanup(p.Close)

	rng := rand.New(rand.NewSource(0))
	encodings := make([]piece.Piece, 32)
	for i := range encodings {
		rng.Read(encodings[i][:])
	}
	require.NoError(t, p.WriteMany(encodings, 0, [32]byte{1}))
	return p
}

func TestRun_TracksEraTransitions(t *testing.T) {
	p := openSimPlot(t)

	cfg := Config{
		ExpectedSlotsPerBlock: 1,
		BlocksPerEra:          2,
		SlotTrials:            10,
		InitialSolutionRange:  ^uint64(0),
	}

	results, err := Run(context.Background(), p, cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for _, r := range results {
		assert.Greater(t, r.Era, 0)
		assert.Greater(t, r.NewSolutionRange, uint64(0))
	}
}

func TestRun_RespectsContextCancellation(t *testing.T) {
	p := openSimPlot(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultConfig()
	results, err := Run(ctx, p, cfg, zerolog.Nop())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestDefaultConfig_MatchesReferenceConstants(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, uint64(DefaultExpectedSlotsPerBlock), cfg.ExpectedSlotsPerBlock)
	assert.Equal(t, uint64(DefaultBlocksPerEra), cfg.BlocksPerEra)
	assert.Equal(t, uint64(DefaultBlocksPerEra*DefaultExpectedSlotsPerBlock*DefaultEraTrials), cfg.SlotTrials)
	assert.Greater(t, cfg.InitialSolutionRange, uint64(0))
}
