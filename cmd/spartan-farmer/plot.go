package main

import (
	"crypto/sha256"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cuemby/spartan-farmer/pkg/config"
	"github.com/cuemby/spartan-farmer/pkg/identity"
	"github.com/cuemby/spartan-farmer/pkg/log"
	"github.com/cuemby/spartan-farmer/pkg/piece"
	"github.com/cuemby/spartan-farmer/pkg/plot"
	"github.com/cuemby/spartan-farmer/pkg/plotter"
	"github.com/cuemby/spartan-farmer/pkg/xcrypto"
)

var plotCmd = &cobra.Command{
	Use:   "plot <piece_count> <seed>",
	Short: "Generate a plot of piece_count pieces derived from seed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pieceCount, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid piece_count %q: %w", args[0], err)
		}
		seed := args[1]

		customPath, _ := cmd.Flags().GetString("custom-path")
		dataDir, err := config.EnsureDataDir(customPath)
		if err != nil {
			return err
		}

		id, err := identity.LoadOrCreate(config.IdentityPath(dataDir))
		if err != nil {
			return fmt.Errorf("load identity: %w", err)
		}

		p, err := plot.OpenOrCreate(config.DefaultPlotOptions(dataDir, pieceCount))
		if err != nil {
			return fmt.Errorf("open plot: %w", err)
		}
		defer p.Close()

		genesisPiece := xcrypto.GenesisPieceFromSeed(seed)

		// The initial commitment's salt is derived deterministically from
		// the seed, so a plot is fully reproducible from (piece_count, seed)
		// alone, the same way the genesis piece itself is.
		salt := sha256.Sum256([]byte(seed))

		logger := log.WithComponent("plot")
		logger.Info().Uint64("piece_count", pieceCount).Str("seed", seed).Msg("plotting")

		err = plotter.Run(cmd.Context(), p, piece.NewSpartanEncoder(), genesisPiece, id.Hash, pieceCount, salt, config.PlotterOptions{}, plotter.NewBarReporter())
		if err != nil {
			return fmt.Errorf("plot: %w", err)
		}

		logger.Info().Msg("plot complete")
		return nil
	},
}
