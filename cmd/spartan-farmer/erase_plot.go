package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/spartan-farmer/pkg/config"
	"github.com/cuemby/spartan-farmer/pkg/log"
)

var erasePlotCmd = &cobra.Command{
	Use:   "erase-plot",
	Short: "Delete the plot file and tag index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		customPath, _ := cmd.Flags().GetString("custom-path")
		dataDir, err := config.ResolveDataDir(customPath)
		if err != nil {
			return err
		}

		opts := config.DefaultPlotOptions(dataDir, 0)
		logger := log.WithComponent("erase-plot")

		for _, path := range []string{opts.Path, opts.TagIndexPath} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove %s: %w", path, err)
			}
			logger.Info().Str("path", path).Msg("removed")
		}

		return nil
	},
}
