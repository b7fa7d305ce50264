package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/spartan-farmer/pkg/config"
	"github.com/cuemby/spartan-farmer/pkg/log"
	"github.com/cuemby/spartan-farmer/pkg/plot"
	"github.com/cuemby/spartan-farmer/pkg/sim"
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Estimate solution rates for an existing plot without a live node",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		customPath, _ := cmd.Flags().GetString("custom-path")
		dataDir, err := config.ResolveDataDir(customPath)
		if err != nil {
			return err
		}

		p, err := plot.OpenOrCreate(config.DefaultPlotOptions(dataDir, 0))
		if err != nil {
			return fmt.Errorf("open plot: %w", err)
		}
		defer p.Close()

		empty, err := p.IsEmpty()
		if err != nil {
			return err
		}
		if empty {
			return fmt.Errorf("plot is empty, plot it first")
		}

		logger := log.WithComponent("sim")
		results, err := sim.Run(cmd.Context(), p, sim.DefaultConfig(), logger)
		if err != nil {
			return err
		}

		fmt.Printf("simulated %d era transitions\n", len(results))
		return nil
	},
}
