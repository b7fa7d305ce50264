package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/spartan-farmer/pkg/config"
	"github.com/cuemby/spartan-farmer/pkg/farmer"
	"github.com/cuemby/spartan-farmer/pkg/identity"
	"github.com/cuemby/spartan-farmer/pkg/log"
	"github.com/cuemby/spartan-farmer/pkg/plot"
)

var farmCmd = &cobra.Command{
	Use:   "farm",
	Short: "Farm a plot against a consensus node's slot-info subscription",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		customPath, _ := cmd.Flags().GetString("custom-path")
		wsServer, _ := cmd.Flags().GetString("ws-server")

		dataDir, err := config.ResolveDataDir(customPath)
		if err != nil {
			return err
		}

		logger := log.WithComponent("farm")

		id, err := identity.Load(config.IdentityPath(dataDir))
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				return fmt.Errorf("identity not found, plot first: %w", err)
			}
			return err
		}

		p, err := plot.OpenOrCreate(config.DefaultPlotOptions(dataDir, 0))
		if err != nil {
			return fmt.Errorf("open plot: %w", err)
		}

		logger.Info().Str("ws_server", wsServer).Msg("connecting to consensus node")
		client, err := farmer.Dial(cmd.Context(), wsServer)
		if err != nil {
			p.Close()
			return err
		}

		f, err := farmer.New(p, id, client)
		if err != nil {
			client.Close()
			p.Close()
			return fmt.Errorf("start farmer: %w", err)
		}
		defer f.Close()

		logger.Info().Msg("farming")
		err = f.Run(cmd.Context())
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	farmCmd.Flags().String("ws-server", "ws://127.0.0.1:9944", "Consensus node JSON-RPC WebSocket endpoint")
}
