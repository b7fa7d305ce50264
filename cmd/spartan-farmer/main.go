package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/spartan-farmer/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "spartan-farmer",
	Short: "Proof-of-space farmer for the Subspace consensus protocol",
	Long: `spartan-farmer plots and farms proof-of-space pieces for a Subspace
consensus node: "plot" bulk-generates a plot from a genesis seed,
"farm" answers a node's slot-info subscription, and "sim" estimates
solution rates for a plot without a live network connection.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"spartan-farmer version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("custom-path", "", "Data directory (overrides SUBSPACE_DIR and the platform default)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(plotCmd)
	rootCmd.AddCommand(erasePlotCmd)
	rootCmd.AddCommand(farmCmd)
	rootCmd.AddCommand(simCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
