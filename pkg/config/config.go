// Package config resolves where the farmer keeps its on-disk state (the
// identity file and plot) and holds the small option structs the plotter
// and farming loop are constructed from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DataDirEnvVar is the environment variable that overrides the default
// platform data directory.
const DataDirEnvVar = "SUBSPACE_DIR"

// defaultDirName is the directory created under the platform config dir
// when neither --custom-path nor SUBSPACE_DIR is set.
const defaultDirName = "subspace"

// ResolveDataDir returns the directory the farmer should store its
// identity file and plot in, following customPath (typically a CLI flag,
// ignored when empty) over the SUBSPACE_DIR environment variable over
// Go's portable per-user config directory.
func ResolveDataDir(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}
	if fromEnv := os.Getenv(DataDirEnvVar); fromEnv != "" {
		return fromEnv, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve platform config dir: %w", err)
	}
	return filepath.Join(base, defaultDirName), nil
}

// EnsureDataDir resolves the data directory and creates it (and any
// missing parents) if it does not already exist.
func EnsureDataDir(customPath string) (string, error) {
	dir, err := ResolveDataDir(customPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return dir, nil
}

// PlotOptions configures a plot engine instance.
type PlotOptions struct {
	// Path is the plot's flat-file path, typically dataDir/plot.bin.
	Path string
	// TagIndexPath is the bbolt tag-index file path, typically
	// dataDir/plot-tags.db.
	TagIndexPath string
	// MaxPieces bounds how many pieces the plot file may hold: WriteMany
	// fails with plot.ErrPlotFull once firstIndex+len(encodings) would
	// exceed it. Zero means unbounded, for opening a plot whose size is
	// already fixed by a prior plot without re-stating its piece count.
	MaxPieces uint64
}

// DefaultPlotOptions returns PlotOptions rooted at dataDir, using the
// conventional file names.
func DefaultPlotOptions(dataDir string, maxPieces uint64) PlotOptions {
	return PlotOptions{
		Path:         filepath.Join(dataDir, "plot.bin"),
		TagIndexPath: filepath.Join(dataDir, "plot-tags.db"),
		MaxPieces:    maxPieces,
	}
}

// IdentityPath returns the conventional identity file path under dataDir.
func IdentityPath(dataDir string) string {
	return filepath.Join(dataDir, "identity.bin")
}

// PlotterOptions configures a plotting run.
type PlotterOptions struct {
	// GenesisSeed seeds the deterministic genesis piece.
	GenesisSeed string
	// BatchSize is how many encoded pieces accumulate before a single
	// WriteMany call, bounding plotter memory use instead of buffering
	// the whole plot.
	BatchSize int
}

// DefaultBatchSize is used when a caller leaves BatchSize unset.
const DefaultBatchSize = 256

// FarmerOptions configures a connection to a consensus node.
type FarmerOptions struct {
	// NodeWSURL is the consensus node's JSON-RPC WebSocket endpoint.
	NodeWSURL string
}
