package plotter

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/cuemby/spartan-farmer/pkg/config"
	"github.com/cuemby/spartan-farmer/pkg/piece"
	"github.com/cuemby/spartan-farmer/pkg/plot"
)

// Run fills p with pieceCount pieces encoded from genesisPiece and
// identityHash under salt, unless p already holds a plot (Run is
// idempotent: an existing plot is left untouched). Pieces are encoded
// across a worker pool sized to runtime.GOMAXPROCS and written in
// batches of opts.BatchSize (or config.DefaultBatchSize if unset), so
// memory use stays bounded to one batch rather than the whole plot.
func Run(ctx context.Context, p *plot.Plot, encoder piece.Encoder, genesisPiece piece.Piece, identityHash [8]byte, pieceCount uint64, salt [32]byte, opts config.PlotterOptions, reporter Reporter) error {
	empty, err := p.IsEmpty()
	if err != nil {
		return fmt.Errorf("check existing plot: %w", err)
	}
	if !empty {
		return nil
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}
	if reporter == nil {
		reporter = NoopReporter{}
	}
	workers := runtime.GOMAXPROCS(0)

	reporter.Start(pieceCount)
	defer reporter.Finish()

	for batchStart := uint64(0); batchStart < pieceCount; batchStart += uint64(batchSize) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		remaining := pieceCount - batchStart
		length := uint64(batchSize)
		if remaining < length {
			length = remaining
		}

		encodings := make([]piece.Piece, length)
		encodeBatch(encoder, genesisPiece, identityHash, batchStart, encodings, workers)

		if err := p.WriteMany(encodings, batchStart, salt); err != nil {
			return fmt.Errorf("plot batch at index %d: %w", batchStart, err)
		}
		reporter.Add(int(length))
	}

	return nil
}

// encodeBatch encodes out[i] = encoder.Encode(genesisPiece, identityHash,
// firstIndex+i, piece.Rounds) across workers goroutines pulling indices
// off a shared counter, so batch order on disk stays contiguous while
// the CPU-bound encoding work itself runs unordered and in parallel.
func encodeBatch(encoder piece.Encoder, genesisPiece piece.Piece, identityHash [8]byte, firstIndex uint64, out []piece.Piece, workers int) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(out) {
		workers = len(out)
	}

	var next int64 = -1
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				i := atomic.AddInt64(&next, 1)
				if i >= int64(len(out)) {
					return
				}
				out[i] = encoder.Encode(genesisPiece, identityHash, firstIndex+uint64(i), piece.Rounds)
			}
		}()
	}
	wg.Wait()
}
