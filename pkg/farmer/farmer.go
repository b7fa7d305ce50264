package farmer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/spartan-farmer/pkg/identity"
	"github.com/cuemby/spartan-farmer/pkg/log"
	"github.com/cuemby/spartan-farmer/pkg/metrics"
	"github.com/cuemby/spartan-farmer/pkg/plot"
	"github.com/cuemby/spartan-farmer/pkg/xcrypto"
)

// ErrPlotEmpty is returned by New when the plot has never been plotted.
var ErrPlotEmpty = errors.New("plot is empty, plot it first")

// rpcClient is the subset of *Client the farming loop depends on,
// pulled out as an interface so tests can drive Run against a fake
// consensus node instead of a real WebSocket connection.
type rpcClient interface {
	Subscribe(ctx context.Context) error
	Notifications() <-chan SlotInfo
	ReadErr() <-chan error
	ProposeSolution(ctx context.Context, slotNumber uint64, solution *Solution) error
	Close() error
}

// Farmer drives one identity's farming loop against one plot and one
// consensus node connection.
type Farmer struct {
	plot     *plot.Plot
	identity *identity.Identity
	client   rpcClient
	logger   zerolog.Logger

	currentSalt *[32]byte
	nextSalt    *[32]byte
}

// New constructs a Farmer. It refuses to proceed against an empty plot,
// matching the reference implementation's refusal to farm nothing.
func New(p *plot.Plot, id *identity.Identity, client rpcClient) (*Farmer, error) {
	empty, err := p.IsEmpty()
	if err != nil {
		return nil, fmt.Errorf("check plot: %w", err)
	}
	if empty {
		return nil, ErrPlotEmpty
	}

	sessionID := uuid.NewString()
	logger := log.WithComponent("farmer").With().Str("session_id", sessionID).Logger()

	return &Farmer{
		plot:     p,
		identity: id,
		client:   client,
		logger:   logger,
	}, nil
}

// Run subscribes to slot notifications and answers each one until ctx
// is cancelled, the subscription ends, or the connection errors.
func (f *Farmer) Run(ctx context.Context) error {
	if err := f.client.Subscribe(ctx); err != nil {
		return fmt.Errorf("subscribe to slot info: %w", err)
	}

	for {
		select {
		case info, ok := <-f.client.Notifications():
			if !ok {
				return nil
			}
			f.handleSlot(ctx, info)
		case err := <-f.client.ReadErr():
			return fmt.Errorf("consensus node connection lost: %w", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close releases the consensus connection and the plot, blocking until
// the plot's worker has fully drained and released its file handles.
func (f *Farmer) Close() {
	_ = f.client.Close()
	f.plot.Close()
}

func (f *Farmer) handleSlot(ctx context.Context, info SlotInfo) {
	logger := log.WithSlot(info.SlotNumber)

	f.reconcileCurrentSalt(info, logger)
	f.reconcileNextSalt(info, logger)

	metrics.SlotsProcessedTotal.Inc()

	solution, err := f.solve(info)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to evaluate slot, responding with no solution")
		solution = nil
	}
	if solution != nil {
		metrics.SolutionsFoundTotal.Inc()
	}

	if err := f.client.ProposeSolution(ctx, info.SlotNumber, solution); err != nil {
		logger.Warn().Err(err).Msg("failed to propose solution")
	}
}

// reconcileCurrentSalt implements step 1 of the per-slot commitment
// reconciliation: promote a precomputed next salt when it matches, or
// synchronously build a fresh commitment when the salt change was not
// anticipated.
func (f *Farmer) reconcileCurrentSalt(info SlotInfo, logger zerolog.Logger) {
	if f.currentSalt != nil && *f.currentSalt == info.Salt {
		return
	}

	displaced := f.currentSalt

	if f.nextSalt != nil && *f.nextSalt == info.Salt {
		logger.Debug().Msg("promoting precomputed next salt to current")
	} else {
		logger.Warn().Msg("unplanned salt change, synchronously recommitting")
		if err := f.plot.CreateCommitment(info.Salt); err != nil {
			logger.Error().Err(err).Msg("synchronous create_commitment failed, skipping slot")
			return
		}
	}

	salt := info.Salt
	f.currentSalt = &salt
	f.nextSalt = nil

	if displaced != nil {
		old := *displaced
		go f.backgroundRemove(old)
	}
}

// reconcileNextSalt implements step 2: keep the next-salt commitment
// precomputed so a future promotion is free.
func (f *Farmer) reconcileNextSalt(info SlotInfo, logger zerolog.Logger) {
	if saltPointersEqual(info.NextSalt, f.nextSalt) {
		return
	}

	previous := f.nextSalt
	if previous != nil && !saltPointersEqual(previous, f.currentSalt) && !saltPointersEqual(previous, info.NextSalt) {
		old := *previous
		go f.backgroundRemove(old)
	}

	f.nextSalt = info.NextSalt

	if info.NextSalt != nil && !saltPointersEqual(info.NextSalt, f.currentSalt) {
		next := *info.NextSalt
		logger.Debug().Msg("precomputing next salt commitment")
		go f.backgroundCreate(next)
	}
}

func (f *Farmer) backgroundRemove(salt [32]byte) {
	if err := f.plot.RemoveCommitment(salt); err != nil {
		f.logger.Warn().Err(err).Msg("background remove_commitment failed")
	}
}

func (f *Farmer) backgroundCreate(salt [32]byte) {
	if err := f.plot.CreateCommitment(salt); err != nil {
		f.logger.Warn().Err(err).Msg("background create_commitment failed")
	}
}

// solve derives the slot's local challenge, queries the plot, and
// assembles a signed Solution if a candidate piece was found.
func (f *Farmer) solve(info SlotInfo) (*Solution, error) {
	localChallenge := xcrypto.HashChallenge(info.Challenge, f.identity.Hash)

	entry, found, err := f.plot.FindByRange(localChallenge, info.SolutionRange)
	if err != nil {
		return nil, fmt.Errorf("find_by_range: %w", err)
	}
	if !found {
		return nil, nil
	}

	encoding, err := f.plot.Read(entry.Index)
	if err != nil {
		return nil, fmt.Errorf("read piece %d: %w", entry.Index, err)
	}

	signature := f.identity.Sign(entry.Tag[:])

	var publicKey [32]byte
	copy(publicKey[:], f.identity.PublicKey)
	var sig [64]byte
	copy(sig[:], signature)

	return &Solution{
		PublicKey: publicKey,
		Nonce:     entry.Index,
		Encoding:  encoding,
		Signature: sig,
		Tag:       entry.Tag,
	}, nil
}

func saltPointersEqual(a, b *[32]byte) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return *a == *b
}
