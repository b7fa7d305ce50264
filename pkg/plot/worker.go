package plot

import (
	"fmt"

	"github.com/cuemby/spartan-farmer/pkg/metrics"
	"github.com/cuemby/spartan-farmer/pkg/piece"
	"github.com/cuemby/spartan-farmer/pkg/xcrypto"
)

// commitBatchSize bounds how many tags a single commitment-scan
// transaction writes at once, the read-side analogue of the plotter's
// write batching.
const commitBatchSize = 256

type opIsEmpty struct {
	resultCh chan<- opIsEmptyResult
}
type opIsEmptyResult struct {
	empty bool
	err   error
}

type opRead struct {
	index    uint64
	resultCh chan<- opReadResult
}
type opReadResult struct {
	piece piece.Piece
	err   error
}

type opFindByRange struct {
	target   [8]byte
	rng      uint64
	resultCh chan<- opFindByRangeResult
}
type opFindByRangeResult struct {
	entry TagEntry
	found bool
	err   error
}

type opWriteMany struct {
	encodings  []piece.Piece
	firstIndex uint64
	salt       [32]byte
	resultCh   chan<- error
}

type opCreateCommitment struct {
	salt     [32]byte
	resultCh chan<- error
}

type opRemoveCommitment struct {
	salt     [32]byte
	resultCh chan<- error
}

// run is the plot's single background worker. It owns the file and tag
// index handles exclusively for their lifetime.
func (p *Plot) run() {
	defer p.finishClose()

	for {
		p.drainReads()

		select {
		case req, ok := <-p.writeRequests:
			if !ok {
				return
			}
			p.handleWrite(req)
		case req, ok := <-p.readRequests:
			if !ok {
				return
			}
			p.handleRead(req)
		case <-p.stopCh:
			// Answer every request already queued before exiting, so no
			// caller is left waiting on a reply that never comes.
			for {
				p.drainReads()
				select {
				case req := <-p.writeRequests:
					p.handleWrite(req)
				default:
					return
				}
			}
		}
	}
}

// drainReads processes every read request currently queued, so a burst
// of farmer queries never waits behind a single pending write.
func (p *Plot) drainReads() {
	for {
		select {
		case req, ok := <-p.readRequests:
			if !ok {
				return
			}
			p.handleRead(req)
		default:
			return
		}
	}
}

func (p *Plot) handleRead(req any) {
	switch r := req.(type) {
	case opIsEmpty:
		empty, err := p.tags.IsEmpty()
		r.resultCh <- opIsEmptyResult{empty: empty, err: err}
	case opRead:
		timer := metrics.NewTimer()
		buf, err := p.doRead(r.index)
		timer.ObserveDuration(metrics.PlotReadDuration)
		r.resultCh <- opReadResult{piece: buf, err: err}
	case opFindByRange:
		timer := metrics.NewTimer()
		entry, found, err := p.tags.FindByRange(r.target, r.rng)
		timer.ObserveDuration(metrics.PlotFindByRangeDuration)
		r.resultCh <- opFindByRangeResult{entry: entry, found: found, err: err}
	}
}

func (p *Plot) handleWrite(req any) {
	switch r := req.(type) {
	case opWriteMany:
		timer := metrics.NewTimer()
		err := p.doWriteMany(r.encodings, r.firstIndex, r.salt)
		timer.ObserveDuration(metrics.PlotWriteDuration)
		if err == nil {
			metrics.PiecesPlottedTotal.Add(float64(len(r.encodings)))
		}
		r.resultCh <- err
	case opCreateCommitment:
		timer := metrics.NewTimer()
		err := p.doCreateCommitment(r.salt)
		timer.ObserveDuration(metrics.CommitmentCreateDuration)
		if err == nil {
			metrics.CommitmentsCreatedTotal.Inc()
		}
		r.resultCh <- err
	case opRemoveCommitment:
		r.resultCh <- p.tags.DeleteCommitment(r.salt)
	}
}

func (p *Plot) doRead(index uint64) (piece.Piece, error) {
	var buf piece.Piece
	if _, err := p.file.ReadAt(buf[:], int64(index)*piece.Size); err != nil {
		return piece.Piece{}, fmt.Errorf("read piece %d: %w", index, err)
	}
	return buf, nil
}

func (p *Plot) doWriteMany(encodings []piece.Piece, firstIndex uint64, salt [32]byte) error {
	if len(encodings) == 0 {
		return nil
	}
	if p.maxPieces > 0 && firstIndex+uint64(len(encodings)) > p.maxPieces {
		return fmt.Errorf("%w: write [%d, %d) exceeds bound %d", ErrPlotFull, firstIndex, firstIndex+uint64(len(encodings)), p.maxPieces)
	}

	whole := make([]byte, 0, len(encodings)*piece.Size)
	for _, enc := range encodings {
		whole = append(whole, enc[:]...)
	}
	if _, err := p.file.WriteAt(whole, int64(firstIndex)*piece.Size); err != nil {
		return fmt.Errorf("write encodings at %d: %w", firstIndex, err)
	}

	entries := make([]TagEntry, len(encodings))
	for i, enc := range encodings {
		entries[i] = TagEntry{
			Tag:   xcrypto.CreateTag(enc[:], salt),
			Index: firstIndex + uint64(i),
		}
	}

	highWater := firstIndex + uint64(len(encodings))
	if err := p.tags.PutMany(salt, entries, highWater); err != nil {
		return fmt.Errorf("index encodings at %d: %w", firstIndex, err)
	}

	return nil
}

// doCreateCommitment scans every piece already on disk and recomputes
// its tag under salt, batching writes so a full-plot commitment never
// buffers the whole tag set in memory at once.
func (p *Plot) doCreateCommitment(salt [32]byte) error {
	highWater, err := p.tags.HighWaterIndex()
	if err != nil {
		return fmt.Errorf("create commitment: %w", err)
	}

	entries := make([]TagEntry, 0, commitBatchSize)
	var buf piece.Piece

	flush := func() error {
		if len(entries) == 0 {
			return nil
		}
		if err := p.tags.PutMany(salt, entries, highWater); err != nil {
			return err
		}
		entries = entries[:0]
		return nil
	}

	for index := uint64(0); index < highWater; index++ {
		if _, err := p.file.ReadAt(buf[:], int64(index)*piece.Size); err != nil {
			return fmt.Errorf("create commitment: read piece %d: %w", index, err)
		}
		entries = append(entries, TagEntry{
			Tag:   xcrypto.CreateTag(buf[:], salt),
			Index: index,
		})
		if len(entries) == commitBatchSize {
			if err := flush(); err != nil {
				return fmt.Errorf("create commitment: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		return fmt.Errorf("create commitment: %w", err)
	}

	return nil
}

// finishClose runs once the worker loop exits: it closes the file and
// tag index on a dedicated goroutine (mirroring the upstream reference
// implementation's explicit note that dropping the database handle
// should not happen on the worker's own goroutine) and then fires every
// registered close callback.
func (p *Plot) finishClose() {
	go func() {
		_ = p.file.Close()
		_ = p.tags.Close()

		p.closeCallbacksMu.Lock()
		callbacks := p.closeCallbacks
		p.closeCallbacks = nil
		p.closeCallbacksMu.Unlock()

		for _, cb := range callbacks {
			cb.fn()
		}
		close(p.closedCh)
	}()
}
