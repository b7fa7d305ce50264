package plot

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/cuemby/spartan-farmer/pkg/config"
	"github.com/cuemby/spartan-farmer/pkg/piece"
)

// HandlerID identifies a callback registered with OnClose. Unregister
// drops it; an id that was never registered, or was already dropped, is
// silently ignored.
type HandlerID uint64

type closeCallback struct {
	id HandlerID
	fn func()
}

// Plot is a handle to a plot's background worker. All methods are safe
// for concurrent use by multiple goroutines.
type Plot struct {
	file      *os.File
	tags      *TagIndex
	maxPieces uint64

	readRequests  chan any
	writeRequests chan any
	stopCh        chan struct{}
	closedCh      chan struct{}
	closed        atomic.Bool

	closeOnce          sync.Once
	closeCallbacksMu   sync.Mutex
	closeCallbacks     []closeCallback
	nextCloseHandlerID atomic.Uint64
}

// OpenOrCreate opens the plot file and tag index described by opts,
// creating either if absent, and starts the background worker.
func OpenOrCreate(opts config.PlotOptions) (*Plot, error) {
	file, err := os.OpenFile(opts.Path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlotOpen, err)
	}

	tags, err := OpenTagIndex(opts.TagIndexPath)
	if err != nil {
		file.Close()
		return nil, err
	}

	p := &Plot{
		file:          file,
		tags:          tags,
		maxPieces:     opts.MaxPieces,
		readRequests:  make(chan any, 100),
		writeRequests: make(chan any, 100),
		stopCh:        make(chan struct{}),
		closedCh:      make(chan struct{}),
	}
	go p.run()

	return p, nil
}

// IsEmpty reports whether any piece has ever been written to the plot.
func (p *Plot) IsEmpty() (bool, error) {
	if p.closed.Load() {
		return false, ErrClosed
	}
	resultCh := make(chan opIsEmptyResult, 1)
	p.readRequests <- opIsEmpty{resultCh: resultCh}
	result := <-resultCh
	return result.empty, result.err
}

// Read returns the piece stored at index.
func (p *Plot) Read(index uint64) (piece.Piece, error) {
	if p.closed.Load() {
		return piece.Piece{}, ErrClosed
	}
	resultCh := make(chan opReadResult, 1)
	p.readRequests <- opRead{index: index, resultCh: resultCh}
	result := <-resultCh
	return result.piece, result.err
}

// FindByRange runs the ring range query described in the plot engine's
// design: it returns the first tag/index pair whose tag, interpreted as
// a big-endian uint64, falls within rng/2 of target on Z_2^64, or
// found=false if none does.
func (p *Plot) FindByRange(target [8]byte, rng uint64) (TagEntry, bool, error) {
	if p.closed.Load() {
		return TagEntry{}, false, ErrClosed
	}
	resultCh := make(chan opFindByRangeResult, 1)
	p.readRequests <- opFindByRange{target: target, rng: rng, resultCh: resultCh}
	result := <-resultCh
	return result.entry, result.found, result.err
}

// WriteMany writes encodings contiguously starting at firstIndex and
// indexes each one under salt. A no-op on an empty slice. Fails with
// ErrPlotFull if the plot was opened with a nonzero MaxPieces and this
// write would extend past it.
func (p *Plot) WriteMany(encodings []piece.Piece, firstIndex uint64, salt [32]byte) error {
	if len(encodings) == 0 {
		return nil
	}
	if p.closed.Load() {
		return ErrClosed
	}
	resultCh := make(chan error, 1)
	p.writeRequests <- opWriteMany{encodings: encodings, firstIndex: firstIndex, salt: salt, resultCh: resultCh}
	return <-resultCh
}

// CreateCommitment scans every piece on disk, recomputes its tag under
// salt, and populates the index. It completes (durably) before
// returning, so a caller seeing nil knows the commitment is usable.
func (p *Plot) CreateCommitment(salt [32]byte) error {
	if p.closed.Load() {
		return ErrClosed
	}
	resultCh := make(chan error, 1)
	p.writeRequests <- opCreateCommitment{salt: salt, resultCh: resultCh}
	return <-resultCh
}

// RemoveCommitment deletes every index entry associated with salt.
func (p *Plot) RemoveCommitment(salt [32]byte) error {
	if p.closed.Load() {
		return ErrClosed
	}
	resultCh := make(chan error, 1)
	p.writeRequests <- opRemoveCommitment{salt: salt, resultCh: resultCh}
	return <-resultCh
}

// OnClose registers a callback invoked once, after Close has drained the
// worker and released the file and index handles. It returns a handler
// id; pass it to Unregister to drop the callback before it fires.
func (p *Plot) OnClose(callback func()) HandlerID {
	id := HandlerID(p.nextCloseHandlerID.Add(1))

	p.closeCallbacksMu.Lock()
	defer p.closeCallbacksMu.Unlock()
	p.closeCallbacks = append(p.closeCallbacks, closeCallback{id: id, fn: callback})
	return id
}

// Unregister drops a callback previously registered with OnClose. A
// handler id that is unknown, or whose callback already fired, is a
// silent no-op.
func (p *Plot) Unregister(id HandlerID) {
	p.closeCallbacksMu.Lock()
	defer p.closeCallbacksMu.Unlock()
	for i, cb := range p.closeCallbacks {
		if cb.id == id {
			p.closeCallbacks = append(p.closeCallbacks[:i], p.closeCallbacks[i+1:]...)
			return
		}
	}
}

// Close signals the worker to stop accepting new work and blocks until
// it has drained, closed the file and index, and fired every OnClose
// callback.
func (p *Plot) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.stopCh)
	})
	<-p.closedCh
}
