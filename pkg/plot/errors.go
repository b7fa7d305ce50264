package plot

import "errors"

// Sentinel errors returned by Open/OpenOrCreate, wrapped with context via
// fmt.Errorf("...: %w", ...) at the call site.
var (
	ErrPlotOpen     = errors.New("plot open error")
	ErrPlotTagsOpen = errors.New("plot tags open error")
	ErrClosed       = errors.New("plot is closed")
	ErrPlotFull     = errors.New("write exceeds plot's configured piece bound")
)
