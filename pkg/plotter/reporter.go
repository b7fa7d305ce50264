package plotter

import (
	"fmt"
	"time"

	"github.com/cheggaaa/pb/v3"
)

// Reporter observes plotting progress. Implementations must be safe for
// a single goroutine's exclusive use: Run calls Start once, then Add
// from its own goroutine as batches land, then Finish once.
type Reporter interface {
	Start(total uint64)
	Add(n int)
	Finish()
}

// NoopReporter discards all progress events.
type NoopReporter struct{}

func (NoopReporter) Start(uint64) {}
func (NoopReporter) Add(int)      {}
func (NoopReporter) Finish()      {}

// barReporter renders plotting progress as a terminal bar, the Go
// analogue of the upstream reference implementation's indicatif bar.
type barReporter struct {
	bar   *pb.ProgressBar
	start time.Time
	total uint64
}

// NewBarReporter returns a Reporter that prints a progress bar (pieces
// done, percentage, elapsed time) to stderr, and on Finish prints the
// average time per piece to stdout.
func NewBarReporter() Reporter {
	return &barReporter{}
}

func (r *barReporter) Start(total uint64) {
	r.total = total
	r.start = time.Now()
	r.bar = pb.New64(int64(total))
	r.bar.Set(pb.Bytes, false)
	r.bar.SetTemplateString(`{{counters . }} pieces {{bar . }} {{percent . }} {{etime . }}`)
	r.bar.Start()
}

func (r *barReporter) Add(n int) {
	if r.bar != nil {
		r.bar.Add(n)
	}
}

func (r *barReporter) Finish() {
	if r.bar == nil {
		return
	}
	r.bar.Finish()

	elapsed := time.Since(r.start)
	if r.total == 0 {
		return
	}
	average := elapsed / time.Duration(r.total)
	fmt.Printf("average plot time is %s per piece, total %s\n", average, elapsed)
}
