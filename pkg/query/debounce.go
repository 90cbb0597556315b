package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mcolletta/direx/pkg/fsio"
)

// ErrSuperseded is returned to a debounced caller whose search was replaced
// by a newer one before the debounce window elapsed.
var ErrSuperseded = errors.New("search superseded by a newer query")

// Debouncer wraps Engine.Search behind a timer that resets on every call:
// only the last call issued within the window runs, and every superseded
// caller gets ErrSuperseded instead of a stale result.
//
// Last-writer-wins is enforced with a monotonic sequence number rather than
// timer identity, so a timer that fires late for an old call is a no-op.
type Debouncer struct {
	engine *Engine
	delay  time.Duration

	mu      sync.Mutex
	seq     uint64
	timer   *time.Timer
	waiting chan outcome
}

type outcome struct {
	results []Result
	err     error
}

// NewDebouncer wraps engine with a debounce window.
func NewDebouncer(engine *Engine, delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = 300 * time.Millisecond
	}
	return &Debouncer{engine: engine, delay: delay}
}

// Search schedules a debounced search and blocks until it runs, it is
// superseded, or ctx ends.
func (d *Debouncer) Search(ctx context.Context, q string, items []fsio.Entry, opts Options) ([]Result, error) {
	ch := make(chan outcome, 1)

	d.mu.Lock()
	d.seq++
	mySeq := d.seq

	if d.waiting != nil {
		d.waiting <- outcome{err: ErrSuperseded}
	}
	d.waiting = ch

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.fire(mySeq, q, items, opts)
	})
	d.mu.Unlock()

	select {
	case res := <-ch:
		return res.results, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fire runs the search for the call identified by seq, unless a newer call
// has arrived in the meantime.
func (d *Debouncer) fire(seq uint64, q string, items []fsio.Entry, opts Options) {
	d.mu.Lock()
	if seq != d.seq || d.waiting == nil {
		d.mu.Unlock()
		return
	}
	ch := d.waiting
	d.waiting = nil
	d.mu.Unlock()

	ch <- outcome{results: d.engine.Search(q, items, opts)}
}

// Stop cancels any pending debounced search. The pending caller, if any,
// receives ErrSuperseded.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.waiting != nil {
		d.waiting <- outcome{err: ErrSuperseded}
		d.waiting = nil
	}
}
