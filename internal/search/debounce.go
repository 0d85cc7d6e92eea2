// Package search debounces typeahead city searches.
package search

import (
	"context"
	"sync"
	"time"

	"github.com/i474232898/sky-diorama/internal/weather"
)

// DefaultDelay is the quiet period after the last keystroke before a search runs.
const DefaultDelay = 300 * time.Millisecond

// SearchFunc performs the actual lookup.
type SearchFunc func(ctx context.Context, query string) []weather.GeocodingResult

// ResultFunc receives the results of a search that ran.
type ResultFunc func(query string, results []weather.GeocodingResult)

// Debouncer collapses bursts of Type calls into one search. Every call
// cancels the pending timer and starts a new one.
type Debouncer struct {
	mu      sync.Mutex
	ctx     context.Context
	delay   time.Duration
	timer   *time.Timer
	pending string
	seq     uint64
	stopped bool

	search    SearchFunc
	onResults ResultFunc
}

func NewDebouncer(ctx context.Context, delay time.Duration, search SearchFunc, onResults ResultFunc) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{
		ctx:       ctx,
		delay:     delay,
		search:    search,
		onResults: onResults,
	}
}

// Type records the latest query and restarts the delay.
func (d *Debouncer) Type(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	d.pending = query
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	// A later Type may have raced with this timer firing.
	if d.stopped || d.timer == nil || d.seq != seq {
		d.mu.Unlock()
		return
	}
	query := d.pending
	d.pending = ""
	d.timer = nil
	d.mu.Unlock()

	if d.ctx.Err() != nil {
		return
	}
	results := d.search(d.ctx, query)
	if d.onResults != nil {
		d.onResults(query, results)
	}
}

// Flush runs the pending search immediately, if any.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer == nil || d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer.Stop()
	seq := d.seq
	d.mu.Unlock()

	d.fire(seq)
}

// Stop cancels any pending search; later Type calls are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
