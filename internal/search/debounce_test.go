package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/sky-diorama/internal/weather"
)

type recorder struct {
	mu      sync.Mutex
	queries []string
	done    chan string
}

func newRecorder() *recorder {
	return &recorder{done: make(chan string, 10)}
}

func (r *recorder) search(_ context.Context, q string) []weather.GeocodingResult {
	r.mu.Lock()
	r.queries = append(r.queries, q)
	r.mu.Unlock()
	return []weather.GeocodingResult{{Name: q}}
}

func (r *recorder) results(q string, _ []weather.GeocodingResult) {
	r.done <- q
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

func TestDebouncerCollapsesBursts(t *testing.T) {
	rec := newRecorder()
	d := NewDebouncer(context.Background(), 50*time.Millisecond, rec.search, rec.results)
	defer d.Stop()

	d.Type("P")
	d.Type("Po")
	d.Type("Por")

	select {
	case q := <-rec.done:
		assert.Equal(t, "Por", q)
	case <-time.After(2 * time.Second):
		t.Fatal("search never ran")
	}

	// Give a stray timer a chance to fire.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{"Por"}, rec.calls())
}

func TestDebouncerSeparatedKeystrokes(t *testing.T) {
	rec := newRecorder()
	d := NewDebouncer(context.Background(), 20*time.Millisecond, rec.search, rec.results)
	defer d.Stop()

	d.Type("Lisbon")
	require.Equal(t, "Lisbon", <-rec.done)
	d.Type("Lyon")
	require.Equal(t, "Lyon", <-rec.done)

	assert.Equal(t, []string{"Lisbon", "Lyon"}, rec.calls())
}

func TestDebouncerFlush(t *testing.T) {
	rec := newRecorder()
	d := NewDebouncer(context.Background(), time.Hour, rec.search, rec.results)
	defer d.Stop()

	d.Flush()
	assert.Empty(t, rec.calls(), "nothing pending")

	d.Type("Oslo")
	d.Flush()
	assert.Equal(t, []string{"Oslo"}, rec.calls())
	assert.Equal(t, "Oslo", <-rec.done)

	d.Flush()
	assert.Len(t, rec.calls(), 1)
}

func TestDebouncerStop(t *testing.T) {
	rec := newRecorder()
	d := NewDebouncer(context.Background(), 20*time.Millisecond, rec.search, rec.results)

	d.Type("Berlin")
	d.Stop()
	d.Type("Bern")

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.calls())
}

func TestDebouncerCancelledContext(t *testing.T) {
	rec := newRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDebouncer(ctx, 20*time.Millisecond, rec.search, rec.results)
	defer d.Stop()

	d.Type("Madrid")
	cancel()

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.calls())
}

func TestDebouncerDefaultDelay(t *testing.T) {
	d := NewDebouncer(context.Background(), 0, nil, nil)
	assert.Equal(t, DefaultDelay, d.delay)
}
