package prefetch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	id string
	at time.Time
}

// recorder is a FetchFunc that records call order and peak concurrency.
type recorder struct {
	mu      sync.Mutex
	calls   []call
	active  atomic.Int32
	peak    atomic.Int32
	latency time.Duration
	fail    map[string]bool
	block   chan struct{} // when set, fetches wait on it or ctx
	started chan string
}

func (r *recorder) fetch(ctx context.Context, id string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call{id: id, at: time.Now()})
	r.mu.Unlock()

	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if r.started != nil {
		r.started <- id
	}
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if r.latency > 0 {
		time.Sleep(r.latency)
	}
	if r.fail[id] {
		return "", fmt.Errorf("backend said no to %s", id)
	}
	return "payload-" + id, nil
}

func (r *recorder) Calls() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func (r *recorder) CallsFor(id string) int {
	n := 0
	for _, c := range r.Calls() {
		if c.id == id {
			n++
		}
	}
	return n
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("b%02d", i)
	}
	return out
}

func idsOf(calls []call) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.id
	}
	sort.Strings(out)
	return out
}

func TestPrefetchAllTiering(t *testing.T) {
	// 23 ids, immediate tier 10, chunks of 5, 200ms before each chunk:
	// one concurrent batch of 10, then 5/5/3.
	rec := &recorder{latency: 50 * time.Millisecond}
	p := New(rec.fetch, Options{Immediate: 10, ChunkSize: 5, ChunkDelay: 200 * time.Millisecond, Logger: logger.Noop()})

	all := ids(23)
	res := p.PrefetchAll(context.Background(), all)

	assert.Equal(t, Result{Fetched: 23}, res)
	assert.Equal(t, 23, p.Cache().Len())

	calls := rec.Calls()
	require.Len(t, calls, 23)

	tiers := [][]call{calls[0:10], calls[10:15], calls[15:20], calls[20:23]}
	assert.Equal(t, all[0:10], idsOf(tiers[0]), "immediate tier requested before any background id")
	assert.Equal(t, all[10:15], idsOf(tiers[1]))
	assert.Equal(t, all[15:20], idsOf(tiers[2]))
	assert.Equal(t, all[20:23], idsOf(tiers[3]))

	first := func(cs []call) time.Time {
		earliest := cs[0].at
		for _, c := range cs[1:] {
			if c.at.Before(earliest) {
				earliest = c.at
			}
		}
		return earliest
	}
	last := func(cs []call) time.Time {
		latest := cs[0].at
		for _, c := range cs[1:] {
			if c.at.After(latest) {
				latest = c.at
			}
		}
		return latest
	}

	for i := 1; i < len(tiers); i++ {
		gap := first(tiers[i]).Sub(first(tiers[i-1]))
		assert.GreaterOrEqual(t, gap, 200*time.Millisecond, "tier %d starts ≥200ms after tier %d", i, i-1)
		assert.True(t, first(tiers[i]).After(last(tiers[i-1])), "tier %d starts after tier %d", i, i-1)
	}

	assert.Equal(t, int32(10), rec.peak.Load(), "immediate tier is fully concurrent")
}

func TestPrefetchAllChunkConcurrency(t *testing.T) {
	rec := &recorder{latency: 10 * time.Millisecond}
	p := New(rec.fetch, Options{NoImmediate: true, ChunkSize: 3, Logger: logger.Noop(), Wait: func(ctx context.Context, d time.Duration) error { return ctx.Err() }})

	res := p.PrefetchAll(context.Background(), ids(9))
	assert.Equal(t, 9, res.Fetched)
	assert.LessOrEqual(t, rec.peak.Load(), int32(3))
}

func TestPrefetchAllSkipsCached(t *testing.T) {
	rec := &recorder{}
	p := New(rec.fetch, Options{Immediate: 2, ChunkSize: 2, ChunkDelay: time.Millisecond, Logger: logger.Noop()})

	// The user already opened b03 directly.
	v, err := p.Load(context.Background(), "b03")
	require.NoError(t, err)
	assert.Equal(t, "payload-b03", v)

	res := p.PrefetchAll(context.Background(), ids(6))
	assert.Equal(t, 5, res.Fetched)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, rec.CallsFor("b03"), "cached id is not fetched again")

	// Second run has nothing to do.
	res = p.PrefetchAll(context.Background(), ids(6))
	assert.Equal(t, Result{Skipped: 6}, res)
}

func TestPrefetchAllFailuresIsolated(t *testing.T) {
	rec := &recorder{fail: map[string]bool{"b01": true, "b04": true}}
	log := logger.NewBufferLogger()
	p := New(rec.fetch, Options{Immediate: 3, ChunkSize: 2, ChunkDelay: time.Millisecond, Logger: log})

	res := p.PrefetchAll(context.Background(), ids(6))
	assert.Equal(t, Result{Fetched: 4, Failed: 2}, res)
	assert.False(t, p.Cache().Has("b01"))
	assert.True(t, p.Cache().Has("b02"))
	assert.True(t, log.Contains("prefetch b01 failed"))

	// Opening the failed item falls back to a direct fetch.
	delete(rec.fail, "b01")
	v, err := p.Load(context.Background(), "b01")
	require.NoError(t, err)
	assert.Equal(t, "payload-b01", v)
}

func TestPrefetchCancelIsSilentAndTerminal(t *testing.T) {
	rec := &recorder{block: make(chan struct{}), started: make(chan string, 32)}
	log := logger.NewBufferLogger()
	p := New(rec.fetch, Options{Immediate: 4, ChunkSize: 2, ChunkDelay: time.Millisecond, Logger: log})

	resCh := make(chan Result, 1)
	go func() { resCh <- p.PrefetchAll(context.Background(), ids(10)) }()

	for i := 0; i < 4; i++ {
		select {
		case <-rec.started:
		case <-time.After(2 * time.Second):
			t.Fatal("immediate tier never started")
		}
	}
	assert.True(t, p.Running())

	p.Cancel()

	var res Result
	select {
	case res = <-resCh:
	case <-time.After(2 * time.Second):
		t.Fatal("PrefetchAll didn't return after Cancel")
	}

	assert.True(t, res.Cancelled)
	assert.Zero(t, res.Failed, "aborted fetches aren't failures")
	assert.Zero(t, res.Fetched)
	assert.Len(t, rec.Calls(), 4, "no fetch issued after cancellation")
	assert.False(t, log.HasLevel("warn"))
	assert.False(t, log.HasLevel("error"))
	assert.False(t, p.Running())

	// Nothing further trickles in.
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, rec.Calls(), 4)
}

func TestPrefetchContextCancel(t *testing.T) {
	rec := &recorder{}
	p := New(rec.fetch, Options{Immediate: 1, ChunkSize: 1, ChunkDelay: time.Hour, Logger: logger.Noop()})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res := p.PrefetchAll(ctx, ids(5))
	assert.True(t, res.Cancelled)
	assert.Equal(t, 1, res.Fetched, "only the immediate tier ran")
	assert.Len(t, rec.Calls(), 1)
}

func TestPrefetchAllCancelsPreviousRun(t *testing.T) {
	block := make(chan struct{})
	var firstRun atomic.Bool
	firstRun.Store(true)

	started := make(chan struct{}, 1)
	fetch := func(ctx context.Context, id string) (string, error) {
		if firstRun.Load() {
			select {
			case started <- struct{}{}:
			default:
			}
			select {
			case <-block:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		return "v-" + id, nil
	}
	p := New(fetch, Options{Immediate: 1, ChunkSize: 2, ChunkDelay: time.Millisecond, Logger: logger.Noop()})

	firstRes := make(chan Result, 1)
	go func() { firstRes <- p.PrefetchAll(context.Background(), ids(4)) }()
	<-started

	firstRun.Store(false)
	second := p.PrefetchAll(context.Background(), ids(4))

	first := <-firstRes
	assert.True(t, first.Cancelled)
	assert.Equal(t, 4, second.Fetched)
	assert.False(t, second.Cancelled)
}

func TestLoadDirectBeatsLatePrefetch(t *testing.T) {
	release := make(chan struct{})
	prefetchStarted := make(chan struct{})
	var direct atomic.Bool

	fetch := func(ctx context.Context, id string) (string, error) {
		if direct.Load() {
			return "direct", nil
		}
		close(prefetchStarted)
		<-release
		return "stale-prefetch", nil
	}
	p := New(fetch, Options{Immediate: 1, Logger: logger.Noop()})

	done := make(chan Result, 1)
	go func() { done <- p.PrefetchAll(context.Background(), []string{"x"}) }()
	<-prefetchStarted

	direct.Store(true)
	v, err := p.Load(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "direct", v)

	close(release)
	res := <-done
	assert.Equal(t, 1, res.Skipped)

	got, _ := p.Cache().Get("x")
	assert.Equal(t, "direct", got, "late prefetch result is discarded")
}

func TestLoadSharesConcurrentFetches(t *testing.T) {
	var calls atomic.Int32
	gate := make(chan struct{})
	fetch := func(ctx context.Context, id string) (string, error) {
		calls.Add(1)
		<-gate
		return "v", nil
	}
	p := New(fetch, Options{Logger: logger.Noop()})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := p.Load(context.Background(), "x")
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestLoadError(t *testing.T) {
	p := New(func(ctx context.Context, id string) (int, error) {
		return 0, errors.New("boom")
	}, Options{Logger: logger.Noop()})

	_, err := p.Load(context.Background(), "x")
	assert.EqualError(t, err, "boom")
	assert.False(t, p.Cache().Has("x"))
}

func TestInvalidateAndReload(t *testing.T) {
	var n atomic.Int32
	p := New(func(ctx context.Context, id string) (int32, error) {
		return n.Add(1), nil
	}, Options{Logger: logger.Noop()})

	v, _ := p.Load(context.Background(), "x")
	assert.Equal(t, int32(1), v)
	v, _ = p.Load(context.Background(), "x")
	assert.Equal(t, int32(1), v, "served from cache")

	p.Invalidate("x")
	v, _ = p.Load(context.Background(), "x")
	assert.Equal(t, int32(2), v)

	v, _ = p.Reload(context.Background(), "x")
	assert.Equal(t, int32(3), v)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, dedupe([]string{"a", "b", "", "a", "c", "b"}))
}
