// Package prefetch loads per-item detail payloads ahead of the user so that
// switching between items in a list is instant.
//
// PrefetchAll works in two tiers. The first few ids are fetched all at once
// and joined; the rest follow in small concurrent chunks, each preceded by a
// pause so the backend isn't flooded. A run is cancelled by its context, by
// Cancel, or by the next PrefetchAll, and cancellation is silent.
package prefetch

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Defaults for Options fields left zero.
const (
	DefaultImmediate  = 10
	DefaultChunkSize  = 5
	DefaultChunkDelay = 200 * time.Millisecond
)

// FetchFunc loads the payload for one id.
type FetchFunc[T any] func(ctx context.Context, id string) (T, error)

// Options configures a Prefetcher.
type Options struct {
	// Immediate is how many leading ids are fetched at once. Set
	// NoImmediate to put every id in the background tier.
	Immediate   int
	NoImmediate bool

	ChunkSize  int
	ChunkDelay time.Duration

	Logger logger.Logger

	// Wait blocks for d or until ctx is done. Tests replace it.
	Wait func(ctx context.Context, d time.Duration) error
}

// Result summarizes one PrefetchAll run.
type Result struct {
	Fetched   int  // newly cached
	Skipped   int  // already cached or being loaded directly
	Failed    int  // fetch errors, excluding cancellation
	Cancelled bool // the run stopped early
}

// Prefetcher fills a Cache from a FetchFunc.
type Prefetcher[T any] struct {
	cache *Cache[T]
	fetch FetchFunc[T]
	opts  Options
	log   logger.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	inflight map[string]int

	loads singleflight.Group
}

// New creates a prefetcher with an empty cache.
func New[T any](fetch FetchFunc[T], opts Options) *Prefetcher[T] {
	if opts.Immediate <= 0 && !opts.NoImmediate {
		opts.Immediate = DefaultImmediate
	}
	if opts.NoImmediate {
		opts.Immediate = 0
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkDelay < 0 {
		opts.ChunkDelay = 0
	}
	if opts.Wait == nil {
		opts.Wait = sleepCtx
	}

	return &Prefetcher[T]{
		cache:    NewCache[T](),
		fetch:    fetch,
		opts:     opts,
		log:      logger.OrDefault(opts.Logger),
		inflight: make(map[string]int),
	}
}

// Cache returns the underlying cache.
func (p *Prefetcher[T]) Cache() *Cache[T] {
	return p.cache
}

// PrefetchAll loads every id not already cached and blocks until the run
// finishes or is cancelled. Any run already in progress is cancelled and
// waited out first.
func (p *Prefetcher[T]) PrefetchAll(ctx context.Context, ids []string) Result {
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	prevCancel, prevDone := p.cancel, p.done
	p.cancel, p.done = cancel, done
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		if p.done == done {
			p.cancel, p.done = nil, nil
		}
		p.mu.Unlock()
		close(done)
	}()

	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}

	ids = dedupe(ids)
	n := min(p.opts.Immediate, len(ids))
	immediate, background := ids[:n], ids[n:]

	var res Result
	var resMu sync.Mutex

	start := time.Now()
	p.log.Debug("prefetch: %d immediate, %d background", len(immediate), len(background))

	p.batch(runCtx, immediate, &res, &resMu)

	for len(background) > 0 && runCtx.Err() == nil {
		size := min(p.opts.ChunkSize, len(background))
		chunk := background[:size]
		background = background[size:]

		if err := p.opts.Wait(runCtx, p.opts.ChunkDelay); err != nil {
			break
		}
		p.batch(runCtx, chunk, &res, &resMu)
	}

	if runCtx.Err() != nil {
		res.Cancelled = true
		p.log.Debug("prefetch cancelled after %s (%d fetched)", time.Since(start).Round(time.Millisecond), res.Fetched)
		return res
	}

	p.log.Debug("prefetch done in %s: %d fetched, %d skipped, %d failed",
		time.Since(start).Round(time.Millisecond), res.Fetched, res.Skipped, res.Failed)
	return res
}

// batch fetches ids concurrently and waits for all of them.
func (p *Prefetcher[T]) batch(ctx context.Context, ids []string, res *Result, resMu *sync.Mutex) {
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			outcome := p.prefetchOne(ctx, id)

			resMu.Lock()
			defer resMu.Unlock()
			switch outcome {
			case outcomeFetched:
				res.Fetched++
			case outcomeSkipped:
				res.Skipped++
			case outcomeFailed:
				res.Failed++
			}
		}(id)
	}
	wg.Wait()
}

type outcome int

const (
	outcomeCancelled outcome = iota
	outcomeFetched
	outcomeSkipped
	outcomeFailed
)

func (p *Prefetcher[T]) prefetchOne(ctx context.Context, id string) outcome {
	if ctx.Err() != nil {
		return outcomeCancelled
	}
	if p.cache.Has(id) || p.loading(id) {
		return outcomeSkipped
	}

	seq := p.cache.Begin()
	v, err := p.fetch(ctx, id)
	if err != nil {
		if ctx.Err() != nil || stderrors.Is(err, context.Canceled) {
			return outcomeCancelled
		}
		p.log.Warn("prefetch %s failed: %v", id, err)
		return outcomeFailed
	}

	if !p.cache.Fill(id, v, seq) {
		return outcomeSkipped
	}
	return outcomeFetched
}

// Cancel stops the current run, if any, and waits for it to return.
func (p *Prefetcher[T]) Cancel() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a PrefetchAll is in progress.
func (p *Prefetcher[T]) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done != nil
}

// Load returns the payload for id, fetching it directly when it isn't cached.
// This is the on-demand path for items the user opens before (or instead of)
// the prefetch reaching them; its result always takes precedence over a
// prefetch result for the same id. Concurrent loads of one id share a fetch.
func (p *Prefetcher[T]) Load(ctx context.Context, id string) (T, error) {
	if v, ok := p.cache.Get(id); ok {
		return v, nil
	}

	v, err, _ := p.loads.Do(id, func() (any, error) {
		p.markLoading(id, 1)
		defer p.markLoading(id, -1)

		seq := p.cache.Begin()
		v, err := p.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		p.cache.Store(id, v, seq)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Reload drops id from the cache and fetches it again.
func (p *Prefetcher[T]) Reload(ctx context.Context, id string) (T, error) {
	p.cache.Delete(id)
	return p.Load(ctx, id)
}

// Invalidate drops id so the next access fetches fresh data. Called after
// the item is saved or deleted.
func (p *Prefetcher[T]) Invalidate(id string) {
	p.cache.Delete(id)
}

func (p *Prefetcher[T]) markLoading(id string, delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight[id] += delta
	if p.inflight[id] <= 0 {
		delete(p.inflight, id)
	}
}

func (p *Prefetcher[T]) loading(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inflight[id] > 0
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
