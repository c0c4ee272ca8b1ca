// Package pager accumulates a paginated listing and loads the next page
// when the reader gets near the end of what's loaded.
//
// It knows nothing about rendering: a view reports the index it's showing
// through NearEnd (or asks ShouldLoad first and runs Next itself), and the
// pager decides whether another page is due.
package pager

import (
	"context"
	"sync"

	"github.com/rileyhilliard/fleetwatch/internal/api"
)

// DefaultThreshold is how many rows from the end a load is triggered.
const DefaultThreshold = 5

// PageFunc fetches limit items starting at offset.
type PageFunc[T any] func(ctx context.Context, offset, limit int) (*api.Page[T], error)

// Pager holds every item loaded so far.
type Pager[T any] struct {
	fetch     PageFunc[T]
	limit     int
	threshold int

	mu      sync.Mutex
	items   []T
	total   int
	hasMore bool
	loading bool
	err     error
	gen     int
}

// New creates a pager loading limit items per page.
func New[T any](fetch PageFunc[T], limit, threshold int) *Pager[T] {
	if limit <= 0 {
		limit = api.DefaultPageSize
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Pager[T]{
		fetch:     fetch,
		limit:     limit,
		threshold: threshold,
		hasMore:   true,
	}
}

// Next loads the following page. It returns the number of items added, or
// zero when a load is already running or nothing is left.
func (p *Pager[T]) Next(ctx context.Context) (int, error) {
	p.mu.Lock()
	if p.loading || !p.hasMore {
		p.mu.Unlock()
		return 0, nil
	}
	p.loading = true
	offset, gen := len(p.items), p.gen
	p.mu.Unlock()

	page, err := p.fetch(ctx, offset, p.limit)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		// Reset while loading; the page belongs to the old listing.
		return 0, nil
	}
	p.loading = false
	if err != nil {
		p.err = err
		return 0, err
	}

	p.err = nil
	p.items = append(p.items, page.Items...)
	p.total = page.Total
	p.hasMore = page.HasMore && len(page.Items) > 0
	return len(page.Items), nil
}

// ShouldLoad reports whether showing row index makes another page due.
func (p *Pager[T]) ShouldLoad(index int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore && !p.loading && index >= len(p.items)-p.threshold
}

// NearEnd loads the next page if index is within the threshold of the end.
// It reports whether a page was loaded.
func (p *Pager[T]) NearEnd(ctx context.Context, index int) (bool, error) {
	if !p.ShouldLoad(index) {
		return false, nil
	}
	n, err := p.Next(ctx)
	return n > 0, err
}

// Reset forgets everything loaded. A page still in flight is discarded.
func (p *Pager[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.items = nil
	p.total = 0
	p.hasMore = true
	p.loading = false
	p.err = nil
}

// Items returns a copy of the loaded items.
func (p *Pager[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]T(nil), p.items...)
}

// Len returns the number of loaded items.
func (p *Pager[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Total returns the backend's total count from the last page.
func (p *Pager[T]) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// HasMore reports whether more pages remain.
func (p *Pager[T]) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

// Loading reports whether a page is being fetched.
func (p *Pager[T]) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// Err returns the error from the last failed load, cleared by the next success.
func (p *Pager[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
