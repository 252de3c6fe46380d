package grid

import (
	"context"
	"sync"
)

// LoadFunc asks the caller for the next page. The caller appends the rows
// to the table (AppendRows) before returning.
type LoadFunc func(ctx context.Context) error

// Pager is the infinite-scroll driver. It turns sentinel visibility into at
// most one in-flight load request.
type Pager struct {
	mu       sync.Mutex
	load     LoadFunc
	hasMore  bool
	inFlight bool
	external bool
	lastErr  error
}

// NewPager creates a pager calling load when more rows are wanted.
func NewPager(load LoadFunc) *Pager {
	return &Pager{load: load}
}

// SetHasMore records whether the caller knows of more pages.
func (p *Pager) SetHasMore(hasMore bool) {
	p.mu.Lock()
	p.hasMore = hasMore
	p.mu.Unlock()
}

// HasMore reports the caller's last hasMore value.
func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

// SetLoading lets the caller mark a load it started on its own, such as the
// initial fetch. While set, sentinel triggers are suppressed.
func (p *Pager) SetLoading(loading bool) {
	p.mu.Lock()
	p.external = loading
	p.mu.Unlock()
}

// Loading reports whether a load is in flight.
func (p *Pager) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight || p.external
}

// LastError returns the error of the most recent load, nil after a
// successful one. hasMore is left to the caller either way.
func (p *Pager) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// SentinelVisible is called when the sentinel enters the viewport. It runs
// the load function when more pages exist and no load is in flight, and
// reports whether a load was started.
func (p *Pager) SentinelVisible(ctx context.Context) bool {
	p.mu.Lock()
	if p.load == nil || !p.hasMore || p.inFlight || p.external {
		p.mu.Unlock()
		return false
	}
	p.inFlight = true
	p.mu.Unlock()

	err := p.load(ctx)

	p.mu.Lock()
	p.inFlight = false
	p.lastErr = err
	p.mu.Unlock()
	return true
}

// Reset records hasMore and clears the last load error, used when the
// caller replaces the rows wholesale. A load already in flight keeps its
// guard until it returns.
func (p *Pager) Reset(hasMore bool) {
	p.mu.Lock()
	p.hasMore = hasMore
	p.lastErr = nil
	p.mu.Unlock()
}
