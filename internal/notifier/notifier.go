// Package notifier broadcasts resource changes to open grids.
package notifier

import (
	"context"
	"sync"
)

// Change identifies what was written. An empty RowID means the whole
// resource changed (seed, config reload) and listeners should refetch
// from the first page.
// Origin names the writer (a web session, the shell) when known.
type Change struct {
	Resource string
	RowID    string
	Origin   string
}

type originKey struct{}

// WithOrigin tags ctx so that writes made with it carry origin.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFrom returns the origin stored by WithOrigin, or "".
func OriginFrom(ctx context.Context) string {
	origin, _ := ctx.Value(originKey{}).(string)
	return origin
}

// All is the resource filter that matches every change.
const All = "*"

type listener struct {
	resource string
	ch       chan Change
}

// Notifier fans out changes to subscribers filtered by resource.
// Listeners receive at most one pending change; they are expected to
// re-query the store, so a dropped change loses nothing.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Change]listener
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan Change]listener),
	}
}

// Subscribe returns a channel receiving changes for resource, or for every
// resource when resource is All.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe(resource string) chan Change {
	ch := make(chan Change, 1)
	n.mu.Lock()
	n.listeners[ch] = listener{resource: resource, ch: ch}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Change) {
	n.mu.Lock()
	_, ok := n.listeners[ch]
	delete(n.listeners, ch)
	n.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Broadcast delivers c to every matching listener without blocking.
// A listener whose channel is full keeps its pending change.
func (n *Notifier) Broadcast(c Change) {
	if n == nil {
		return
	}
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, l := range n.listeners {
		if l.resource != All && c.Resource != All && l.resource != c.Resource {
			continue
		}
		select {
		case l.ch <- c:
		default:
		}
	}
}

// Len reports the number of subscribers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
