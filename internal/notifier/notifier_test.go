package notifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch chan Change) (Change, bool) {
	t.Helper()
	select {
	case c := <-ch:
		return c, true
	case <-time.After(100 * time.Millisecond):
		return Change{}, false
	}
}

func TestNotifier_SubscribeUnsubscribe(t *testing.T) {
	n := New()

	ch := n.Subscribe("clients")
	require.NotNil(t, ch)
	assert.Equal(t, 1, n.Len())

	n.Unsubscribe(ch)
	assert.Equal(t, 0, n.Len())

	// Second unsubscribe must not panic on a closed channel.
	n.Unsubscribe(ch)
}

func TestNotifier_BroadcastFiltersByResource(t *testing.T) {
	n := New()

	clients := n.Subscribe("clients")
	apps := n.Subscribe("apps")
	all := n.Subscribe(All)
	defer n.Unsubscribe(clients)
	defer n.Unsubscribe(apps)
	defer n.Unsubscribe(all)

	n.Broadcast(Change{Resource: "clients", RowID: "7"})

	c, ok := receive(t, clients)
	require.True(t, ok, "clients listener did not receive")
	assert.Equal(t, Change{Resource: "clients", RowID: "7"}, c)

	_, ok = receive(t, apps)
	assert.False(t, ok, "apps listener received a clients change")

	_, ok = receive(t, all)
	assert.True(t, ok, "wildcard listener did not receive")
}

func TestNotifier_BroadcastAll(t *testing.T) {
	n := New()
	apps := n.Subscribe("apps")
	defer n.Unsubscribe(apps)

	n.Broadcast(Change{Resource: All})

	_, ok := receive(t, apps)
	assert.True(t, ok)
}

func TestNotifier_BroadcastNonBlocking(t *testing.T) {
	n := New()
	ch := n.Subscribe("apps")
	defer n.Unsubscribe(ch)

	ch <- Change{Resource: "apps", RowID: "first"}

	done := make(chan struct{})
	go func() {
		n.Broadcast(Change{Resource: "apps", RowID: "second"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Broadcast blocked on full channel")
	}

	c, _ := receive(t, ch)
	assert.Equal(t, "first", c.RowID, "pending change is kept")
}

func TestNotifier_NilBroadcast(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() { n.Broadcast(Change{Resource: "apps"}) })
}

func TestNotifier_Concurrent(t *testing.T) {
	n := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := n.Subscribe(All)
			n.Broadcast(Change{Resource: "tickets"})
			n.Unsubscribe(ch)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, n.Len())
}

func TestOrigin(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", OriginFrom(ctx))
	assert.Equal(t, "session-1", OriginFrom(WithOrigin(ctx, "session-1")))
}
