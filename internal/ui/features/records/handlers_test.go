package records

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/ifilter/ifadmin/internal/notifier"
	"github.com/ifilter/ifadmin/internal/testutil"
	"github.com/ifilter/ifadmin/internal/ui/features"
	"github.com/ifilter/ifadmin/pkg/grid"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

type testServer struct {
	router   chi.Router
	handlers *Handlers
	fixture  *features.TestFixture
	cookies  []*http.Cookie
}

func setupTestServer(t *testing.T, clients int) *testServer {
	t.Helper()

	fixture := features.SetupTestFixture(t, map[string][]grid.Row{
		"clients": features.Clients(clients),
	})
	router := chi.NewRouter()
	handlers, err := SetupRoutes(router, Deps{
		Catalog:      fixture.Catalog,
		Store:        fixture.Store,
		SessionStore: fixture.SessionStore,
		Notifier:     fixture.Notifier,
		Logger:       testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	return &testServer{router: router, handlers: handlers, fixture: fixture}
}

// do sends a request within the server's browser session.
func (s *testServer) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range s.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		s.cookies = cookies
	}
	return rec
}

func countElements(t *testing.T, body, class string) int {
	t.Helper()

	doc, err := html.Parse(strings.NewReader(body))
	require.NoError(t, err)

	n := 0
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			for _, a := range node.Attr {
				if a.Key == "class" && strings.Contains(" "+a.Val+" ", " "+class+" ") {
					n++
				}
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return n
}

// =============================================================================
// Page Tests - Full HTML responses
// =============================================================================

func TestHomePage(t *testing.T) {
	s := setupTestServer(t, 3)

	rec := s.do(t, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Dashboard - ifadmin</title>",
		`href="/resources/clients"`,
		`href="/resources/tickets"`,
		`<p class="card__count">3</p>`,
		"datastar.js",
	} {
		assert.Contains(t, body, want)
	}
}

func TestGridPage(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		clients    int
		wantStatus int
		wantBody   []string
		wantRows   int
		sentinel   bool
	}{
		{
			name:       "first page with sentinel",
			target:     "/resources/clients",
			clients:    30,
			wantStatus: http.StatusOK,
			wantBody: []string{
				"<title>Clients - ifadmin</title>",
				"@get('/resources/clients/stream')",
				`id="cell-clients-c00-email"`,
				"First00 Last00",
				`aria-current="page"`,
			},
			wantRows: 25,
			sentinel: true,
		},
		{
			name:       "short resource has no sentinel",
			target:     "/resources/clients",
			clients:    2,
			wantStatus: http.StatusOK,
			wantBody:   []string{"First01 Last01"},
			wantRows:   2,
		},
		{
			name:       "empty resource",
			target:     "/resources/plans",
			wantStatus: http.StatusOK,
			wantBody:   []string{"No records."},
		},
		{
			name:       "unknown resource",
			target:     "/resources/invoices",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServer(t, tt.clients)

			rec := s.do(t, http.MethodGet, tt.target, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			body := rec.Body.String()
			for _, want := range tt.wantBody {
				assert.Contains(t, body, want)
			}
			// One header row plus the data rows.
			assert.Equal(t, tt.wantRows+1, countElements(t, body, "grid__row"))
			assert.Equal(t, tt.sentinel, strings.Contains(body, "-sentinel"))
		})
	}
}

func TestGridPage_SetsSessionCookie(t *testing.T) {
	s := setupTestServer(t, 1)

	s.do(t, http.MethodGet, "/resources/clients", nil)
	require.NotEmpty(t, s.cookies)
	assert.Equal(t, sessionName, s.cookies[0].Name)

	s.do(t, http.MethodGet, "/resources/clients", nil)
	assert.Equal(t, 1, s.handlers.Registry().Len())
}

func TestDetailPage(t *testing.T) {
	s := setupTestServer(t, 2)

	rec := s.do(t, http.MethodGet, "/resources/clients/c01", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "c01@example.com")
	assert.Contains(t, body, `href="/resources/clients"`)

	rec = s.do(t, http.MethodGet, "/resources/clients/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// Action Tests - SSE responses
// =============================================================================

func TestMore(t *testing.T) {
	s := setupTestServer(t, 30)
	s.do(t, http.MethodGet, "/resources/clients", nil)

	rec := s.do(t, http.MethodPost, "/resources/clients/more", nil)

	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "event:"))
	assert.Contains(t, body, "cell-clients-c29-email")
	assert.NotContains(t, body, "-sentinel", "all rows are loaded")

	c, _, err := s.handlers.Registry().Controller(context.Background(), sessionFrom(t, s), "clients")
	require.NoError(t, err)
	assert.Equal(t, 30, c.Table().Len())
}

func TestSort(t *testing.T) {
	s := setupTestServer(t, 30)
	s.do(t, http.MethodGet, "/resources/clients", nil)

	rec := s.do(t, http.MethodPost, "/resources/clients/sort/email", nil)
	body := rec.Body.String()
	assert.Contains(t, body, "▲")
	assert.Contains(t, body, "cell-clients-c00-email")

	rec = s.do(t, http.MethodPost, "/resources/clients/sort/email", nil)
	body = rec.Body.String()
	assert.Contains(t, body, "▼")
	assert.Contains(t, body, "cell-clients-c29-email")
	assert.NotContains(t, body, "cell-clients-c00-email")

	rec = s.do(t, http.MethodPost, "/resources/clients/sort/phone", nil)
	assert.Equal(t, 0, strings.Count(rec.Body.String(), "event:"), "phone is not sortable")
}

func TestSelection(t *testing.T) {
	s := setupTestServer(t, 3)
	s.do(t, http.MethodGet, "/resources/clients", nil)

	rec := s.do(t, http.MethodPost, "/resources/clients/rows/c01/select", nil)
	assert.Contains(t, rec.Body.String(), `data-selected="1"`)

	rec = s.do(t, http.MethodPost, "/resources/clients/select-all", nil)
	assert.Contains(t, rec.Body.String(), `data-selected="3"`)

	rec = s.do(t, http.MethodPost, "/resources/clients/select-all", nil)
	assert.Contains(t, rec.Body.String(), `data-selected="0"`)
}

func TestRowClick(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantOpen bool
	}{
		{name: "plain row click", query: "target=row&detail=1", wantOpen: true},
		{name: "no target defaults to row", query: "", wantOpen: true},
		{name: "checkbox", query: "target=checkbox&detail=1"},
		{name: "link", query: "target=link&detail=1"},
		{name: "editable cell", query: "target=cell&editable=true&detail=1"},
		{name: "double click", query: "target=row&detail=2"},
		{name: "text selection", query: "target=row&detail=1&sel=Ada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServer(t, 2)
			s.do(t, http.MethodGet, "/resources/clients", nil)

			rec := s.do(t, http.MethodPost, "/resources/clients/rows/c00/click?"+tt.query, nil)

			body := rec.Body.String()
			assert.Equal(t, tt.wantOpen, strings.Contains(body, "window.location.assign"))
			if tt.wantOpen {
				assert.Contains(t, body, "/resources/clients/c00")
			}
		})
	}
}

func TestCellAction_EditAndSave(t *testing.T) {
	s := setupTestServer(t, 2)
	s.do(t, http.MethodGet, "/resources/clients", nil)

	rec := s.do(t, http.MethodPost, "/resources/clients/cells/c00/email/edit", nil)
	body := rec.Body.String()
	assert.Contains(t, body, `type="email"`)
	assert.Contains(t, body, `value="c00@example.com"`)

	rec = s.do(t, http.MethodPost, "/resources/clients/cells/c00/email/save", url.Values{"value": {"new@example.com"}})
	body = rec.Body.String()
	assert.Contains(t, body, "new@example.com")
	assert.Contains(t, body, "Saved")
	assert.NotContains(t, body, `name="value"`, "editor is closed after save")

	row, err := s.fixture.Store.Get(context.Background(), "clients", "c00")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", row["email"])
}

func TestCellAction_Cancel(t *testing.T) {
	s := setupTestServer(t, 1)
	s.do(t, http.MethodGet, "/resources/clients", nil)

	s.do(t, http.MethodPost, "/resources/clients/cells/c00/email/edit", nil)
	rec := s.do(t, http.MethodPost, "/resources/clients/cells/c00/email/cancel", nil)
	assert.NotContains(t, rec.Body.String(), `name="value"`)

	// Blur on a persisted column discards the draft.
	s.do(t, http.MethodPost, "/resources/clients/cells/c00/email/edit", nil)
	s.do(t, http.MethodPost, "/resources/clients/cells/c00/email/blur", url.Values{"value": {"blurred@example.com"}})

	row, err := s.fixture.Store.Get(context.Background(), "clients", "c00")
	require.NoError(t, err)
	assert.Equal(t, "c00@example.com", row["email"])
}

func TestCellAction_InvalidOption(t *testing.T) {
	s := setupTestServer(t, 1)
	s.do(t, http.MethodGet, "/resources/clients", nil)

	rec := s.do(t, http.MethodPost, "/resources/clients/cells/c00/settings.plan/edit", nil)
	assert.Contains(t, rec.Body.String(), "<select")

	rec = s.do(t, http.MethodPost, "/resources/clients/cells/c00/settings.plan/save", url.Values{"value": {"gold"}})
	body := rec.Body.String()
	assert.Contains(t, body, "flash--error")
	assert.Contains(t, body, "Update failed")

	row, err := s.fixture.Store.Get(context.Background(), "clients", "c00")
	require.NoError(t, err)
	assert.Equal(t, "free", grid.Resolve(row, "settings.plan"))
}

func TestCellAction_Toggle(t *testing.T) {
	s := setupTestServer(t, 1)
	s.do(t, http.MethodGet, "/resources/clients", nil)

	rec := s.do(t, http.MethodPost, "/resources/clients/cells/c00/active/toggle", nil)
	assert.Contains(t, rec.Body.String(), "Saved")

	row, err := s.fixture.Store.Get(context.Background(), "clients", "c00")
	require.NoError(t, err)
	assert.Equal(t, false, row["active"])
}

func TestCellAction_Errors(t *testing.T) {
	s := setupTestServer(t, 1)
	s.do(t, http.MethodGet, "/resources/clients", nil)

	rec := s.do(t, http.MethodPost, "/resources/clients/cells/missing/email/edit", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/resources/clients/cells/c00/email/explode", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// Stream Tests - long-lived SSE endpoint
// =============================================================================

func TestStream_ReloadsOnForeignWrite(t *testing.T) {
	s := setupTestServer(t, 2)
	s.do(t, http.MethodGet, "/resources/clients", nil)

	req := httptest.NewRequest(http.MethodGet, "/resources/clients/stream", nil)
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	ctx, cancel := context.WithTimeout(req.Context(), 300*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.router.ServeHTTP(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	writeCtx := notifier.WithOrigin(context.Background(), "shell")
	require.NoError(t, s.fixture.Store.Update(writeCtx, "clients", "c01", map[string]any{"email": "changed@example.com"}))

	<-done

	body := rec.Body.String()
	assert.GreaterOrEqual(t, strings.Count(body, "event:"), 1)
	assert.Contains(t, body, "changed@example.com")
}

func TestStream_IgnoresOtherResources(t *testing.T) {
	s := setupTestServer(t, 1)

	req := httptest.NewRequest(http.MethodGet, "/resources/clients/stream", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 100*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.router.ServeHTTP(rec, req)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	s.fixture.Notifier.Broadcast(notifier.Change{Resource: "tickets"})
	<-done

	assert.Equal(t, 0, strings.Count(rec.Body.String(), "event:"))
}

func TestStream_UnknownResource(t *testing.T) {
	s := setupTestServer(t, 0)

	rec := s.do(t, http.MethodGet, "/resources/invoices/stream", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// sessionFrom decodes the session id from the server's cookie jar.
func sessionFrom(t *testing.T, s *testServer) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	sess, err := s.fixture.SessionStore.Get(req, sessionName)
	require.NoError(t, err)
	id, _ := sess.Values[sessionIDKey].(string)
	require.NotEmpty(t, id)
	return id
}
