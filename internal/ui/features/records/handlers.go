package records

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/ifilter/ifadmin/internal/catalog"
	"github.com/ifilter/ifadmin/internal/controller"
	"github.com/ifilter/ifadmin/internal/notifier"
	"github.com/ifilter/ifadmin/internal/store"
	"github.com/ifilter/ifadmin/internal/ui/features/common"
	"github.com/ifilter/ifadmin/pkg/grid"
)

const (
	sessionName  = "ifadmin"
	sessionIDKey = "sid"
)

// Deps are the collaborators of the records feature.
type Deps struct {
	Catalog      *catalog.Catalog
	Store        *store.Store
	SessionStore sessions.Store
	Notifier     *notifier.Notifier
	Formatter    *grid.Formatter
	Logger       *slog.Logger
	IsDev        bool
}

// Handlers provides HTTP handlers for resource grids.
type Handlers struct {
	deps      Deps
	registry  *Registry
	formatter grid.Formatter
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	formatter := grid.DefaultFormatter()
	if deps.Formatter != nil {
		formatter = *deps.Formatter
	}
	h := &Handlers{deps: deps, formatter: formatter, logger: logger}
	h.registry = NewRegistry(h.build)
	return h
}

// Registry returns the per-session controller registry.
func (h *Handlers) Registry() *Registry {
	return h.registry
}

func (h *Handlers) build(ctx context.Context, sessionID, name string) (*controller.Controller, error) {
	res, err := h.deps.Catalog.Get(name)
	if err != nil {
		return nil, err
	}
	logger := h.logger.With("session", sessionID)
	c, err := controller.New(res, h.deps.Store, controller.Options{
		Formatter: &h.formatter,
		Logger:    logger,
		OnRowClick: func(row grid.Row) {
			logger.Debug("row opened", "resource", name, "row", row.ID())
		},
	})
	if err != nil {
		return nil, err
	}
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// sessionID returns the browser session id, issuing a cookie on first
// contact. It must run before any SSE output is written.
func (h *Handlers) sessionID(w http.ResponseWriter, r *http.Request) string {
	sess, err := h.deps.SessionStore.Get(r, sessionName)
	if err != nil {
		h.logger.Debug("session cookie rejected", "error", err)
	}
	if id, ok := sess.Values[sessionIDKey].(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	sess.Values[sessionIDKey] = id
	if err := sess.Save(r, w); err != nil {
		h.logger.Warn("failed to save session", "error", err)
	}
	return id
}

// urlParam returns a decoded chi path parameter.
func urlParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

type request struct {
	ctx       context.Context
	sessionID string
	resource  string
	ctrl      *controller.Controller
	created   bool
}

// open resolves the session controller of the request's resource. Errors
// are written as plain HTTP responses, so it must run before NewSSE.
func (h *Handlers) open(w http.ResponseWriter, r *http.Request) (request, bool) {
	sid := h.sessionID(w, r)
	name := urlParam(r, "resource")
	ctx := notifier.WithOrigin(r.Context(), sid)

	c, created, err := h.registry.Controller(ctx, sid, name)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrUnknownResource) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return request{}, false
	}
	return request{ctx: ctx, sessionID: sid, resource: name, ctrl: c, created: created}, true
}

func (h *Handlers) shell(title, current, path string) common.ShellData {
	names := h.deps.Catalog.Names()
	titles := make(map[string]string, len(names))
	for _, name := range names {
		if res, err := h.deps.Catalog.Get(name); err == nil {
			titles[name] = res.Title
		}
	}
	return common.ShellData{
		Title:       title,
		Nav:         common.Nav(names, titles, current),
		CurrentPath: path,
		IsDev:       h.deps.IsDev,
	}
}

// HomePage renders the resource dashboard.
func (h *Handlers) HomePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var cards []HomeCard
	for _, name := range h.deps.Catalog.Names() {
		res, err := h.deps.Catalog.Get(name)
		if err != nil {
			continue
		}
		card := HomeCard{Title: res.Title, Href: resourceURL(name)}
		n, err := h.deps.Store.Count(ctx, name)
		if err != nil {
			h.logger.Error("count failed", "resource", name, "error", err)
			card.Error = "unavailable"
		}
		card.Count = n
		cards = append(cards, card)
	}

	if err := common.Page(h.shell("Dashboard", "", r.URL.Path), homePage(cards)).Render(ctx, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GridPage renders a resource grid with its first page of rows.
func (h *Handlers) GridPage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.open(w, r)
	if !ok {
		return
	}
	// A navigation starts over from the first page.
	if !req.created {
		if err := req.ctrl.Load(req.ctx); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	view := buildGrid(req.ctrl, h.logger)
	page := common.Page(h.shell(view.Title, req.resource, r.URL.Path), gridPage(view))
	if err := page.Render(req.ctx, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Stream is the long-lived SSE endpoint of a grid page. It re-renders the
// grid whenever the resource changes; writes by other sessions refetch the
// loaded rows first.
func (h *Handlers) Stream(w http.ResponseWriter, r *http.Request) {
	sid := h.sessionID(w, r)
	name := urlParam(r, "resource")
	if _, err := h.deps.Catalog.Get(name); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	sse := datastar.NewSSE(w, r)

	updates := h.deps.Notifier.Subscribe(name)
	defer h.deps.Notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-updates:
			if !ok {
				return
			}
			if err := h.refresh(ctx, sid, name, change, sse); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

func (h *Handlers) refresh(ctx context.Context, sid, name string, change notifier.Change, sse *datastar.ServerSentEventGenerator) error {
	c, created, err := h.registry.Controller(ctx, sid, name)
	if err != nil {
		return err
	}
	if !created && change.Origin != sid {
		if err := c.Reload(ctx); err != nil {
			return err
		}
	}
	return sse.PatchElementTempl(gridComponent(buildGrid(c, h.logger)))
}

func (h *Handlers) patchGrid(sse *datastar.ServerSentEventGenerator, c *controller.Controller) {
	if err := sse.PatchElementTempl(gridComponent(buildGrid(c, h.logger))); err != nil {
		_ = sse.ConsoleError(err)
	}
}

func (h *Handlers) flash(sse *datastar.ServerSentEventGenerator, message string, isError bool) {
	if err := sse.PatchElementTempl(common.Flash(message, isError)); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// More answers the scroll sentinel with the next page.
func (h *Handlers) More(w http.ResponseWriter, r *http.Request) {
	req, ok := h.open(w, r)
	if !ok {
		return
	}
	sse := datastar.NewSSE(w, r)
	req.ctrl.LoadMore(req.ctx)
	h.patchGrid(sse, req.ctrl)
}

// Sort handles a header click.
func (h *Handlers) Sort(w http.ResponseWriter, r *http.Request) {
	req, ok := h.open(w, r)
	if !ok {
		return
	}
	column := urlParam(r, "column")
	sse := datastar.NewSSE(w, r)

	sorted, err := req.ctrl.Sort(req.ctx, column)
	if err != nil {
		h.logger.Error("sort failed", "resource", req.resource, "column", column, "error", err)
		h.flash(sse, "Sorting failed: "+err.Error(), true)
	}
	if sorted {
		h.patchGrid(sse, req.ctrl)
	}
}

// SelectAll toggles the header checkbox.
func (h *Handlers) SelectAll(w http.ResponseWriter, r *http.Request) {
	req, ok := h.open(w, r)
	if !ok {
		return
	}
	sse := datastar.NewSSE(w, r)
	req.ctrl.Table().ToggleAll()
	h.patchGrid(sse, req.ctrl)
}

// SelectRow toggles one row checkbox.
func (h *Handlers) SelectRow(w http.ResponseWriter, r *http.Request) {
	req, ok := h.open(w, r)
	if !ok {
		return
	}
	rowID := urlParam(r, "row")
	sse := datastar.NewSSE(w, r)
	if err := req.ctrl.Table().ToggleRow(rowID); err != nil {
		h.flash(sse, err.Error(), true)
	}
	h.patchGrid(sse, req.ctrl)
}

// RowClick opens the detail page when the click qualifies as a row click.
// The browser reports where the click landed in the query string.
func (h *Handlers) RowClick(w http.ResponseWriter, r *http.Request) {
	req, ok := h.open(w, r)
	if !ok {
		return
	}
	rowID := urlParam(r, "row")
	q := r.URL.Query()
	detail, _ := strconv.Atoi(q.Get("detail"))
	editable, _ := strconv.ParseBool(q.Get("editable"))
	ev := grid.ClickEvent{
		RowID:          rowID,
		Target:         grid.ClickTarget(q.Get("target")),
		InEditableCell: editable,
		Detail:         detail,
		SelectedText:   q.Get("sel"),
	}
	if ev.Target == "" {
		ev.Target = grid.TargetRow
	}

	sse := datastar.NewSSE(w, r)
	if !req.ctrl.Table().RowClick(ev) {
		return
	}
	target := resourceURL(req.resource) + "/" + common.PathEscape(rowID)
	if err := sse.ExecuteScript("window.location.assign(" + strconv.Quote(target) + ")"); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// CellAction drives a cell editor: edit, save, cancel, blur or toggle.
func (h *Handlers) CellAction(w http.ResponseWriter, r *http.Request) {
	req, ok := h.open(w, r)
	if !ok {
		return
	}
	rowID, colID, action := urlParam(r, "row"), urlParam(r, "column"), urlParam(r, "action")
	cell, err := req.ctrl.Table().Cell(rowID, colID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	value := r.FormValue("value")
	_, hasValue := r.Form["value"]

	outcome := grid.OutcomeNotEditing
	switch action {
	case "edit":
		cell.Click()
	case "save":
		if hasValue {
			cell.SetDraft(value)
		}
		outcome = cell.Save(req.ctx)
	case "cancel":
		cell.Cancel()
	case "blur":
		if hasValue {
			cell.SetDraft(value)
		}
		outcome = cell.Blur(req.ctx)
	case "toggle":
		outcome = cell.Toggle(req.ctx)
	default:
		http.Error(w, "unknown cell action "+action, http.StatusNotFound)
		return
	}

	sse := datastar.NewSSE(w, r)
	view := buildCell(req.ctrl.Resource(), cell, req.ctrl.Table().Formatter(), h.logger)
	if err := sse.PatchElementTempl(cellComponent(view)); err != nil {
		_ = sse.ConsoleError(err)
	}

	switch outcome {
	case grid.OutcomeFailed:
		msg := "Update failed"
		if err := req.ctrl.LastUpdate().Err; err != nil {
			msg += ": " + err.Error()
		}
		h.flash(sse, msg, true)
	case grid.OutcomeSaved:
		h.flash(sse, "Saved", false)
	case grid.OutcomeBusy:
		h.flash(sse, "Still saving the previous change", true)
	}
}

// DetailPage renders one record.
func (h *Handlers) DetailPage(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "resource")
	rowID := urlParam(r, "row")
	res, err := h.deps.Catalog.Get(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	row, err := h.deps.Store.Get(r.Context(), name, rowID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	view := buildDetail(res, row, h.formatter, h.logger)
	if err := common.Page(h.shell(res.Title, name, r.URL.Path), detailPage(view)).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
