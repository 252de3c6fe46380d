// Package router sets up HTTP routes for the UI server.
package router

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/ifilter/ifadmin/internal/store"
	recordsFeature "github.com/ifilter/ifadmin/internal/ui/features/records"
	"github.com/ifilter/ifadmin/internal/ui/resources"
)

// SetupRoutes configures all routes for the UI server and returns the
// records handlers so the server can reset their sessions.
func SetupRoutes(router chi.Router, deps recordsFeature.Deps) (*recordsFeature.Handlers, error) {
	// Hot reload endpoint for dev mode
	if deps.IsDev {
		setupReload(router)
	}

	// Static assets
	router.Handle("/static/*", resources.Handler())

	if deps.Store != nil {
		router.Get("/healthz", healthHandler(deps.Store))
	}

	return recordsFeature.SetupRoutes(router, deps)
}

func setupReload(router chi.Router) {
	reloadChan := make(chan struct{}, 1)
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-reloadChan:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

// healthHandler reports whether the database answers and which schema
// version it is at.
func healthHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]any{"status": "ok"}
		code := http.StatusOK
		version, err := st.MigrationVersion(ctx)
		if err == nil {
			err = st.DB().PingContext(ctx)
		}
		if err != nil {
			status["status"] = "unavailable"
			status["error"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["schema_version"] = version
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
