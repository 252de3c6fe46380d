// Package records provides the resource grid pages of the UI.
package records

import (
	"errors"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures the home dashboard and the resource routes.
// The returned handlers expose the session registry to the server.
func SetupRoutes(router chi.Router, deps Deps) (*Handlers, error) {
	if deps.Catalog == nil || deps.Store == nil || deps.Notifier == nil || deps.SessionStore == nil {
		return nil, errors.New("records: catalog, store, notifier and session store are required")
	}
	handlers := NewHandlers(deps)

	router.Get("/", handlers.HomePage)
	router.Route("/resources/{resource}", func(r chi.Router) {
		r.Get("/", handlers.GridPage)
		r.Get("/stream", handlers.Stream)
		r.Post("/more", handlers.More)
		r.Post("/sort/{column}", handlers.Sort)
		r.Post("/select-all", handlers.SelectAll)
		r.Post("/rows/{row}/select", handlers.SelectRow)
		r.Post("/rows/{row}/click", handlers.RowClick)
		r.Post("/cells/{row}/{column}/{action}", handlers.CellAction)
		r.Get("/{row}", handlers.DetailPage)
	})

	return handlers, nil
}
