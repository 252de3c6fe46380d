//go:build !dev

package resources

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"
)

//go:embed static/*
var staticFS embed.FS

var (
	minifyOnce sync.Once
	minified   map[string][]byte
)

// Handler returns an HTTP handler for serving static files.
// In production mode, files are embedded in the binary and scripts and
// stylesheets are minified once on first use.
func Handler() http.Handler {
	fsys, _ := fs.Sub(staticFS, "static")
	fileServer := http.FileServer(http.FS(fsys))
	started := time.Now()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		minifyOnce.Do(func() {
			var err error
			minified, err = MinifyAll(fsys)
			if err != nil {
				slog.Warn("static minify failed, serving sources", "error", err)
			}
		})

		// Cache embedded static assets for 1 year (they never change in prod)
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/static/")
		if body, ok := minified[name]; ok {
			w.Header().Set("Content-Type", ContentType(name))
			http.ServeContent(w, r, name, started, strings.NewReader(string(body)))
			return
		}
		http.StripPrefix("/static/", fileServer).ServeHTTP(w, r)
	})
}

// StaticPath returns the URL path for a static asset.
func StaticPath(path string) string {
	return "/static/" + path
}
