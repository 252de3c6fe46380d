// Package resources provides static asset handling for the UI server.
package resources

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// StaticDirectoryPath is the path to static assets from the project root.
const StaticDirectoryPath = "internal/ui/resources/static"

var loaders = map[string]api.Loader{
	".js":  api.LoaderJS,
	".css": api.LoaderCSS,
}

// Minify minifies one script or stylesheet. Other files are returned as is.
func Minify(name string, src []byte) ([]byte, error) {
	loader, ok := loaders[path.Ext(name)]
	if !ok {
		return src, nil
	}

	result := api.Transform(string(src), api.TransformOptions{
		Loader:            loader,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		Target:            api.ES2020,
		Sourcefile:        name,
		LogLevel:          api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			msgs = append(msgs, e.Text)
		}
		return nil, fmt.Errorf("minify %s: %s", name, strings.Join(msgs, "; "))
	}
	return result.Code, nil
}

// MinifyAll minifies every script and stylesheet at the top of fsys.
func MinifyAll(fsys fs.FS) (map[string][]byte, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := loaders[path.Ext(e.Name())]; !ok {
			continue
		}
		src, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, err
		}
		code, err := Minify(e.Name(), src)
		if err != nil {
			return nil, err
		}
		out[e.Name()] = code
	}
	return out, nil
}

// ContentType returns the MIME type served for a static file name.
func ContentType(name string) string {
	switch path.Ext(name) {
	case ".js":
		return "text/javascript; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
