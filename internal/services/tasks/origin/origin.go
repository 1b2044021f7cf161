// Package origin serves the embedded page shell and client assets. It plays
// the network behind the worker when no remote origin is configured.
package origin

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/louisbranch/offline-tasks/internal/services/tasks/origin/static"
)

// Assets lists the paths precached at install.
var Assets = []string{
	"/",
	"/main.css",
	"/main.js",
	"/components.js",
	"/app.webmanifest",
}

// Handler serves static assets; "/" and "/index.html" serve the page shell.
func Handler() http.Handler {
	return HandlerFS(static.FS)
}

// HandlerFS serves assets from fsys.
func HandlerFS(fsys fs.FS) http.Handler {
	files := http.FileServer(http.FS(fsys))
	return WithStaticMime(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path == "/" || r.URL.Path == "/index.html" {
			body, err := fs.ReadFile(fsys, "index.html")
			if err != nil {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			if r.Method == http.MethodGet {
				_, _ = w.Write(body)
			}
			return
		}
		files.ServeHTTP(w, r)
	}))
}

// WithStaticMime attaches explicit content-type hints for known static assets.
func WithStaticMime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch path := strings.ToLower(r.URL.Path); {
		case strings.HasSuffix(path, ".css"):
			w.Header().Set("Content-Type", "text/css")
		case strings.HasSuffix(path, ".js"):
			w.Header().Set("Content-Type", "application/javascript")
		case strings.HasSuffix(path, ".webmanifest"):
			w.Header().Set("Content-Type", "application/manifest+json")
		case strings.HasSuffix(path, ".svg"):
			w.Header().Set("Content-Type", "image/svg+xml")
		}
		next.ServeHTTP(w, r)
	})
}
