// Package web serves the built frontend as a single-page application (SPA).
//
// The frontend is read from a directory at runtime. When it has not been
// built the handler answers 404 for non-API routes.
package web

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

// SPAHandler returns an http.Handler that serves static files from fsys,
// and falls back to index.html for any path that doesn't match a file
// (SPA client-side routing).
func SPAHandler(fsys fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		if info, err := fs.Stat(fsys, path); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}

		if _, err := fs.Stat(fsys, "index.html"); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("web: failed to stat index.html", "error", err)
			}
			http.NotFound(w, r)
			return
		}

		// Not found: serve index.html for SPA routing.
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

// DirHandler serves the frontend in dir.
func DirHandler(dir string) http.Handler {
	if _, err := os.Stat(dir); err != nil {
		slog.Warn("Frontend directory unavailable, static routes will return 404", "dir", dir, "error", err)
	}
	return SPAHandler(os.DirFS(dir))
}
