// Package ui provides the embedded web UI for the dashboard.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

// dist contains the built single-page client. The files are embedded from
// the dist/ directory, created by running the web client's build.
//
//go:embed dist/*
var dist embed.FS

// Handler returns an http.Handler that serves the embedded web UI.
// It handles SPA routing by falling back to index.html for non-asset routes.
func Handler() http.Handler {
	fsys, err := fs.Sub(dist, "dist")
	if err != nil {
		panic("failed to get dist subdirectory: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		filePath := strings.TrimPrefix(path, "/")
		if filePath == "" {
			filePath = "index.html"
		}

		if _, err := fs.Stat(fsys, filePath); err == nil {
			fileServer.ServeHTTP(w, r)
			return
		}

		// SPA routing: unknown non-asset paths render the client and let it
		// route.
		if !isAssetPath(path) {
			r.URL.Path = "/"
			fileServer.ServeHTTP(w, r)
			return
		}

		http.NotFound(w, r)
	})
}

// isAssetPath returns true if the path appears to be a static asset.
func isAssetPath(path string) bool {
	// Vite emits hashed assets under assets/
	if strings.HasPrefix(path, "/assets/") {
		return true
	}

	assetExtensions := []string{
		".js", ".css", ".json", ".map",
		".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico",
		".woff", ".woff2", ".ttf", ".eot",
		".pdf", ".xml", ".txt",
	}

	for _, ext := range assetExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	return false
}

// Available returns true if the embedded UI is available (has files).
func Available() bool {
	entries, err := dist.ReadDir("dist")
	if err != nil {
		return false
	}
	return len(entries) > 0
}
