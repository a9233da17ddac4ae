// Package web serves the static analytics dashboard.
package web

import (
	"net/http"
	"os"
)

// DashboardHandler serves the dashboard HTML file at path. A missing file
// answers 404 so the API keeps working without the static assets.
func DashboardHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(path); err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		http.ServeFile(w, r, path)
	}
}
