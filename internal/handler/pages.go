package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
)

// PageHandler serves the static upload, login and admin pages. The
// pages are plain HTML/JS glue over the JSON API.
type PageHandler struct {
	staticDir string
}

func NewPageHandler(staticDir string) *PageHandler {
	return &PageHandler{staticDir: staticDir}
}

func (h *PageHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.page("index.html")).Methods("GET")
	router.HandleFunc("/upload", h.page("index.html")).Methods("GET")
	router.HandleFunc("/login", h.page("login.html")).Methods("GET")
	router.HandleFunc("/admin", h.page("admin.html")).Methods("GET")
}

func (h *PageHandler) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(h.staticDir, name))
	}
}
