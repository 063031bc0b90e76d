package handler

import (
	"net/http"
	"strings"

	"filegate/internal/config"
	"filegate/internal/pkg/auth"
	"filegate/internal/pkg/httputils"

	"github.com/gorilla/mux"
)

// protectedPaths is the allow-list of paths that need a valid session
// cookie when auth is enabled.
var protectedPaths = map[string]bool{
	"/admin":           true,
	"/upload":          true,
	"/search":          true,
	"/create-category": true,
	"/delete-category": true,
	"/categories":      true,
	"/update-suffix":   true,
	"/update-remark":   true,
	"/change-category": true,
	"/delete":          true,
	"/delete-multiple": true,
}

// WithAuth guards the admin surface. Browser requests are redirected
// to /login; API callers get a 401 JSON envelope.
func WithAuth(cfg *config.Config) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.AuthEnabled || !protectedPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			if _, err := auth.CurrentUser(r, cfg.AuthSecret); err != nil {
				if wantsHTML(r) {
					http.Redirect(w, r, "/login", http.StatusFound)
					return
				}
				httputils.ResponseError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func wantsHTML(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html")
}
