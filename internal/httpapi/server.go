// Package httpapi is the HTTP surface (spec.md §4.K): a minimal
// read/submit API over the Persistent Store and Worker Manager. Grounded
// on the teacher's internal/http/agents.go — a Go 1.22+ net/http
// ServeMux with method+path patterns, a handler-struct per resource, and
// an authMiddleware wrapper. No third-party router: this is the
// teacher's own HTTP stack choice, not the gin-based stack used
// elsewhere in the retrieval pack.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Handler serves the kernel's task/log/debug endpoints.
type Handler struct {
	tasks *TasksHandler
	debug *DebugHandler
	token string
}

// NewHandler builds the HTTP surface's top-level handler.
func NewHandler(tasks *TasksHandler, debug *DebugHandler, token string) *Handler {
	return &Handler{tasks: tasks, debug: debug, token: token}
}

// Mux builds the registered *http.ServeMux, the same BuildMux() shape the
// teacher hands to both its main listener and its optional Tailscale one.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	h.tasks.RegisterRoutes(mux, h.authMiddleware)
	h.debug.RegisterRoutes(mux, h.authMiddleware)
	return mux
}

func (h *Handler) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.token != "" && extractBearerToken(r) != h.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimPrefix(auth, prefix)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
