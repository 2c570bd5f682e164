package httpapi

import (
	"net/http"
	"strconv"

	"github.com/nextlevelbuilder/cairnkernel/internal/store"
)

// DebugHandler serves the bounded debug-message ring (spec.md §4.K).
type DebugHandler struct {
	st *store.Store
}

// NewDebugHandler builds a DebugHandler.
func NewDebugHandler(st *store.Store) *DebugHandler {
	return &DebugHandler{st: st}
}

// RegisterRoutes registers the debug route on mux.
func (h *DebugHandler) RegisterRoutes(mux *http.ServeMux, auth func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /v1/debug", auth(h.handleList))
}

func (h *DebugHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	messages, err := h.st.GetDebugMessages(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}
