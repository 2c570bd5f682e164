package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/cairnkernel/internal/store"
	"github.com/nextlevelbuilder/cairnkernel/internal/workermanager"
)

// createTaskRequest is the POST /v1/tasks body.
type createTaskRequest struct {
	AgentKind     string   `json:"agent_kind"`
	Description   string   `json:"description"`
	Owner         string   `json:"owner"`
	Repos         []string `json:"repos"`
	Branch        string   `json:"branch,omitempty"`
	ModelProvider string   `json:"model_provider,omitempty"`
	ModelName     string   `json:"model_name,omitempty"`
}

// TasksHandler serves the task CRUD + logs endpoints (spec.md §4.K).
type TasksHandler struct {
	st      *store.Store
	manager *workermanager.Manager
}

// NewTasksHandler builds a TasksHandler.
func NewTasksHandler(st *store.Store, manager *workermanager.Manager) *TasksHandler {
	return &TasksHandler{st: st, manager: manager}
}

// RegisterRoutes registers all task routes on mux, each wrapped by auth.
func (h *TasksHandler) RegisterRoutes(mux *http.ServeMux, auth func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /v1/tasks", auth(h.handleCreate))
	mux.HandleFunc("GET /v1/tasks", auth(h.handleList))
	mux.HandleFunc("GET /v1/tasks/{id}", auth(h.handleGet))
	mux.HandleFunc("DELETE /v1/tasks/{id}", auth(h.handleDelete))
	mux.HandleFunc("GET /v1/tasks/{id}/logs", auth(h.handleLogs))
}

func (h *TasksHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	kind, err := parseAgentKind(req.AgentKind)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Owner == "" || len(req.Repos) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "owner and repos are required"})
		return
	}

	task := &store.Task{
		RunID:         generateRunID(kind),
		AgentKind:     kind,
		Description:   req.Description,
		Owner:         req.Owner,
		Repos:         req.Repos,
		Branch:        req.Branch,
		ModelProvider: req.ModelProvider,
		ModelName:     req.ModelName,
	}

	created, err := h.manager.CreateTask(r.Context(), task)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *TasksHandler) handleList(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.st.GetAllActiveTasks()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (h *TasksHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	task, err := h.st.GetActiveTask(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TasksHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.manager.RemoveTask(r.Context(), id); err != nil {
		if err == store.ErrNotFound {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

func (h *TasksHandler) handleLogs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	logs, err := h.st.GetAllLogsForTask(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func parseAgentKind(raw string) (store.AgentKind, error) {
	switch store.AgentKind(raw) {
	case store.AgentKindPlanner, store.AgentKindManager, store.AgentKindEngineer:
		return store.AgentKind(raw), nil
	default:
		return "", errInvalidAgentKind(raw)
	}
}

type errInvalidAgentKind string

func (e errInvalidAgentKind) Error() string {
	return "agent_kind must be one of Planner, Manager, Engineer, got " + string(e)
}

// generateRunID mints a run id of the form "{kind}_{uuid}", lowercased,
// e.g. "engineer_3fa9...". The Sub-task Allocator (§4.H) pre-allocates
// ids for a Planner's children separately; this is only for top-level
// task submission.
func generateRunID(kind store.AgentKind) string {
	return strings.ToLower(string(kind)) + "_" + uuid.New().String()
}
