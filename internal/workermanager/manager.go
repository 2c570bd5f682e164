// Package workermanager implements the Worker Manager (spec.md §4.C): it
// owns task creation, spawns one child OS process per task into its own
// process group, supervises them via a poll loop, and tears them down on
// shutdown or explicit removal. Grounded on
// original_source/interactive_worker_manager.py's WorkerManager
// (create_task_sync/run_worker_process/monitor_worker_processes/cleanup/
// remove_task), reshaped around os/exec + the Store/LiveHandle/bus stack
// already used elsewhere in this kernel.
package workermanager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nextlevelbuilder/cairnkernel/internal/bus"
	"github.com/nextlevelbuilder/cairnkernel/internal/store"
)

// Manager supervises the active_tasks table's child processes.
type Manager struct {
	st         *store.Store
	publisher  bus.EventPublisher
	logger     *slog.Logger
	workerExe  string   // path to this binary (or a test double)
	workerArgs []string // argv prefix before the run_id, e.g. {"worker"}
	logDir     string

	mu         sync.Mutex
	processes  map[string]*runningProcess
	completions chan completion
}

// New builds a Manager. workerExe+workerArgs form the child command line:
// exec.Command(workerExe, append(workerArgs, runID)...) — spec.md §6's
// "<python-equivalent> -m agent_worker <run_id>" becomes this kernel's own
// "<binary> worker <run_id>".
func New(st *store.Store, publisher bus.EventPublisher, workerExe string, workerArgs []string, logDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		st:          st,
		publisher:   publisher,
		logger:      logger,
		workerExe:   workerExe,
		workerArgs:  workerArgs,
		logDir:      logDir,
		processes:   map[string]*runningProcess{},
		completions: make(chan completion, 64),
	}
}

// CreateTask persists task as Queued, then spawns its child process. On a
// spawn failure the task is left recorded with status Failed rather than
// returning it half-created, mirroring create_task_sync's tolerant error
// path (it keeps the row and just marks it failed).
func (m *Manager) CreateTask(ctx context.Context, task *store.Task) (*store.Task, error) {
	task.Status = store.StatusQueued
	if err := m.st.AddActiveTask(task); err != nil {
		return nil, fmt.Errorf("workermanager: create task: %w", err)
	}
	m.publish(bus.EventTaskCreated, task.RunID)

	if err := m.SpawnChild(ctx, task.RunID); err != nil {
		m.logger.Error("workermanager: spawn failed", "run_id", task.RunID, "error", err)
		if handle, hErr := m.st.GetActiveTaskPersistent(task.RunID); hErr == nil {
			handle.Set("status", string(store.StatusFailed))
			handle.Set("error", err.Error())
			handle.Set("updated_at", store.NowStamp(time.Now()))
			handle.ForceFlush()
		}
		m.publish(bus.EventTaskFailed, task.RunID)
		return task, nil
	}
	return task, nil
}

func (m *Manager) publish(name, runID string) {
	if m.publisher == nil {
		return
	}
	m.publisher.Broadcast(bus.Event{Name: name, Payload: map[string]string{"run_id": runID}})
}
