package workermanager

import (
	"context"
	"fmt"
	"time"

	"github.com/nextlevelbuilder/cairnkernel/internal/bus"
	"github.com/nextlevelbuilder/cairnkernel/internal/store"
)

const monitorInterval = 500 * time.Millisecond // >=1Hz, per spec.md §5

// MonitorLoop drains child-process completions and reconciles task status,
// until ctx is cancelled. The Go shape of monitor_worker_processes's
// poll-every-second loop: where the original calls process.poll() itself,
// here each child's exit is pushed onto m.completions by its own waiter
// goroutine (process.go's waitForExit) and this loop just reconciles on a
// steady cadence.
func (m *Manager) MonitorLoop(ctx context.Context) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-m.completions:
			m.reconcile(c)
		case <-ticker.C:
			m.drainPending()
		}
	}
}

func (m *Manager) drainPending() {
	for {
		select {
		case c := <-m.completions:
			m.reconcile(c)
		default:
			return
		}
	}
}

// reconcile applies a child's exit outcome to its task row, but only if
// the row is still Running — the Open Question #1 resolution (DESIGN.md):
// a worker that has already transitioned its own row to Completed/Failed/
// SubtasksGenerated/SubtasksRunning before exiting is authoritative over
// its own terminal state, exactly as monitor_worker_processes's own
// "if task.get(agent_status) == Running" guard does.
func (m *Manager) reconcile(c completion) {
	m.mu.Lock()
	delete(m.processes, c.runID)
	m.mu.Unlock()

	handle, err := m.st.GetActiveTaskPersistent(c.runID)
	if err != nil {
		m.logger.Warn("workermanager: reconcile: task not found", "run_id", c.runID, "error", err)
		return
	}
	status, _ := handle.Get("status")
	if status != string(store.StatusRunning) {
		return
	}

	if c.exitCode == 0 {
		handle.Set("status", string(store.StatusCompleted))
		m.publish(bus.EventTaskCompleted, c.runID)
	} else {
		handle.Set("status", string(store.StatusFailed))
		handle.Set("error", fmt.Sprintf("worker exited with code %d", c.exitCode))
		m.publish(bus.EventTaskFailed, c.runID)
	}
	handle.Set("updated_at", store.NowStamp(time.Now()))
	handle.ForceFlush()

	m.logger.Info("workermanager: reconciled", "run_id", c.runID, "exit_code", c.exitCode)
}
