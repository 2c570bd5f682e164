package workermanager

import (
	"context"
	"sync"

	"github.com/nextlevelbuilder/cairnkernel/internal/bus"
)

// Cleanup terminates every running child (graceful SIGTERM, 5s grace,
// SIGKILL escalation) and waits for all of them, mirroring cleanup()'s
// shutdown sweep. Intended to run once, from a SIGINT/SIGTERM handler,
// before the parent process exits.
func (m *Manager) Cleanup(ctx context.Context) {
	m.mu.Lock()
	procs := make([]*runningProcess, 0, len(m.processes))
	for _, rp := range m.processes {
		procs = append(procs, rp)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, rp := range procs {
		wg.Add(1)
		go func(rp *runningProcess) {
			defer wg.Done()
			m.terminateAndWait(ctx, rp)
		}(rp)
	}
	wg.Wait()

	m.mu.Lock()
	m.processes = map[string]*runningProcess{}
	m.mu.Unlock()

	m.logger.Info("workermanager: cleanup complete")
}

// RemoveTask terminates runID's child if still running, then deletes its
// active_tasks row and progress logs — remove_task's terminate-then-purge
// behavior.
func (m *Manager) RemoveTask(ctx context.Context, runID string) error {
	m.mu.Lock()
	rp, running := m.processes[runID]
	delete(m.processes, runID)
	m.mu.Unlock()

	if running {
		m.terminateAndWait(ctx, rp)
	}

	if err := m.st.RemoveActiveTask(runID); err != nil {
		return err
	}
	if _, err := m.st.DB().ExecContext(ctx, `DELETE FROM task_logs WHERE task_id = ?`, runID); err != nil {
		return err
	}
	m.publish(bus.EventTaskRemoved, runID)
	return nil
}
