package store

import (
	"sync"
	"time"
)

// SaveFunc persists the handle's full current state. It is supplied by the
// Store method that created the handle (one closure per active_task row,
// one per task_logs row) so the same LiveHandle type serves both tables.
type SaveFunc func(map[string]any) error

// LiveHandle is a mutable mapping view over a Store row that coalesces
// rapid writes into one flush after a short quiet period (spec.md §4.B).
// It is grounded directly on the PersistentDict class in
// original_source/cairn_utils/task_storage.py — the same debounce algebra,
// re-expressed with a sync.Mutex and a one-shot time.AfterFunc timer in
// place of Python's threading.RLock and threading.Timer.
type LiveHandle struct {
	mu               sync.Mutex
	data             map[string]any
	save             SaveFunc
	debounceInterval time.Duration
	lastSaveAt       time.Time
	pendingTimer     *time.Timer
	onSaveErr        func(error)
}

// NewLiveHandle constructs a handle over initial seeded with the row's
// current contents. debounceInterval defaults to 100ms, matching the
// original's default.
func NewLiveHandle(save SaveFunc, initial map[string]any, debounceInterval time.Duration) *LiveHandle {
	if debounceInterval <= 0 {
		debounceInterval = 100 * time.Millisecond
	}
	data := make(map[string]any, len(initial))
	for k, v := range initial {
		data[k] = v
	}
	return &LiveHandle{
		data:             data,
		save:             save,
		debounceInterval: debounceInterval,
	}
}

// OnSaveError registers a callback invoked when a scheduled flush's save
// callback returns an error. The original logs and swallows this (a failed
// auto-save must never crash the caller's mutation); callers here may wire
// it into slog.
func (h *LiveHandle) OnSaveError(fn func(error)) {
	h.mu.Lock()
	h.onSaveErr = fn
	h.mu.Unlock()
}

// Get returns the current value for key and whether it is present.
func (h *LiveHandle) Get(key string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.data[key]
	return v, ok
}

// Snapshot returns a shallow copy of the handle's current state.
func (h *LiveHandle) Snapshot() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]any, len(h.data))
	for k, v := range h.data {
		out[k] = v
	}
	return out
}

// Set assigns key=value and schedules a flush.
func (h *LiveHandle) Set(key string, value any) {
	h.mu.Lock()
	h.data[key] = value
	h.scheduleSaveLocked()
	h.mu.Unlock()
}

// Delete removes key (no-op if absent) and schedules a flush.
func (h *LiveHandle) Delete(key string) {
	h.mu.Lock()
	delete(h.data, key)
	h.scheduleSaveLocked()
	h.mu.Unlock()
}

// Update merges updates into the handle's state and schedules one flush.
func (h *LiveHandle) Update(updates map[string]any) {
	h.mu.Lock()
	for k, v := range updates {
		h.data[k] = v
	}
	h.scheduleSaveLocked()
	h.mu.Unlock()
}

// Pop removes and returns key's value, scheduling a flush.
func (h *LiveHandle) Pop(key string) (any, bool) {
	h.mu.Lock()
	v, ok := h.data[key]
	delete(h.data, key)
	h.scheduleSaveLocked()
	h.mu.Unlock()
	return v, ok
}

// Clear empties the handle and schedules a flush.
func (h *LiveHandle) Clear() {
	h.mu.Lock()
	h.data = make(map[string]any)
	h.scheduleSaveLocked()
	h.mu.Unlock()
}

// SetDefault returns key's existing value, or sets it to def (scheduling a
// flush) and returns def if key was absent.
func (h *LiveHandle) SetDefault(key string, def any) any {
	h.mu.Lock()
	defer h.mu.Unlock()
	if v, ok := h.data[key]; ok {
		return v
	}
	h.data[key] = def
	h.scheduleSaveLocked()
	return def
}

// scheduleSaveLocked mirrors PersistentDict._schedule_save: if the
// quiescent period since the last flush has already elapsed, flush
// synchronously now; otherwise coalesce into a single pending timer.
// Caller must hold h.mu.
func (h *LiveHandle) scheduleSaveLocked() {
	now := time.Now()
	if h.lastSaveAt.IsZero() || now.Sub(h.lastSaveAt) >= h.debounceInterval {
		h.saveLocked()
		return
	}
	if h.pendingTimer != nil {
		return // already coalesced, matches _pending_save guard
	}
	h.pendingTimer = time.AfterFunc(h.debounceInterval, h.delayedSave)
}

// delayedSave mirrors PersistentDict._delayed_save.
func (h *LiveHandle) delayedSave() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pendingTimer == nil {
		return
	}
	h.pendingTimer = nil
	h.saveLocked()
}

// saveLocked mirrors PersistentDict._save_to_db. Caller must hold h.mu.
func (h *LiveHandle) saveLocked() {
	snapshot := make(map[string]any, len(h.data))
	for k, v := range h.data {
		snapshot[k] = v
	}
	if err := h.save(snapshot); err != nil {
		if h.onSaveErr != nil {
			h.onSaveErr(err)
		}
		return
	}
	h.lastSaveAt = time.Now()
}

// ForceFlush performs an immediate synchronous flush, cancelling any
// pending delayed flush (spec.md §4.B).
func (h *LiveHandle) ForceFlush() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pendingTimer != nil {
		h.pendingTimer.Stop()
		h.pendingTimer = nil
	}
	h.saveLocked()
}
