// internal/state/history.go
package state

import (
	"sync"
	"time"

	"github.com/user/photosort/internal/types"
)

// DefaultHistoryLimit bounds the entries kept per session.
const DefaultHistoryLimit = 50

// History is an in-memory, per-session log of triage decisions. Nothing is
// written to disk; a restart forgets it.
type History struct {
	mu       sync.Mutex
	limit    int
	now      func() time.Time
	sessions map[types.SessionKey][]types.HistoryEntry
}

// NewHistory creates a History keeping at most limit entries per session.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		limit:    limit,
		now:      time.Now,
		sessions: make(map[types.SessionKey][]types.HistoryEntry),
	}
}

// Record appends a decision, evicting the oldest entry when the session is full.
func (h *History) Record(session types.SessionKey, assetID, action string) types.HistoryEntry {
	entry := types.HistoryEntry{
		ID:      types.NewEntryID(),
		Session: session,
		AssetID: assetID,
		Action:  action,
		At:      h.now().UTC(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	entries := append(h.sessions[session], entry)
	if len(entries) > h.limit {
		entries = append([]types.HistoryEntry(nil), entries[len(entries)-h.limit:]...)
	}
	h.sessions[session] = entries
	return entry
}

// Last returns the newest entry of a session without removing it.
func (h *History) Last(session types.SessionKey) (types.HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries := h.sessions[session]
	if len(entries) == 0 {
		return types.HistoryEntry{}, false
	}
	return entries[len(entries)-1], true
}

// Take removes and returns the newest entry for assetID. An empty action
// matches any action.
func (h *History) Take(session types.SessionKey, assetID, action string) (types.HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries := h.sessions[session]
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.AssetID != assetID || (action != "" && e.Action != action) {
			continue
		}
		h.sessions[session] = append(entries[:i:i], entries[i+1:]...)
		if len(h.sessions[session]) == 0 {
			delete(h.sessions, session)
		}
		return e, true
	}
	return types.HistoryEntry{}, false
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (h *History) List(session types.SessionKey, limit int) []types.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries := h.sessions[session]
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	out := make([]types.HistoryEntry, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out
}

// Prune drops entries recorded before olderThan and reports how many went.
func (h *History) Prune(olderThan time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	removed := 0
	for session, entries := range h.sessions {
		kept := entries[:0]
		for _, e := range entries {
			if e.At.Before(olderThan) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(h.sessions, session)
			continue
		}
		h.sessions[session] = kept
	}
	return removed
}
