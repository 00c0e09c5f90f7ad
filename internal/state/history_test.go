// internal/state/history_test.go
package state

import (
	"testing"
	"time"

	"github.com/user/photosort/internal/types"
)

func TestHistoryRecordAndLast(t *testing.T) {
	h := NewHistory(0)
	key := types.NewSessionKey("telegram", "1")

	if _, ok := h.Last(key); ok {
		t.Fatal("expected empty history")
	}

	h.Record(key, "a", "keep")
	second := h.Record(key, "b", "delete")

	last, ok := h.Last(key)
	if !ok {
		t.Fatal("expected an entry")
	}
	if last.ID != second.ID || last.AssetID != "b" || last.Action != "delete" {
		t.Errorf("unexpected last entry %+v", last)
	}

	if _, ok := h.Last(types.WebSession); ok {
		t.Error("sessions must be isolated")
	}
}

func TestHistoryTake(t *testing.T) {
	h := NewHistory(10)
	key := types.WebSession

	h.Record(key, "a", "fav")
	h.Record(key, "a", "archive")
	h.Record(key, "b", "delete")

	e, ok := h.Take(key, "a", "fav")
	if !ok || e.Action != "fav" {
		t.Fatalf("Take(fav) = %+v, %v", e, ok)
	}
	if _, ok := h.Take(key, "a", "fav"); ok {
		t.Error("entry should be removed after Take")
	}

	e, ok = h.Take(key, "a", "")
	if !ok || e.Action != "archive" {
		t.Fatalf("Take(any) = %+v, %v", e, ok)
	}

	if got := h.List(key, 0); len(got) != 1 || got[0].AssetID != "b" {
		t.Errorf("remaining = %+v", got)
	}
}

func TestHistoryListNewestFirst(t *testing.T) {
	h := NewHistory(10)
	key := types.WebSession
	for _, id := range []string{"a", "b", "c"} {
		h.Record(key, id, "keep")
	}

	got := h.List(key, 2)
	if len(got) != 2 || got[0].AssetID != "c" || got[1].AssetID != "b" {
		t.Errorf("List(2) = %+v", got)
	}
	if all := h.List(key, 0); len(all) != 3 {
		t.Errorf("List(0) returned %d entries", len(all))
	}
}

func TestHistoryBounded(t *testing.T) {
	h := NewHistory(3)
	key := types.WebSession
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		h.Record(key, id, "keep")
	}

	got := h.List(key, 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[2].AssetID != "c" {
		t.Errorf("oldest kept = %s, want c", got[2].AssetID)
	}
}

func TestHistoryPrune(t *testing.T) {
	h := NewHistory(10)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	h.now = func() time.Time { return clock }

	h.Record("web", "old", "keep")
	h.Record("telegram:1", "old2", "delete")
	clock = base.Add(2 * time.Hour)
	h.Record("web", "new", "keep")

	removed := h.Prune(base.Add(time.Hour))
	if removed != 2 {
		t.Errorf("removed %d, want 2", removed)
	}
	if got := h.List("web", 0); len(got) != 1 || got[0].AssetID != "new" {
		t.Errorf("web history = %+v", got)
	}
	if _, ok := h.Last("telegram:1"); ok {
		t.Error("expected empty telegram history")
	}
}
