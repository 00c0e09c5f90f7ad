// internal/types/models_test.go
package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestHistoryEntryJSON(t *testing.T) {
	entry := HistoryEntry{
		ID:      NewEntryID(),
		Session: NewSessionKey("telegram", "42"),
		AssetID: "asset-1",
		Action:  "delete",
		At:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"asset_id":"asset-1"`, `"session":"telegram:42"`, `"action":"delete"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in %s", key, data)
		}
	}
}
