// internal/types/models.go
package types

import (
	"time"
)

// HistoryEntry is one triage decision forwarded to the backend.
type HistoryEntry struct {
	ID      EntryID    `json:"id"`
	Session SessionKey `json:"session"`
	AssetID string     `json:"asset_id"`
	Action  string     `json:"action"`
	At      time.Time  `json:"at"`
}
