// internal/types/interfaces.go
package types

import (
	"time"
)

type HistoryStore interface {
	Record(session SessionKey, assetID, action string) HistoryEntry
	Last(session SessionKey) (HistoryEntry, bool)
	// Take removes and returns the newest entry matching assetID and action.
	Take(session SessionKey, assetID, action string) (HistoryEntry, bool)
	List(session SessionKey, limit int) []HistoryEntry
	Prune(olderThan time.Time) int
}
