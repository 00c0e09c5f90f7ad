// internal/types/ids.go
package types

import (
	"strings"

	"github.com/google/uuid"
)

// SessionKey identifies a reviewer: the web UI, or one Telegram chat.
type SessionKey string

// EntryID identifies one recorded triage decision.
type EntryID string

// WebSession is the key shared by every browser client.
const WebSession SessionKey = "web"

func NewEntryID() EntryID {
	return EntryID(uuid.New().String())
}

func NewSessionKey(parts ...string) SessionKey {
	return SessionKey(strings.Join(parts, ":"))
}
