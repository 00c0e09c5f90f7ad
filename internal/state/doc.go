// Package state keeps the in-process review history used by undo.
package state

import "github.com/user/photosort/internal/types"

// Compile-time interface compliance check.
var _ types.HistoryStore = (*History)(nil)
