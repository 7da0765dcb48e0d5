// Package models defines the data types shared across GlobalHotKeys packages.
package models

import (
	"fmt"
	"time"
)

// KeyCode is a Windows virtual-key code.
type KeyCode uint32

// Modifiers is a bitmask of hotkey modifier flags.
type Modifiers uint32

// Modifier flags, matching the native MOD_* values.
const (
	ModAlt      Modifiers = 0x0001
	ModCtrl     Modifiers = 0x0002
	ModShift    Modifiers = 0x0004
	ModWin      Modifiers = 0x0008
	ModNoRepeat Modifiers = 0x4000
)

// HotKey is one active registration: a key combination bound to a numeric ID.
// Immutable once created; identity is ID.
type HotKey struct {
	ID        int
	Key       KeyCode
	Modifiers Modifiers
}

// String returns the combination in "ctrl+shift+m (id=3)" form.
func (h HotKey) String() string {
	return fmt.Sprintf("%s (id=%d)", FormatHotkey(h.Modifiers, h.Key), h.ID)
}

// Event is a fired-hotkey notification delivered to subscribers.
type Event struct {
	HotKey
	Time time.Time
}
