package hotkeys

import (
	"errors"
	"sync"

	"github.com/fonaix/GlobalHotKeys/models"
)

// Registration is the caller-held token for one allocated hotkey ID.
// Release it with Unregister when the hotkey is no longer needed.
type Registration struct {
	id   int
	key  models.KeyCode
	mods models.Modifiers
	mgr  *Manager

	mu       sync.Mutex
	released bool
}

// ID returns the allocated hotkey ID, or -1 if the registration failed.
func (r *Registration) ID() int { return r.id }

// OK reports whether the registration succeeded.
func (r *Registration) OK() bool { return r.id != invalidID }

// HotKey returns the registered combination.
func (r *Registration) HotKey() models.HotKey {
	return models.HotKey{ID: r.id, Key: r.key, Modifiers: r.mods}
}

// Unregister releases the hotkey. It is a no-op on a failed registration and
// on every call after the first successful release. On a native unregister
// failure the handle stays live, since the registration is still active.
func (r *Registration) Unregister() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return nil
	}

	if err := r.mgr.unregister(r.id); err != nil {
		if errors.Is(err, ErrClosed) {
			// Worker cleanup already released it.
			r.released = true
		}
		return err
	}

	r.released = true
	return nil
}
