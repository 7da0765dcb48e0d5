//go:build !windows

package hotkeys

import "github.com/fonaix/GlobalHotKeys/models"

// stubBackend is the non-Windows backend: registrations are accepted and
// tracked so ID accounting behaves normally, but no hotkey ever fires.
type stubBackend struct {
	registered map[int]struct{}
}

func newBackend() backend {
	return &stubBackend{registered: make(map[int]struct{})}
}

func (b *stubBackend) open() error {
	return nil
}

func (b *stubBackend) register(id int, mods models.Modifiers, key models.KeyCode) error {
	b.registered[id] = struct{}{}
	return nil
}

func (b *stubBackend) unregister(id int) error {
	delete(b.registered, id)
	return nil
}

func (b *stubBackend) poll() (int, bool) {
	return 0, false
}

func (b *stubBackend) close() {}
