// Package hotkeys provides system-wide hotkey registration for Windows.
//
// A dedicated worker goroutine, locked to one OS thread, owns the native
// message queue and the registration table. Callers talk to it through a
// synchronous request/reply protocol; fired hotkeys are broadcast to any
// number of subscribers.
package hotkeys

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fonaix/GlobalHotKeys/config"
	"github.com/fonaix/GlobalHotKeys/logger"
	"github.com/fonaix/GlobalHotKeys/models"
)

var (
	// ErrNoAvailableID means every ID in [0, MaxID] is in use.
	ErrNoAvailableID = errors.New("hotkeys: no hotkey ID available")
	// ErrNotRegistered means the ID has no active registration.
	ErrNotRegistered = errors.New("hotkeys: id not registered")
	// ErrClosed means the manager has been closed.
	ErrClosed = errors.New("hotkeys: manager closed")
)

// Manager is the application-facing facade over the hotkey worker.
type Manager struct {
	w         *worker
	closeOnce sync.Once
}

// New starts the hotkey worker and blocks until its native message queue is
// ready. A nil cfg uses the built-in defaults.
func New(cfg *config.HotkeysConfig) (*Manager, error) {
	return newManager(newBackend(), cfg)
}

func newManager(b backend, cfg *config.HotkeysConfig) (*Manager, error) {
	if cfg == nil {
		cfg = config.DefaultHotkeys()
	}

	w := newWorker(b, cfg)
	ready := make(chan error, 1)
	go w.run(ready)
	if err := <-ready; err != nil {
		return nil, fmt.Errorf("hotkeys: start worker: %w", err)
	}

	logger.Get().Debug("Hotkey manager started")
	return &Manager{w: w}, nil
}

// Register registers a global hotkey. The returned handle is always non-nil;
// on failure its ID is -1 and the error reports the cause: ErrNoAvailableID
// when the ID range is exhausted, the native error otherwise.
func (m *Manager) Register(key models.KeyCode, mods models.Modifiers) (*Registration, error) {
	resp, err := m.send(request{kind: reqRegister, key: key, mods: mods})
	if err == nil {
		err = resp.err
	}
	if err != nil {
		return &Registration{id: invalidID, mgr: m, released: true}, err
	}
	return &Registration{id: resp.id, key: key, mods: mods, mgr: m}, nil
}

// RegisterCombo registers a hotkey given in "ctrl+shift+m" form.
func (m *Manager) RegisterCombo(combo string) (*Registration, error) {
	mods, key, ok := models.ParseHotkey(combo)
	if !ok {
		return &Registration{id: invalidID, mgr: m, released: true},
			fmt.Errorf("hotkeys: cannot parse %q", combo)
	}
	return m.Register(key, mods)
}

// Subscribe attaches a subscriber to the fired-hotkey stream. buffer <= 0
// uses the configured default. Delivery is fire-and-forget: events are
// dropped for subscribers that fall behind, the worker never blocks.
func (m *Manager) Subscribe(buffer int) *Subscription {
	return m.w.events.subscribe(buffer)
}

// Recent returns up to n most recent fired events, oldest first.
func (m *Manager) Recent(n int) []models.Event {
	return m.w.history.GetLast(n)
}

// Close shuts the worker down, releasing every remaining registration, and
// waits for the worker to exit. No messages are in flight once it returns.
// Safe to call more than once; later calls are no-ops.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.w.quit)
		<-m.w.done
	})
	return nil
}

// send performs one synchronous round trip to the worker. The request
// channel is unbuffered, so once the worker accepts the request it is
// guaranteed to reply before it can observe a quit.
func (m *Manager) send(req request) (response, error) {
	req.reply = make(chan response, 1)
	select {
	case m.w.requests <- req:
	case <-m.w.done:
		return response{}, ErrClosed
	}
	return <-req.reply, nil
}

func (m *Manager) unregister(id int) error {
	resp, err := m.send(request{kind: reqUnregister, id: id})
	if err != nil {
		return err
	}
	return resp.err
}
