package hotkeys

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fonaix/GlobalHotKeys/config"
	"github.com/fonaix/GlobalHotKeys/logger"
	"github.com/fonaix/GlobalHotKeys/models"
)

// Action is a callback invoked when a bound hotkey fires.
type Action func(models.Event)

type binding struct {
	name   string
	combo  string
	reg    *Registration
	action Action
}

// Binder maps named key combinations ("toggle" -> "ctrl+shift+o") to actions.
// It subscribes to the manager's event stream and dispatches each fired event
// to the bound action on its own goroutine.
type Binder struct {
	mgr *Manager
	log *logger.Logger

	mu     sync.Mutex
	byName map[string]*binding
	byID   map[int]*binding

	sub  *Subscription
	done chan struct{}
}

// NewBinder creates a binder attached to m and starts its dispatch loop.
func NewBinder(m *Manager) *Binder {
	b := &Binder{
		mgr:    m,
		log:    logger.Get(),
		byName: make(map[string]*binding),
		byID:   make(map[int]*binding),
		sub:    m.Subscribe(0),
		done:   make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *Binder) dispatch() {
	defer close(b.done)
	for evt := range b.sub.C {
		b.mu.Lock()
		var action Action
		if bd, ok := b.byID[evt.ID]; ok {
			action = bd.action
		}
		b.mu.Unlock()
		if action != nil {
			// Run the action off the dispatch loop so a slow action
			// cannot delay later events.
			go action(evt)
		}
	}
}

// Bind registers combo under name. An existing binding with the same name is
// released first.
func (b *Binder) Bind(name, combo string, action Action) error {
	if _, _, ok := models.ParseHotkey(combo); !ok {
		return fmt.Errorf("hotkeys: cannot parse %q", combo)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bindLocked(name, combo, action)
}

func (b *Binder) bindLocked(name, combo string, action Action) error {
	if old, exists := b.byName[name]; exists {
		if err := b.releaseLocked(old); err != nil {
			return err
		}
	}

	reg, err := b.mgr.RegisterCombo(combo)
	if err != nil {
		b.log.Warnf("Failed to bind %q to %s: %v", name, combo, err)
		return err
	}

	bd := &binding{name: name, combo: combo, reg: reg, action: action}
	b.byName[name] = bd
	b.byID[reg.ID()] = bd
	b.log.Infof("Bound %q to %s", name, combo)
	return nil
}

// Unbind releases the binding with the given name.
func (b *Binder) Unbind(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bd, ok := b.byName[name]
	if !ok {
		return fmt.Errorf("hotkeys: no binding named %q", name)
	}
	return b.releaseLocked(bd)
}

// Bound returns the combo currently bound under name, if any.
func (b *Binder) Bound(name string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bd, ok := b.byName[name]
	if !ok {
		return "", false
	}
	return bd.combo, true
}

func (b *Binder) releaseLocked(bd *binding) error {
	if err := bd.reg.Unregister(); err != nil {
		return err
	}
	delete(b.byName, bd.name)
	delete(b.byID, bd.reg.ID())
	return nil
}

// Apply reconciles the active bindings with a name -> combo map, typically
// sourced from configuration. Names missing from the map are unbound; names
// without an entry in actions are skipped; unchanged combos are left alone.
func (b *Binder) Apply(bindings map[string]string, actions map[string]Action) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error

	for name, bd := range b.byName {
		if _, keep := bindings[name]; !keep {
			if err := b.releaseLocked(bd); err != nil {
				errs = append(errs, fmt.Errorf("unbind %q: %w", name, err))
			}
		}
	}

	for name, combo := range bindings {
		action, ok := actions[name]
		if !ok {
			continue
		}
		if bd, exists := b.byName[name]; exists && bd.combo == combo {
			bd.action = action
			continue
		}
		if err := b.bindLocked(name, combo, action); err != nil {
			errs = append(errs, fmt.Errorf("bind %q: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// WatchConfig applies the bindings from the configuration manager now and
// re-applies them whenever the config file changes on disk.
func (b *Binder) WatchConfig(cm *config.Manager, actions map[string]Action) error {
	cm.Watch(func(cfg *config.Config) {
		if err := b.Apply(cfg.Bindings, actions); err != nil {
			b.log.Warnf("Rebind after config change: %v", err)
		}
	})

	cfg := cm.Get()
	if cfg == nil {
		return fmt.Errorf("hotkeys: configuration not loaded")
	}
	return b.Apply(cfg.Bindings, actions)
}

// Close releases every binding and detaches from the event stream.
func (b *Binder) Close() {
	b.mu.Lock()
	for _, bd := range b.byName {
		if err := bd.reg.Unregister(); err != nil {
			b.log.Warnf("Release binding %q: %v", bd.name, err)
		}
	}
	b.byName = make(map[string]*binding)
	b.byID = make(map[int]*binding)
	b.mu.Unlock()

	b.sub.Close()
	<-b.done
}
