package hotkeys

import (
	"fmt"
	"runtime"
	"time"

	"github.com/fonaix/GlobalHotKeys/config"
	"github.com/fonaix/GlobalHotKeys/logger"
	"github.com/fonaix/GlobalHotKeys/models"
	"github.com/fonaix/GlobalHotKeys/storage"
)

// MaxID is the highest hotkey ID the native API accepts for applications.
const MaxID = 0xBFFF

// invalidID marks a registration that never succeeded.
const invalidID = -1

// backend is the native layer the worker drives. All methods are called from
// the worker thread only.
type backend interface {
	// open prepares the native message queue. Called once, on the worker
	// thread, before any registration.
	open() error
	register(id int, mods models.Modifiers, key models.KeyCode) error
	unregister(id int) error
	// poll drains one pass of the native message queue and reports a fired
	// hotkey ID, if any. Non-hotkey messages get default handling.
	poll() (int, bool)
	close()
}

type requestKind int

const (
	reqRegister requestKind = iota
	reqUnregister
)

// request is a cross-thread call into the worker. reply is buffered with
// capacity 1 and receives exactly one response per accepted request.
type request struct {
	kind  requestKind
	key   models.KeyCode
	mods  models.Modifiers
	id    int
	reply chan response
}

type response struct {
	id  int
	err error
}

// worker owns the registration table, the native backend and the event loop.
// All mutable hotkey state lives here and is touched only by the worker
// goroutine, so the table needs no lock.
type worker struct {
	backend      backend
	table        map[int]models.HotKey
	maxID        int
	pollInterval time.Duration

	requests chan request
	quit     chan struct{}
	done     chan struct{}

	events  *broker
	history *storage.RingBuffer
	log     *logger.Logger
}

func newWorker(b backend, cfg *config.HotkeysConfig) *worker {
	return &worker{
		backend:      b,
		table:        make(map[int]models.HotKey),
		maxID:        MaxID,
		pollInterval: cfg.PollInterval,
		requests:     make(chan request),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		events:       newBroker(cfg.EventBuffer),
		history:      storage.NewRingBuffer(cfg.HistorySize),
		log:          logger.Get(),
	}
}

// run is the worker loop.
// IMPORTANT: hotkey registration and message processing MUST happen on the
// same OS thread, so the whole loop is thread-locked.
func (w *worker) run(ready chan<- error) {
	defer close(w.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := w.backend.open(); err != nil {
		ready <- err
		return
	}
	ready <- nil

	for {
		select {
		case <-w.quit:
			w.cleanup()
			return
		case req := <-w.requests:
			req.reply <- w.handle(req)
		default:
			if id, ok := w.backend.poll(); ok {
				w.fired(id)
			} else {
				time.Sleep(w.pollInterval)
			}
		}
	}
}

func (w *worker) handle(req request) response {
	switch req.kind {
	case reqRegister:
		return w.register(req.key, req.mods)
	case reqUnregister:
		return w.unregister(req.id)
	}
	return response{id: invalidID, err: fmt.Errorf("hotkeys: unknown request kind %d", req.kind)}
}

// register allocates the lowest free ID and registers the combination with
// the native layer. The table is only mutated after the native call succeeds.
func (w *worker) register(key models.KeyCode, mods models.Modifiers) response {
	id, ok := w.freeID()
	if !ok {
		w.log.Warnf("Hotkey ID range exhausted, cannot register %s",
			models.FormatHotkey(mods, key))
		return response{id: invalidID, err: ErrNoAvailableID}
	}

	if err := w.backend.register(id, mods, key); err != nil {
		w.log.Errorf("RegisterHotKey failed for %s: %v",
			models.FormatHotkey(mods, key), err)
		return response{id: invalidID, err: err}
	}

	hk := models.HotKey{ID: id, Key: key, Modifiers: mods}
	w.table[id] = hk
	w.log.Infof("Registered hotkey: %s", hk)
	return response{id: id}
}

// freeID returns the lowest ID absent from the table.
func (w *worker) freeID() (int, bool) {
	for id := 0; id <= w.maxID; id++ {
		if _, used := w.table[id]; !used {
			return id, true
		}
	}
	return invalidID, false
}

// unregister releases one registration. On native failure the table entry
// stays, since the registration is still active.
func (w *worker) unregister(id int) response {
	hk, ok := w.table[id]
	if !ok {
		return response{id: invalidID, err: ErrNotRegistered}
	}

	if err := w.backend.unregister(id); err != nil {
		w.log.Errorf("UnregisterHotKey failed for %s: %v", hk, err)
		return response{id: invalidID, err: err}
	}

	delete(w.table, id)
	w.log.Infof("Unregistered hotkey: %s", hk)
	return response{id: id}
}

// fired publishes a hotkey press to the history buffer and all subscribers.
// An unknown ID means the press raced with an unregister; it is dropped.
func (w *worker) fired(id int) {
	hk, ok := w.table[id]
	if !ok {
		w.log.Debugf("Dropping press for unknown hotkey ID %d", id)
		return
	}

	evt := models.Event{HotKey: hk, Time: time.Now()}
	w.history.Add(evt)
	w.events.publish(evt)
}

// cleanup releases every remaining registration and the native resources.
// Unregister failures are only logged; the thread is going away regardless.
func (w *worker) cleanup() {
	for id, hk := range w.table {
		if err := w.backend.unregister(id); err != nil {
			w.log.Warnf("Cleanup unregister failed for %s: %v", hk, err)
		}
		delete(w.table, id)
	}
	w.backend.close()
	w.events.close()
	w.log.Debug("Hotkey worker stopped")
}
