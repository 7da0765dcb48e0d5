package hotkeys

import (
	"sync"

	"github.com/fonaix/GlobalHotKeys/models"
)

// Subscription is one attached subscriber of the fired-hotkey stream.
// C is closed when the subscription or the manager is closed.
type Subscription struct {
	C <-chan models.Event

	b    *broker
	id   int
	once sync.Once
}

// Close detaches the subscription and closes C. Other subscribers are
// unaffected. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.b != nil {
			s.b.unsubscribe(s.id)
		}
	})
}

// broker fans fired events out to the current subscribers. Subscribing and
// unsubscribing are safe while the worker is publishing.
type broker struct {
	mu            sync.RWMutex
	subs          map[int]chan models.Event
	nextID        int
	defaultBuffer int
	closed        bool
}

func newBroker(defaultBuffer int) *broker {
	if defaultBuffer < 1 {
		defaultBuffer = 16
	}
	return &broker{
		subs:          make(map[int]chan models.Event),
		defaultBuffer: defaultBuffer,
	}
}

func (b *broker) subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = b.defaultBuffer
	}
	ch := make(chan models.Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return &Subscription{C: ch}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	return &Subscription{C: ch, b: b, id: id}
}

func (b *broker) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(ch)
}

// publish delivers evt to every subscriber whose buffer has room. It never
// blocks; slow subscribers miss events.
func (b *broker) publish(evt models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
