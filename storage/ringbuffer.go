// Package storage provides thread-safe storage for fired-hotkey history.
package storage

import (
	"sync"
	"time"

	"github.com/fonaix/GlobalHotKeys/models"
)

// RingBuffer is a thread-safe circular buffer of fired-hotkey events.
type RingBuffer struct {
	mu       sync.RWMutex
	data     []models.Event
	head     int // Index where the next element will be written
	count    int // Number of elements in the buffer
	capacity int
}

// NewRingBuffer creates a new RingBuffer with the specified capacity.
// The capacity determines how many fired events are retained.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 64
	}
	return &RingBuffer{
		data:     make([]models.Event, capacity),
		capacity: capacity,
	}
}

// Add appends an event to the buffer.
// If the buffer is full, the oldest entry is overwritten.
func (rb *RingBuffer) Add(evt models.Event) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.data[rb.head] = evt
	rb.head = (rb.head + 1) % rb.capacity
	if rb.count < rb.capacity {
		rb.count++
	}
}

// GetLast returns the last n events in chronological order.
// If n is greater than the number of stored events, all events are returned.
func (rb *RingBuffer) GetLast(n int) []models.Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if n <= 0 || rb.count == 0 {
		return nil
	}

	if n > rb.count {
		n = rb.count
	}

	result := make([]models.Event, n)

	// Starting index of the oldest of the n elements we want
	start := (rb.head - n + rb.capacity) % rb.capacity

	for i := 0; i < n; i++ {
		result[i] = rb.data[(start+i)%rb.capacity]
	}

	return result
}

// GetLatest returns the most recent event, if any.
func (rb *RingBuffer) GetLatest() (models.Event, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 {
		return models.Event{}, false
	}

	idx := (rb.head - 1 + rb.capacity) % rb.capacity
	return rb.data[idx], true
}

// GetAll returns all stored events in chronological order.
func (rb *RingBuffer) GetAll() []models.Event {
	rb.mu.RLock()
	n := rb.count
	rb.mu.RUnlock()
	return rb.GetLast(n)
}

// GetSince returns the events fired at or after t, in chronological order.
func (rb *RingBuffer) GetSince(t time.Time) []models.Event {
	all := rb.GetAll()
	for i, evt := range all {
		if !evt.Time.Before(t) {
			return all[i:]
		}
	}
	return nil
}

// Clear removes all entries from the buffer.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for i := range rb.data {
		rb.data[i] = models.Event{}
	}
	rb.head = 0
	rb.count = 0
}

// Size returns the number of elements currently in the buffer.
func (rb *RingBuffer) Size() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// Capacity returns the maximum capacity of the buffer.
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// IsFull returns true if the buffer has reached its capacity.
func (rb *RingBuffer) IsFull() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count == rb.capacity
}

// IsEmpty returns true if the buffer has no elements.
func (rb *RingBuffer) IsEmpty() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count == 0
}
