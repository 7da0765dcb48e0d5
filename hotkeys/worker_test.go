package hotkeys

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fonaix/GlobalHotKeys/config"
	"github.com/fonaix/GlobalHotKeys/models"
)

// fakeBackend stands in for the native layer. register/unregister/poll are
// only ever called from the worker goroutine; tests inject presses through
// the fired channel and inspect state under the mutex.
type fakeBackend struct {
	mu            sync.Mutex
	registered    map[int]models.HotKey
	unregistered  []int
	registerErr   error
	unregisterErr error
	openErr       error
	closed        bool

	fired chan int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		registered: make(map[int]models.HotKey),
		fired:      make(chan int, 16),
	}
}

func (b *fakeBackend) open() error {
	return b.openErr
}

func (b *fakeBackend) register(id int, mods models.Modifiers, key models.KeyCode) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.registerErr != nil {
		return b.registerErr
	}
	b.registered[id] = models.HotKey{ID: id, Key: key, Modifiers: mods}
	return nil
}

func (b *fakeBackend) unregister(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unregisterErr != nil {
		return b.unregisterErr
	}
	delete(b.registered, id)
	b.unregistered = append(b.unregistered, id)
	return nil
}

func (b *fakeBackend) poll() (int, bool) {
	select {
	case id := <-b.fired:
		return id, true
	default:
		return 0, false
	}
}

func (b *fakeBackend) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

func (b *fakeBackend) fire(id int) {
	b.fired <- id
}

func (b *fakeBackend) setRegisterErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registerErr = err
}

func (b *fakeBackend) setUnregisterErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unregisterErr = err
}

func (b *fakeBackend) activeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.registered)
}

func (b *fakeBackend) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func testConfig() *config.HotkeysConfig {
	cfg := config.DefaultHotkeys()
	cfg.PollInterval = time.Millisecond
	return cfg
}

func newTestManager(t *testing.T) (*Manager, *fakeBackend) {
	t.Helper()
	fake := newFakeBackend()
	m, err := newManager(fake, testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, fake
}

func TestRegisterSequentialIDs(t *testing.T) {
	m, _ := newTestManager(t)

	a, err := m.Register(0x41, models.ModCtrl)
	require.NoError(t, err)
	require.True(t, a.OK())
	require.Equal(t, 0, a.ID())

	b, err := m.Register(0x42, models.ModCtrl)
	require.NoError(t, err)
	require.Equal(t, 1, b.ID())
}

func TestLowestIDReuse(t *testing.T) {
	m, _ := newTestManager(t)

	a, err := m.Register(0x41, models.ModCtrl)
	require.NoError(t, err)
	require.Equal(t, 0, a.ID())

	b, err := m.Register(0x42, models.ModCtrl)
	require.NoError(t, err)
	require.Equal(t, 1, b.ID())

	require.NoError(t, a.Unregister())

	c, err := m.Register(0x43, models.ModCtrl)
	require.NoError(t, err)
	require.Equal(t, 0, c.ID())
}

func TestIDExhaustion(t *testing.T) {
	fake := newFakeBackend()
	w := newWorker(fake, testConfig())
	w.maxID = 1 // two IDs only

	ready := make(chan error, 1)
	go w.run(ready)
	require.NoError(t, <-ready)
	m := &Manager{w: w}
	t.Cleanup(func() { _ = m.Close() })

	for i := 0; i < 2; i++ {
		reg, err := m.Register(0x41, models.ModCtrl)
		require.NoError(t, err)
		require.Equal(t, i, reg.ID())
	}

	reg, err := m.Register(0x42, models.ModCtrl)
	require.ErrorIs(t, err, ErrNoAvailableID)
	require.False(t, reg.OK())
	require.Equal(t, -1, reg.ID())
	require.Equal(t, 2, fake.activeCount())
}

func TestRegisterNativeFailure(t *testing.T) {
	m, fake := newTestManager(t)

	nativeErr := errors.New("hotkey already in use")
	fake.setRegisterErr(nativeErr)

	reg, err := m.Register(0x41, models.ModCtrl)
	require.ErrorIs(t, err, nativeErr)
	require.NotErrorIs(t, err, ErrNoAvailableID)
	require.False(t, reg.OK())
	require.Equal(t, -1, reg.ID())

	// The failed attempt must not have consumed ID 0.
	fake.setRegisterErr(nil)
	reg, err = m.Register(0x41, models.ModCtrl)
	require.NoError(t, err)
	require.Equal(t, 0, reg.ID())
}

func TestUnregisterUnknownID(t *testing.T) {
	m, fake := newTestManager(t)

	reg, err := m.Register(0x41, models.ModCtrl)
	require.NoError(t, err)

	require.ErrorIs(t, m.unregister(42), ErrNotRegistered)

	// The existing registration is untouched.
	require.Equal(t, 1, fake.activeCount())
	require.NoError(t, reg.Unregister())
	require.Equal(t, 0, fake.activeCount())
}

func TestUnregisterNativeFailureKeepsEntry(t *testing.T) {
	m, fake := newTestManager(t)

	reg, err := m.Register(0x41, models.ModCtrl)
	require.NoError(t, err)

	nativeErr := errors.New("unregister refused")
	fake.setUnregisterErr(nativeErr)
	require.ErrorIs(t, reg.Unregister(), nativeErr)

	// Entry stayed in the table, so a retry can still release it.
	fake.setUnregisterErr(nil)
	require.NoError(t, reg.Unregister())

	// The ID is free again.
	next, err := m.Register(0x42, models.ModCtrl)
	require.NoError(t, err)
	require.Equal(t, 0, next.ID())
}

func TestFiredEventDelivered(t *testing.T) {
	m, fake := newTestManager(t)

	reg, err := m.Register(0x4D, models.ModCtrl|models.ModShift)
	require.NoError(t, err)

	sub := m.Subscribe(4)
	defer sub.Close()

	fake.fire(reg.ID())

	select {
	case evt := <-sub.C:
		require.Equal(t, reg.ID(), evt.ID)
		require.Equal(t, models.KeyCode(0x4D), evt.Key)
		require.Equal(t, models.ModCtrl|models.ModShift, evt.Modifiers)
		require.False(t, evt.Time.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fired event")
	}
}

func TestFiredUnknownIDDropped(t *testing.T) {
	m, fake := newTestManager(t)

	reg, err := m.Register(0x41, models.ModCtrl)
	require.NoError(t, err)

	sub := m.Subscribe(4)
	defer sub.Close()

	// The unknown ID is polled before the known one; the worker must drop
	// it silently and publish only the second press.
	fake.fire(99)
	fake.fire(reg.ID())

	select {
	case evt := <-sub.C:
		require.Equal(t, reg.ID(), evt.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fired event")
	}

	recent := m.Recent(10)
	require.Len(t, recent, 1)
	require.Equal(t, reg.ID(), recent[0].ID)
}

func TestCloseReleasesRegistrations(t *testing.T) {
	fake := newFakeBackend()
	m, err := newManager(fake, testConfig())
	require.NoError(t, err)

	_, err = m.Register(0x41, models.ModCtrl)
	require.NoError(t, err)
	_, err = m.Register(0x42, models.ModCtrl)
	require.NoError(t, err)
	require.Equal(t, 2, fake.activeCount())

	require.NoError(t, m.Close())

	require.Equal(t, 0, fake.activeCount())
	require.True(t, fake.isClosed())

	// Close is idempotent.
	require.NoError(t, m.Close())
}

func TestImmediateClose(t *testing.T) {
	fake := newFakeBackend()
	m, err := newManager(fake, testConfig())
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.Equal(t, 0, fake.activeCount())
	require.True(t, fake.isClosed())
}

func TestRegisterAfterClose(t *testing.T) {
	fake := newFakeBackend()
	m, err := newManager(fake, testConfig())
	require.NoError(t, err)
	require.NoError(t, m.Close())

	reg, err := m.Register(0x41, models.ModCtrl)
	require.ErrorIs(t, err, ErrClosed)
	require.False(t, reg.OK())
}

func TestStartupFailure(t *testing.T) {
	fake := newFakeBackend()
	fake.openErr = errors.New("no message queue")

	m, err := newManager(fake, testConfig())
	require.Error(t, err)
	require.Nil(t, m)
}

func TestConcurrentRegister(t *testing.T) {
	m, fake := newTestManager(t)

	const n = 20
	regs := make([]*Registration, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			regs[i], errs[i] = m.Register(0x41, models.ModCtrl)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
	}

	// Every caller got a distinct ID in [0, n).
	seen := make(map[int]bool)
	for _, reg := range regs {
		require.True(t, reg.OK())
		require.Less(t, reg.ID(), n)
		require.False(t, seen[reg.ID()])
		seen[reg.ID()] = true
	}
	require.Equal(t, n, fake.activeCount())
}
