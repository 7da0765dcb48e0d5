//go:build windows

package hotkeys

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/fonaix/GlobalHotKeys/models"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procRegisterHotKey   = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey = user32.NewProc("UnregisterHotKey")
	procPeekMessageW     = user32.NewProc("PeekMessageW")
	procTranslateMessage = user32.NewProc("TranslateMessage")
	procDispatchMessageW = user32.NewProc("DispatchMessageW")
)

const (
	wmHotkey   = 0x0312
	pmNoRemove = 0x0000
	pmRemove   = 0x0001
)

// msg mirrors the Win32 MSG structure.
type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// windowsBackend registers hotkeys against the worker thread itself (hwnd 0),
// so WM_HOTKEY lands in the thread message queue rather than a window.
type windowsBackend struct{}

func newBackend() backend {
	return &windowsBackend{}
}

// open forces creation of the thread message queue so hotkey messages have
// somewhere to land before the first poll.
func (b *windowsBackend) open() error {
	var m msg
	procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, wmHotkey, wmHotkey, pmNoRemove)
	return nil
}

func (b *windowsBackend) register(id int, mods models.Modifiers, key models.KeyCode) error {
	ret, _, err := procRegisterHotKey.Call(0, uintptr(id), uintptr(mods), uintptr(key))
	if ret == 0 {
		return fmt.Errorf("RegisterHotKey: %w", err)
	}
	return nil
}

func (b *windowsBackend) unregister(id int) error {
	ret, _, err := procUnregisterHotKey.Call(0, uintptr(id))
	if ret == 0 {
		return fmt.Errorf("UnregisterHotKey: %w", err)
	}
	return nil
}

// poll drains pending messages until it finds a hotkey press or the queue is
// empty. Everything else goes through the default dispatch.
func (b *windowsBackend) poll() (int, bool) {
	var m msg
	for {
		ret, _, _ := procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmRemove)
		if ret == 0 {
			return 0, false
		}
		if m.Message == wmHotkey {
			return int(m.WParam), true
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}

func (b *windowsBackend) close() {}
