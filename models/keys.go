package models

import (
	"sort"
	"strings"
)

// Map of modifier names to flags.
var modMap = map[string]Modifiers{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"shift":   ModShift,
	"win":     ModWin,
}

// Map of virtual key codes for common keys.
var vkMap = map[string]KeyCode{
	"a": 0x41, "b": 0x42, "c": 0x43, "d": 0x44, "e": 0x45,
	"f": 0x46, "g": 0x47, "h": 0x48, "i": 0x49, "j": 0x4A,
	"k": 0x4B, "l": 0x4C, "m": 0x4D, "n": 0x4E, "o": 0x4F,
	"p": 0x50, "q": 0x51, "r": 0x52, "s": 0x53, "t": 0x54,
	"u": 0x55, "v": 0x56, "w": 0x57, "x": 0x58, "y": 0x59,
	"z": 0x5A,
	"0": 0x30, "1": 0x31, "2": 0x32, "3": 0x33, "4": 0x34,
	"5": 0x35, "6": 0x36, "7": 0x37, "8": 0x38, "9": 0x39,
	"f1": 0x70, "f2": 0x71, "f3": 0x72, "f4": 0x73, "f5": 0x74,
	"f6": 0x75, "f7": 0x76, "f8": 0x77, "f9": 0x78, "f10": 0x79,
	"f11": 0x7A, "f12": 0x7B,
	"space": 0x20, "enter": 0x0D, "tab": 0x09, "escape": 0x1B, "esc": 0x1B,
	"printscreen": 0x2C, "pause": 0x13, "insert": 0x2D, "delete": 0x2E,
	"home": 0x24, "end": 0x23, "pageup": 0x21, "pagedown": 0x22,
	"up": 0x26, "down": 0x28, "left": 0x25, "right": 0x27,
}

// ParseHotkey parses a hotkey string (e.g., "Ctrl+Shift+M") into modifiers and key.
// The last part is the key; everything before it must be a modifier.
func ParseHotkey(hotkey string) (modifiers Modifiers, vk KeyCode, ok bool) {
	parts := strings.Split(hotkey, "+")
	if len(parts) == 0 || hotkey == "" {
		return 0, 0, false
	}

	for i, part := range parts {
		lower := strings.ToLower(strings.TrimSpace(part))
		if i == len(parts)-1 {
			v, found := vkMap[lower]
			if !found {
				return 0, 0, false
			}
			vk = v
		} else {
			m, found := modMap[lower]
			if !found {
				return 0, 0, false
			}
			modifiers |= m
		}
	}

	return modifiers, vk, true
}

// FormatHotkey renders modifiers and key back into "ctrl+shift+m" form.
// Unknown key codes render as "0xNN" hex.
func FormatHotkey(modifiers Modifiers, vk KeyCode) string {
	var parts []string
	if modifiers&ModCtrl != 0 {
		parts = append(parts, "ctrl")
	}
	if modifiers&ModAlt != 0 {
		parts = append(parts, "alt")
	}
	if modifiers&ModShift != 0 {
		parts = append(parts, "shift")
	}
	if modifiers&ModWin != 0 {
		parts = append(parts, "win")
	}
	parts = append(parts, keyName(vk))
	return strings.Join(parts, "+")
}

func keyName(vk KeyCode) string {
	names := make([]string, 0, 1)
	for name, code := range vkMap {
		if code == vk {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return hexKey(vk)
	}
	// Prefer the longest alias so "escape" wins over "esc".
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names[0]
}

func hexKey(vk KeyCode) string {
	const digits = "0123456789ABCDEF"
	return "0x" + string([]byte{digits[(vk>>4)&0xF], digits[vk&0xF]})
}
