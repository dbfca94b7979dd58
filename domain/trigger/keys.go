package trigger

import (
	"fmt"
	"strconv"
	"strings"
)

var namedVK = map[string]uint16{
	"space":     0x20,
	"enter":     0x0D,
	"tab":       0x09,
	"esc":       0x1B,
	"escape":    0x1B,
	"backspace": 0x08,
	"insert":    0x2D,
	"delete":    0x2E,
	"home":      0x24,
	"end":       0x23,
	"pageup":    0x21,
	"pagedown":  0x22,
	"left":      0x25,
	"up":        0x26,
	"right":     0x27,
	"down":      0x28,
}

// NormalizeKey lowercases and trims a key token ("T" -> "t", " F3 " -> "f3").
func NormalizeKey(key string) string { return strings.ToLower(strings.TrimSpace(key)) }

// ParseVK converts a key token ("t", "F3", "space") into a Windows
// virtual-key code. Letters, digits, F1..F24 and a few named keys are
// recognised.
func ParseVK(key string) (uint16, error) {
	k := NormalizeKey(key)
	if len(k) == 1 {
		c := k[0]
		switch {
		case c >= 'a' && c <= 'z':
			return uint16(c-'a') + 0x41, nil // VK_A..VK_Z
		case c >= '0' && c <= '9':
			return uint16(c-'0') + 0x30, nil
		}
	}
	if len(k) >= 2 && k[0] == 'f' {
		if n, err := strconv.Atoi(k[1:]); err == nil && n >= 1 && n <= 24 {
			return 0x70 + uint16(n-1), nil // VK_F1=0x70
		}
	}
	if vk, ok := namedVK[k]; ok {
		return vk, nil
	}
	return 0, fmt.Errorf("trigger: unsupported key %q", key)
}
