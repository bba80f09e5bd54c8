package format

import (
	"strings"
)

// HexAddressLength is the length of a 0x-prefixed EVM address string.
const HexAddressLength = 42

// NormalizeAddress lowercases an address for use as a stable lookup key.
// Input is trimmed; the result is NOT validated (see IsValidAddress).
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// IsValidAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsValidAddress(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != HexAddressLength {
		return false
	}
	if s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return false
	}
	for i := 2; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// ShortenAddress renders an address as "0x1234…abcd" for display.
// Invalid or short input is returned unchanged.
func ShortenAddress(addr string) string {
	if len(addr) < 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
