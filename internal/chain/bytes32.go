package chain

import "fmt"

// FormatBytes32String encodes s as a null-terminated bytes32, the encoding the
// protocol uses for contract names and currency keys.
func FormatBytes32String(s string) ([32]byte, error) {
	var out [32]byte
	if len(s) > 31 {
		return out, fmt.Errorf("bytes32 string %q must be less than 32 bytes", s)
	}
	copy(out[:], s)
	return out, nil
}

// ParseBytes32String decodes a null-terminated bytes32 string.
func ParseBytes32String(b [32]byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}
