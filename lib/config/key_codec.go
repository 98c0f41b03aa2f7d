package config

import (
	"strings"
)

const keyEscapes = "/%\x00"
const hexDigits = "0123456789ABCDEF"

// EncodeKey makes a key safe to use as a file name.
//
// Only '/', '%', and NUL are escaped as %XX sequences, everything else
// passes through, so keys stay readable on disk.
func EncodeKey(key string) string {
	if !strings.ContainsAny(key, keyEscapes) {
		return key
	}
	var b strings.Builder
	b.Grow(len(key) + 2)
	for i := 0; i < len(key); i++ {
		c := key[i]
		if strings.IndexByte(keyEscapes, c) < 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

// DecodeKey reverses EncodeKey. Sequences that do not parse as %XX are
// kept as they are, so a name that never went through EncodeKey survives
// the round trip.
func DecodeKey(encoded string) string {
	if strings.IndexByte(encoded, '%') < 0 {
		return encoded
	}
	var b strings.Builder
	b.Grow(len(encoded))
	for i := 0; i < len(encoded); i++ {
		c := encoded[i]
		if c != '%' || i+2 >= len(encoded) {
			b.WriteByte(c)
			continue
		}
		hi := hexValue(encoded[i+1])
		lo := hexValue(encoded[i+2])
		if hi < 0 || lo < 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte(byte(hi<<4 | lo))
		i += 2
	}
	return b.String()
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}
