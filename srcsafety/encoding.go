// SPDX-License-Identifier: Apache-2.0

// Package srcsafety implements the source-safety utilities named in
// spec.md §4.10: byte-order-mark sniffing so every document reaches the
// compiler as UTF-8, a trojan-source guard against bidirectional control
// code points, and plain-text/HTML error snippet formatters.
//
// No pack dependency covers BOM sniffing or Unicode code point scanning;
// both are small, self-contained byte/rune inspections served by
// unicode/utf16 and hand-rolled UTF-32 decoding (see DESIGN.md for the
// stdlib-fallback justification).
package srcsafety

import (
	"unicode/utf16"
)

// Encoding names a detected source encoding.
type Encoding int

const (
	UTF8 Encoding = iota
	UTF16LE
	UTF16BE
	UTF32LE
	UTF32BE
)

func (e Encoding) String() string {
	switch e {
	case UTF16LE:
		return "UTF-16LE"
	case UTF16BE:
		return "UTF-16BE"
	case UTF32LE:
		return "UTF-32LE"
	case UTF32BE:
		return "UTF-32BE"
	default:
		return "UTF-8"
	}
}

// DetectEncoding sniffs a byte-order mark at the start of b, defaulting to
// UTF-8 when none is present.
func DetectEncoding(b []byte) Encoding {
	switch {
	case len(b) >= 4 && b[0] == 0xFF && b[1] == 0xFE && b[2] == 0x00 && b[3] == 0x00:
		return UTF32LE
	case len(b) >= 4 && b[0] == 0x00 && b[1] == 0x00 && b[2] == 0xFE && b[3] == 0xFF:
		return UTF32BE
	case len(b) >= 2 && b[0] == 0xFF && b[1] == 0xFE:
		return UTF16LE
	case len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF:
		return UTF16BE
	default:
		return UTF8
	}
}

// ToUTF8 converts b to a UTF-8 string, stripping any BOM and decoding
// according to the detected encoding.
func ToUTF8(b []byte) string {
	switch enc := DetectEncoding(b); enc {
	case UTF8:
		return stripUTF8BOM(b)
	case UTF16LE:
		return decodeUTF16(b[2:], false)
	case UTF16BE:
		return decodeUTF16(b[2:], true)
	case UTF32LE:
		return decodeUTF32(b[4:], false)
	case UTF32BE:
		return decodeUTF32(b[4:], true)
	default:
		return string(b)
	}
}

func stripUTF8BOM(b []byte) string {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return string(b[3:])
	}
	return string(b)
}

func decodeUTF16(b []byte, bigEndian bool) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		if bigEndian {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		} else {
			units = append(units, uint16(b[i+1])<<8|uint16(b[i]))
		}
	}
	return string(utf16.Decode(units))
}

func decodeUTF32(b []byte, bigEndian bool) string {
	runes := make([]rune, 0, len(b)/4)
	for i := 0; i+3 < len(b); i += 4 {
		var r rune
		if bigEndian {
			r = rune(uint32(b[i])<<24 | uint32(b[i+1])<<16 | uint32(b[i+2])<<8 | uint32(b[i+3]))
		} else {
			r = rune(uint32(b[i+3])<<24 | uint32(b[i+2])<<16 | uint32(b[i+1])<<8 | uint32(b[i]))
		}
		runes = append(runes, r)
	}
	return string(runes)
}
