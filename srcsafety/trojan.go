// SPDX-License-Identifier: Apache-2.0
package srcsafety

import "github.com/sentrie-sh/saplpdp/xerr"

// Disallowed bidirectional control code points (spec.md §4.10): these let
// an attacker reorder how source text is rendered without changing its
// byte content, hiding malicious logic from a human reviewer.
const (
	LRI rune = 0x2066
	RLI rune = 0x2067
	PDI rune = 0x2069
	RLO rune = 0x202E
)

// the three-byte UTF-8 encodings of the runes above, matched directly
// against a raw byte stream so detection can run before decoding.
var disallowedUTF8 = [][3]byte{
	{0xE2, 0x81, 0xA6}, // LRI
	{0xE2, 0x81, 0xA7}, // RLI
	{0xE2, 0x81, 0xA9}, // PDI
	{0xE2, 0x80, 0xAE}, // RLO
}

// CheckRunes rejects text containing any disallowed bidirectional control
// code point, operating on already-decoded runes.
func CheckRunes(text string) error {
	for i, r := range text {
		if isDisallowed(r) {
			return xerr.ErrTrojanSource("disallowed bidirectional control code point U+%04X at byte offset %d", r, i)
		}
	}
	return nil
}

// CheckBytes rejects a raw byte stream containing the UTF-8 encoding of any
// disallowed code point, without needing to decode it first.
func CheckBytes(b []byte) error {
	for i := 0; i+2 < len(b); i++ {
		for _, pattern := range disallowedUTF8 {
			if b[i] == pattern[0] && b[i+1] == pattern[1] && b[i+2] == pattern[2] {
				return xerr.ErrTrojanSource("disallowed bidirectional control code point at byte offset %d", i)
			}
		}
	}
	return nil
}

func isDisallowed(r rune) bool {
	return r == LRI || r == RLI || r == PDI || r == RLO
}
