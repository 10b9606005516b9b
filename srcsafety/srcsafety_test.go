// SPDX-License-Identifier: Apache-2.0
package srcsafety_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrie-sh/saplpdp/ast"
	"github.com/sentrie-sh/saplpdp/srcsafety"
)

func TestDetectEncodingDefaultsToUTF8(t *testing.T) {
	assert.Equal(t, srcsafety.UTF8, srcsafety.DetectEncoding([]byte("policy \"p\" permit")))
}

func TestDetectEncodingUTF8BOM(t *testing.T) {
	b := append([]byte{0xEF, 0xBB, 0xBF}, []byte("policy")...)
	assert.Equal(t, srcsafety.UTF8, srcsafety.DetectEncoding(b))
	assert.Equal(t, "policy", srcsafety.ToUTF8(b))
}

func TestDetectEncodingUTF16LE(t *testing.T) {
	b := []byte{0xFF, 0xFE, 'p', 0x00, 'o', 0x00}
	assert.Equal(t, srcsafety.UTF16LE, srcsafety.DetectEncoding(b))
	assert.Equal(t, "po", srcsafety.ToUTF8(b))
}

func TestDetectEncodingUTF16BE(t *testing.T) {
	b := []byte{0xFE, 0xFF, 0x00, 'p', 0x00, 'o'}
	assert.Equal(t, srcsafety.UTF16BE, srcsafety.DetectEncoding(b))
	assert.Equal(t, "po", srcsafety.ToUTF8(b))
}

func TestDetectEncodingUTF32LE(t *testing.T) {
	b := []byte{0xFF, 0xFE, 0x00, 0x00, 'p', 0x00, 0x00, 0x00}
	assert.Equal(t, srcsafety.UTF32LE, srcsafety.DetectEncoding(b))
	assert.Equal(t, "p", srcsafety.ToUTF8(b))
}

func TestCheckRunesRejectsEachDisallowedCodePoint(t *testing.T) {
	for _, r := range []rune{srcsafety.LRI, srcsafety.RLI, srcsafety.PDI, srcsafety.RLO} {
		err := srcsafety.CheckRunes("policy " + string(r) + " permit")
		assert.Error(t, err)
	}
}

func TestCheckRunesAcceptsCleanSource(t *testing.T) {
	assert.NoError(t, srcsafety.CheckRunes(`policy "p" permit`))
}

func TestCheckBytesRejectsRawUTF8Encoding(t *testing.T) {
	b := append([]byte("policy "), 0xE2, 0x80, 0xAE)
	b = append(b, []byte(" permit")...)
	assert.Error(t, srcsafety.CheckBytes(b))
}

func TestCheckBytesAcceptsCleanSource(t *testing.T) {
	assert.NoError(t, srcsafety.CheckBytes([]byte(`policy "p" permit`)))
}

func TestFormatSnippetMarksErrorLineAndColumn(t *testing.T) {
	loc := ast.Location{
		DocumentSource: "line1\nline2\nli*ne3\nline4\nline5",
		StartLine:      3,
		StartCol:       3,
	}
	out := srcsafety.FormatSnippet(loc)
	require.Contains(t, out, "> 3 | li*ne3")
	assert.Contains(t, out, "^")
}

func TestFormatSnippetHTMLEscapesSpecialCharacters(t *testing.T) {
	loc := ast.Location{
		DocumentSource: `policy "p" permit where <risk> == "x" & y;`,
		StartLine:      1,
		StartCol:       26,
	}
	out := srcsafety.FormatSnippetHTML(loc)
	assert.Contains(t, out, "&lt;")
	assert.Contains(t, out, "&gt;")
	assert.Contains(t, out, "&amp;")
	assert.Contains(t, out, "sapl-error-char")
}
