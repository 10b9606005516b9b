// SPDX-License-Identifier: Apache-2.0
package srcsafety

import (
	"fmt"
	"strings"

	"github.com/sentrie-sh/saplpdp/ast"
)

const contextLines = 2

// FormatSnippet renders a plain-text error snippet around loc: two lines of
// context before and after, line numbers right-aligned to the widest
// number shown, a '>' marker on the error line and a '^' caret under the
// error column (spec.md §4.10).
func FormatSnippet(loc ast.Location) string {
	lines := strings.Split(loc.DocumentSource, "\n")
	start, end := windowBounds(loc.StartLine, len(lines))
	width := len(fmt.Sprintf("%d", end))

	var b strings.Builder
	for n := start; n <= end; n++ {
		marker := " "
		if n == loc.StartLine {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s %*d | %s\n", marker, width, n, lineAt(lines, n))
		if n == loc.StartLine {
			fmt.Fprintf(&b, "%s %*s | %s\n", " ", width, "", caretLine(loc.StartCol))
		}
	}
	return b.String()
}

// FormatSnippetHTML is FormatSnippet's HTML counterpart: it escapes
// `& < > "` in the rendered source and wraps the offending character in a
// <span class="sapl-error-char"> marker instead of drawing a caret line.
func FormatSnippetHTML(loc ast.Location) string {
	lines := strings.Split(loc.DocumentSource, "\n")
	start, end := windowBounds(loc.StartLine, len(lines))
	width := len(fmt.Sprintf("%d", end))

	var b strings.Builder
	b.WriteString("<pre class=\"sapl-snippet\">")
	for n := start; n <= end; n++ {
		class := ""
		if n == loc.StartLine {
			class = " class=\"sapl-error-line\""
		}
		line := lineAt(lines, n)
		fmt.Fprintf(&b, "<span%s>%*d | %s</span>\n", class, width, n, htmlLine(line, n == loc.StartLine, loc.StartCol))
	}
	b.WriteString("</pre>")
	return b.String()
}

func windowBounds(line, total int) (int, int) {
	start := line - contextLines
	if start < 1 {
		start = 1
	}
	end := line + contextLines
	if end > total {
		end = total
	}
	return start, end
}

func lineAt(lines []string, n int) string {
	if n-1 < 0 || n-1 >= len(lines) {
		return ""
	}
	return lines[n-1]
}

func caretLine(col int) string {
	if col < 1 {
		col = 1
	}
	return strings.Repeat(" ", col-1) + "^"
}

func htmlLine(line string, isErrorLine bool, col int) string {
	escaped := escapeHTML(line)
	if !isErrorLine || col < 1 || col > len(line) {
		return escaped
	}
	before := escapeHTML(line[:col-1])
	offender := escapeHTML(string(line[col-1]))
	after := escapeHTML(line[col:])
	return before + "<span class=\"sapl-error-char\">" + offender + "</span>" + after
}

func escapeHTML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}
