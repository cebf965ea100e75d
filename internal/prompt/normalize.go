package prompt

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// frameGlyphs are box-drawing borders some CLIs draw around dialogs.
var frameGlyphs = []string{"│", "┃", "║"}

// splitLines strips ANSI sequences and carriage returns and splits the
// snapshot into lines.
func splitLines(snapshot string) []string {
	if !utf8.ValidString(snapshot) {
		snapshot = strings.ToValidUTF8(snapshot, "�")
	}
	snapshot = ansi.Strip(snapshot)
	snapshot = strings.ReplaceAll(snapshot, "\r", "")
	return strings.Split(snapshot, "\n")
}

// unframe removes one leading and one trailing frame glyph.
func unframe(line string) string {
	s := strings.TrimRight(line, " \t")
	for _, g := range frameGlyphs {
		if strings.HasSuffix(s, g) {
			s = strings.TrimRight(strings.TrimSuffix(s, g), " \t")
			break
		}
	}
	t := strings.TrimLeft(s, " \t")
	for _, g := range frameGlyphs {
		if strings.HasPrefix(t, g) {
			return strings.TrimPrefix(t, g)
		}
	}
	return s
}

// indentOf counts leading spaces (tabs count as one) of an unframed line.
func indentOf(line string) int {
	n := 0
	for _, r := range line {
		if r != ' ' && r != '\t' {
			break
		}
		n++
	}
	return n
}

// clean is the trimmed, unframed text of a raw line.
func clean(raw string) string {
	return strings.TrimSpace(unframe(raw))
}

// lastNonEmpty returns the index of the last line with visible text, or -1.
func lastNonEmpty(lines []string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if clean(lines[i]) != "" {
			return i
		}
	}
	return -1
}

// isSeparator reports whether a line is a horizontal rule such as "-----" or "────".
func isSeparator(line string) bool {
	n := 0
	for _, r := range line {
		switch r {
		case '-', '─', '━', '═', '_', '=', '╌', '┄', ' ':
			if r != ' ' {
				n++
			}
		default:
			return false
		}
	}
	return n >= 3
}
