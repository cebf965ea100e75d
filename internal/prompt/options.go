package prompt

import (
	"strings"
	"unicode/utf8"
)

// cursorMarkers are the glyphs CLIs draw in front of the highlighted menu entry.
var cursorMarkers = []string{"❯", "›", "▸", "➤"}

// maxFooterLines is how many non-option lines may sit between the bottom of
// the snapshot and the last option (hint rows such as "Esc to cancel").
const maxFooterLines = 3

// textInputHints mark options that open a free-text field when chosen.
var textInputHints = []string{
	"type something",
	"type here",
	"tell claude",
	"differently",
	"something else",
	"custom answer",
	"custom response",
	"enter custom",
	"please specify",
}

// checkboxMarkers identify multi-select menus.
var checkboxMarkers = []string{"[ ]", "[x]", "[X]", "[✓]", "[✔]", "☐", "☑", "☒"}

type optionLine struct {
	number int
	label  string
	cursor bool
	// numberCol is the rune column of the option number.
	numberCol int
}

// parseOptionLine matches "[marker] N. label" without regular expressions.
func parseOptionLine(raw string) (optionLine, bool) {
	s := unframe(raw)
	off := indentOf(s)
	rest := s[off:]

	var ol optionLine
	for _, m := range cursorMarkers {
		if strings.HasPrefix(rest, m) {
			ol.cursor = true
			after := strings.TrimLeft(rest[len(m):], " \t")
			off += len(rest) - len(after)
			rest = after
			break
		}
	}

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits == 0 || digits > 3 || (digits > 1 && rest[0] == '0') {
		return optionLine{}, false
	}
	if digits >= len(rest) || rest[digits] != '.' {
		return optionLine{}, false
	}
	after := rest[digits+1:]
	if after == "" || (after[0] != ' ' && after[0] != '\t') {
		return optionLine{}, false
	}
	label := strings.TrimSpace(after)
	if label == "" {
		return optionLine{}, false
	}

	n := 0
	for i := 0; i < digits; i++ {
		n = n*10 + int(rest[i]-'0')
	}
	if n == 0 {
		return optionLine{}, false
	}

	ol.number = n
	ol.label = label
	ol.numberCol = utf8.RuneCountInString(s[:off])
	return ol, true
}

func isOptionLine(raw string) bool {
	_, ok := parseOptionLine(raw)
	return ok
}

// block is a run of option lines found near the bottom of a snapshot.
type block struct {
	lines       []optionLine // top to bottom
	first       int          // line index of the top option
	last        int          // line index of the bottom option
	questionEnd int          // nearest prose line above the block, -1 if none
	numberCol   int
}

func (b block) cursorCount() int {
	n := 0
	for _, l := range b.lines {
		if l.cursor {
			n++
		}
	}
	return n
}

// consecutive reports whether the option numbers are exactly 1..N.
func (b block) consecutive() bool {
	for i, l := range b.lines {
		if l.number != i+1 {
			return false
		}
	}
	return len(b.lines) > 0
}

// options converts the block into prompt options. The cursor line, if any,
// becomes the default.
func (b block) options() []Option {
	out := make([]Option, 0, len(b.lines))
	for _, l := range b.lines {
		out = append(out, Option{
			Number:            l.number,
			Label:             l.label,
			IsDefault:         l.cursor,
			RequiresTextInput: needsTextInput(l.label),
		})
	}
	return out
}

// scanBlock walks upward from end (inclusive) to floor collecting option lines.
func scanBlock(lines []string, end, floor int) (block, bool) {
	i := end
	footer := 0
	for ; i >= floor; i-- {
		raw := lines[i]
		if clean(raw) == "" {
			continue
		}
		if isOptionLine(raw) {
			break
		}
		footer++
		if footer > maxFooterLines {
			return block{}, false
		}
	}
	if i < floor {
		return block{}, false
	}

	b := block{questionEnd: -1, last: i, numberCol: -1}
	var collected []optionLine
	for ; i >= floor; i-- {
		raw := lines[i]
		c := clean(raw)
		if c == "" {
			continue
		}
		if ol, ok := parseOptionLine(raw); ok {
			collected = append(collected, ol)
			b.first = i
			if b.numberCol < 0 || ol.numberCol < b.numberCol {
				b.numberCol = ol.numberCol
			}
			continue
		}
		if isSeparator(c) {
			break
		}
		if isContinuation(raw, c, b.numberCol) {
			continue
		}
		b.questionEnd = i
		break
	}

	b.lines = make([]optionLine, len(collected))
	for k, ol := range collected {
		b.lines[len(collected)-1-k] = ol
	}
	return b, true
}

// isContinuation reports whether a line inside an option block belongs to
// the option below it: a wrapped label, a description, or a path fragment.
func isContinuation(raw, c string, numberCol int) bool {
	if strings.HasSuffix(c, "?") || strings.HasSuffix(c, "？") {
		return false
	}
	indent := indentOf(unframe(raw))
	if indent > numberCol {
		return true
	}
	return indent > 0 && (c[0] == '/' || c[0] == '~')
}

func needsTextInput(label string) bool {
	ws := words(strings.ToLower(label))
	if len(ws) == 1 && ws[0] == "other" {
		return true
	}
	for _, hint := range textInputHints {
		if containsPhrase(ws, strings.Fields(hint)) {
			return true
		}
	}
	return false
}

func hasCheckbox(label string) bool {
	for _, m := range checkboxMarkers {
		if strings.Contains(label, m) {
			return true
		}
	}
	return false
}
