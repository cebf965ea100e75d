package prompt

import "strings"

type yesNoMarker struct {
	text string
	def  string
}

// yesNoMarkers are trailing binary-choice markers. Capitalisation of the
// brackets names the default.
var yesNoMarkers = []yesNoMarker{
	{"(y/n)", ""},
	{"[y/n]", ""},
	{"(Y/N)", ""},
	{"[Y/N]", ""},
	{"(Y/n)", "yes"},
	{"[Y/n]", "yes"},
	{"(y/N)", "no"},
	{"[y/N]", "no"},
	{"(yes/no)", ""},
	{"[yes/no]", ""},
}

// confirmPhrases are bare confirmation questions, compared lower-cased.
var confirmPhrases = []string{"approve?", "proceed?", "continue?", "confirm?"}

// detectYesNo checks the last visible line for a binary confirmation.
func detectYesNo(lines []string) (*YesNoData, bool) {
	last := lastNonEmpty(lines)
	// A numbered entry ending in "Continue?" belongs to a menu.
	if last < 0 || isOptionLine(lines[last]) {
		return nil, false
	}
	line := clean(lines[last])
	trimmed := strings.TrimRight(line, " :>")

	for _, m := range yesNoMarkers {
		if !strings.HasSuffix(trimmed, m.text) {
			continue
		}
		q := strings.TrimSpace(strings.TrimSuffix(trimmed, m.text))
		if q == "" {
			q = previousText(lines, last)
		}
		return NewYesNo(q, m.def), true
	}

	lower := strings.ToLower(line)
	for _, p := range confirmPhrases {
		if lower == p || strings.HasSuffix(lower, " "+p) {
			return NewYesNo(line, ""), true
		}
	}
	return nil, false
}

func previousText(lines []string, from int) string {
	for i := from - 1; i >= 0; i-- {
		if c := clean(lines[i]); c != "" {
			return c
		}
	}
	return ""
}
