package prompt

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// maxQuestionWidth bounds the folded question in display cells.
const maxQuestionWidth = 300

// maxWrapLines bounds how far a question is folded upward over wrapped lines.
const maxWrapLines = 3

// questionKeywords are imperative verbs that make "<keyword> ...:" a question.
var questionKeywords = []string{"select", "choose", "pick"}

// cjkQuestionKeywords are matched as substrings since CJK text has no word breaks.
var cjkQuestionKeywords = []string{"選択", "選んで"}

// DefaultNarrationDenyList holds phrases that mark completion narration
// ("I have completed the following:") rather than a question.
var DefaultNarrationDenyList = []string{
	"i have",
	"i've",
	"i completed",
	"i made",
	"i updated",
	"i added",
	"i fixed",
	"i created",
	"i implemented",
	"completed",
	"finished",
	"done",
	"summary",
	"steps",
	"here is",
	"here are",
	"here's",
	"changes made",
	"the following changes",
}

type questionKind int

const (
	notQuestion questionKind = iota
	questionMark
	wrappedQuestion
	keywordQuestion
)

func (k questionKind) String() string {
	switch k {
	case questionMark:
		return "question_mark"
	case wrappedQuestion:
		return "wrapped"
	case keywordQuestion:
		return "keyword"
	default:
		return "none"
	}
}

// denyList is a narration deny-list split into word sequences.
type denyList [][]string

func newDenyList(phrases []string) denyList {
	d := make(denyList, 0, len(phrases))
	for _, p := range phrases {
		if ws := words(strings.ToLower(p)); len(ws) > 0 {
			d = append(d, ws)
		}
	}
	return d
}

func (d denyList) matches(line string) bool {
	ws := words(strings.ToLower(line))
	for _, phrase := range d {
		if containsPhrase(ws, phrase) {
			return true
		}
	}
	return false
}

// classifyQuestion decides whether a cleaned line phrases a question.
func classifyQuestion(c string, deny denyList) questionKind {
	if c == "" {
		return notQuestion
	}
	if r, size := utf8.DecodeLastRuneInString(c); r == '?' || r == '？' {
		if prev, _ := utf8.DecodeLastRuneInString(c[:len(c)-size]); wordy(prev) {
			return questionMark
		}
	}
	if hasInnerQuestionMark(c) {
		return wrappedQuestion
	}
	if (strings.HasSuffix(c, ":") || strings.HasSuffix(c, "：")) && hasKeyword(c) && !deny.matches(c) {
		return keywordQuestion
	}
	return notQuestion
}

// hasInnerQuestionMark finds a question mark that ends a clause and is
// followed by more prose, as happens when a question wraps mid-sentence.
func hasInnerQuestionMark(c string) bool {
	for i, r := range c {
		if (r != '?' && r != '？') || i == 0 {
			continue
		}
		if prev, _ := utf8.DecodeLastRuneInString(c[:i]); !wordy(prev) {
			continue
		}
		rest := c[i+utf8.RuneLen(r):]
		if r == '?' && !strings.HasPrefix(rest, " ") {
			continue
		}
		if countLetters(rest) >= 2 {
			return true
		}
	}
	return false
}

func hasKeyword(c string) bool {
	ws := words(strings.ToLower(c))
	for _, w := range ws {
		for _, k := range questionKeywords {
			if w == k {
				return true
			}
		}
	}
	for _, k := range cjkQuestionKeywords {
		if strings.Contains(c, k) {
			return true
		}
	}
	return false
}

// findAnchor scans upward from "from" to floor for the nearest question-like
// line. Separators end the search.
func findAnchor(lines []string, from, floor int, deny denyList) (int, questionKind) {
	if from < 0 {
		return -1, notQuestion
	}
	for i := from; i >= floor; i-- {
		c := clean(lines[i])
		if c == "" {
			continue
		}
		if isSeparator(c) {
			break
		}
		if k := classifyQuestion(c, deny); k != notQuestion {
			return i, k
		}
	}
	return -1, notQuestion
}

// foldQuestion joins the anchor with the wrapped lines above it and the
// continuation prose below it (up to end). adjacent reports whether the fold
// reached end without a gap.
func foldQuestion(lines []string, anchor, end int) (question string, adjacent bool) {
	start := anchor
	for k := 0; k < maxWrapLines && start > 0; k++ {
		top := clean(lines[start])
		prevRaw := lines[start-1]
		prev := clean(prevRaw)
		if prev == "" || isSeparator(prev) || isOptionLine(prevRaw) || endsSentence(prev) {
			break
		}
		if indentOf(unframe(prevRaw)) != indentOf(unframe(lines[start])) {
			break
		}
		if first, _ := utf8.DecodeRuneInString(top); unicode.IsUpper(first) {
			break
		}
		start--
	}

	parts := make([]string, 0, end-start+1)
	for i := start; i <= anchor; i++ {
		parts = append(parts, clean(lines[i]))
	}
	adjacent = true
	for i := anchor + 1; i <= end; i++ {
		c := clean(lines[i])
		if c == "" || isSeparator(c) || isOptionLine(lines[i]) {
			adjacent = false
			break
		}
		parts = append(parts, c)
	}
	return runewidth.Truncate(strings.Join(parts, " "), maxQuestionWidth, "…"), adjacent
}

func endsSentence(c string) bool {
	r, _ := utf8.DecodeLastRuneInString(c)
	return strings.ContainsRune(".。!！?？:：;", r)
}

func wordy(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("\"'`)」』", r)
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// words splits s into runs of letters, digits and apostrophes.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '’')
	})
}

// containsPhrase reports whether phrase occurs as a contiguous word sequence in ws.
func containsPhrase(ws, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(ws) {
		return false
	}
	for i := 0; i+len(phrase) <= len(ws); i++ {
		match := true
		for j, p := range phrase {
			if ws[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
