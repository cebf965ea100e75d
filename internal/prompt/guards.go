package prompt

// Guard names, reported in Result.RejectedBy.
const (
	GuardNoQuestion     = "no_question"
	GuardCursorRequired = "cursor_required"
	GuardConsecutive    = "consecutive_numbering"
	GuardMinOptions     = "min_options"
	GuardSingleCursor   = "single_cursor"
	GuardHeading        = "heading_not_question"
)

// minOptions is the smallest menu treated as a decision point.
const minOptions = 2

// candidate is a numbered block plus the question found above it.
type candidate struct {
	block      block
	anchor     int
	anchorKind questionKind
	anchorText string
	adjacent   bool
	question   string
	deny       denyList
}

// guard is one rejection rule. check returns false to reject.
type guard struct {
	name  string
	check func(c *candidate) bool
}

var (
	noQuestionGuard = guard{GuardNoQuestion, func(c *candidate) bool {
		return c.anchor >= 0 && c.anchorKind != notQuestion
	}}

	cursorRequiredGuard = guard{GuardCursorRequired, func(c *candidate) bool {
		return c.block.cursorCount() == 1
	}}

	consecutiveGuard = guard{GuardConsecutive, func(c *candidate) bool {
		return c.block.consecutive()
	}}

	minOptionsGuard = guard{GuardMinOptions, func(c *candidate) bool {
		return len(c.block.lines) >= minOptions
	}}

	singleCursorGuard = guard{GuardSingleCursor, func(c *candidate) bool {
		return c.block.cursorCount() <= 1
	}}

	// headingGuard keeps cursor-less lists from matching unless the
	// paragraph directly above them is a real question.
	headingGuard = guard{GuardHeading, func(c *candidate) bool {
		if !c.adjacent {
			return false
		}
		if c.anchorKind == keywordQuestion && c.deny.matches(c.anchorText) {
			return false
		}
		return c.anchorKind != notQuestion
	}}
)

// strictGuards apply to CLIs that always draw a cursor on the active option.
var strictGuards = []guard{noQuestionGuard, cursorRequiredGuard, consecutiveGuard, minOptionsGuard, singleCursorGuard}

// looseGuards apply to CLIs whose menus may have no cursor.
var looseGuards = []guard{noQuestionGuard, consecutiveGuard, minOptionsGuard, singleCursorGuard, headingGuard}

func guardChain(o Options) []guard {
	if o.RequireDefaultIndicator {
		return strictGuards
	}
	return looseGuards
}

// runGuards evaluates every guard in order and returns the first failure.
func runGuards(chain []guard, c *candidate) (string, bool) {
	for _, g := range chain {
		if !g.check(c) {
			return g.name, false
		}
	}
	return "", true
}
