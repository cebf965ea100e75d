package prompt

// DefaultQuestionWindow is how many lines above the first option are searched
// for the question. It is also the upper bound for Options.QuestionWindow.
const DefaultQuestionWindow = 50

// scanLines bounds how far from the bottom an option block may start.
const scanLines = 50

// Options tunes detection for a CLI tool family.
type Options struct {
	// RequireDefaultIndicator rejects menus without exactly one cursor-marked option.
	RequireDefaultIndicator bool
	// NarrationDenyList overrides DefaultNarrationDenyList when non-nil.
	NarrationDenyList []string
	// QuestionWindow overrides DefaultQuestionWindow when in 1..DefaultQuestionWindow.
	QuestionWindow int
}

// DefaultOptions is the strict profile used when Detect gets nil options.
func DefaultOptions() Options {
	return Options{
		RequireDefaultIndicator: true,
		QuestionWindow:          DefaultQuestionWindow,
	}
}

func (o *Options) resolved() Options {
	r := DefaultOptions()
	if o == nil {
		return r
	}
	r.RequireDefaultIndicator = o.RequireDefaultIndicator
	r.NarrationDenyList = o.NarrationDenyList
	if o.QuestionWindow > 0 && o.QuestionWindow < DefaultQuestionWindow {
		r.QuestionWindow = o.QuestionWindow
	}
	return r
}

func (o Options) denyList() denyList {
	if o.NarrationDenyList != nil {
		return newDenyList(o.NarrationDenyList)
	}
	return defaultDeny
}

var defaultDeny = newDenyList(DefaultNarrationDenyList)

// Detect classifies a terminal snapshot. It never fails: anything that is
// not clearly a prompt yields IsPrompt false with the snapshot echoed back.
func Detect(snapshot string, opts *Options) Result {
	o := opts.resolved()
	lines := splitLines(snapshot)

	if yn, ok := detectYesNo(lines); ok {
		return Result{IsPrompt: true, PromptData: yn, CleanContent: yn.Question}
	}

	c, ok := buildCandidate(lines, o)
	if !ok {
		return Result{CleanContent: snapshot}
	}
	if name, ok := runGuards(guardChain(o), c); !ok {
		return Result{CleanContent: snapshot, RejectedBy: name}
	}

	data := NewMultipleChoice(c.question, c.block.options())
	return Result{IsPrompt: true, PromptData: data, CleanContent: c.question}
}

// buildCandidate runs the option scanner and then the question scanner
// anchored on the block it found.
func buildCandidate(lines []string, o Options) (*candidate, bool) {
	end := lastNonEmpty(lines)
	if end < 0 {
		return nil, false
	}
	b, ok := scanBlock(lines, end, max(0, end-scanLines+1))
	if !ok {
		return nil, false
	}

	c := &candidate{block: b, anchor: -1, deny: o.denyList()}
	floor := max(0, b.first-o.QuestionWindow)
	c.anchor, c.anchorKind = findAnchor(lines, b.questionEnd, floor, c.deny)
	if c.anchor >= 0 {
		c.anchorText = clean(lines[c.anchor])
		c.question, c.adjacent = foldQuestion(lines, c.anchor, b.questionEnd)
	}
	return c, true
}
