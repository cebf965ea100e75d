package output

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
)

// DetectionView is the result of classifying one snapshot.
type DetectionView struct {
	Target string
	Family string
	Result prompt.Result
}

type detectionData struct {
	Target string `json:"target,omitempty"`
	Family string `json:"family,omitempty"`
	prompt.Result
}

// Data implements Result.
func (v DetectionView) Data() any {
	return detectionData{Target: v.Target, Family: v.Family, Result: v.Result}
}

// Text implements Result.
func (v DetectionView) Text(f *Formatter) error {
	s := f.styles()
	var b strings.Builder

	if !v.Result.IsPrompt {
		b.WriteString(s.muted.Render("No prompt detected"))
		if v.Result.RejectedBy != "" {
			b.WriteString(s.tag.Render(" (rejected by " + v.Result.RejectedBy + ")"))
		}
		b.WriteString(v.context(f))
		b.WriteString("\n")
		_, err := fmt.Fprint(f.writer, b.String())
		return err
	}

	kind := "multiple choice"
	if v.Result.PromptData.Kind() == prompt.TypeYesNo {
		kind = "yes/no"
	}
	b.WriteString(s.title.Render("Prompt detected"))
	b.WriteString(s.tag.Render(" (" + kind + ")"))
	b.WriteString(v.context(f))
	b.WriteString("\n")
	b.WriteString(RenderPrompt(f, v.Result.PromptData))
	_, err := fmt.Fprint(f.writer, b.String())
	return err
}

func (v DetectionView) context(f *Formatter) string {
	var parts []string
	if v.Family != "" {
		parts = append(parts, v.Family)
	}
	if v.Target != "" {
		parts = append(parts, v.Target)
	}
	if len(parts) == 0 {
		return ""
	}
	return f.styles().muted.Render("  [" + strings.Join(parts, " ") + "]")
}

// RenderPrompt renders a prompt's question and choices, indented two spaces
// and wrapped to the formatter width.
func RenderPrompt(f *Formatter, d prompt.Data) string {
	s := f.styles()
	var b strings.Builder

	question := d.QuestionText()
	if f.width > 4 {
		question = wordwrap.String(question, f.width-2)
	}
	b.WriteString(indent.String(s.question.Render(question), 2))
	b.WriteString("\n")

	switch p := d.(type) {
	case *prompt.YesNoData:
		line := s.number.Render("[yes/no]")
		if p.DefaultOption != "" {
			line += s.tag.Render(" default: " + p.DefaultOption)
		}
		b.WriteString("  " + line + "\n")
	case *prompt.MultipleChoiceData:
		for _, o := range p.Options {
			b.WriteString(renderOption(f, s, o))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderOption(f *Formatter, s styles, o prompt.Option) string {
	marker := "  "
	if o.IsDefault {
		marker = s.cursor.Render("❯") + " "
	}
	number := fmt.Sprintf("%d.", o.Number)
	label := o.Label
	if f.width > 0 {
		room := f.width - 2 - 2 - runewidth.StringWidth(number) - 1
		if room > 8 {
			label = runewidth.Truncate(label, room, "…")
		}
	}
	line := "  " + marker + s.number.Render(number) + " " + s.label.Render(label)
	var tags []string
	if o.IsDefault {
		tags = append(tags, "default")
	}
	if o.RequiresTextInput {
		tags = append(tags, "text input")
	}
	if len(tags) > 0 {
		line += s.tag.Render("  (" + strings.Join(tags, ", ") + ")")
	}
	return line
}

// PlanView is an encoded answer: the operations sent (or to be sent) to a
// session.
type PlanView struct {
	Target string
	Family string
	Answer string
	Ops    []prompt.KeyOp
	DryRun bool
}

type planData struct {
	Target string         `json:"target"`
	Family string         `json:"family,omitempty"`
	Answer string         `json:"answer"`
	Ops    []prompt.KeyOp `json:"ops"`
	DryRun bool           `json:"dryRun"`
	Sent   bool           `json:"sent"`
}

// Data implements Result.
func (v PlanView) Data() any {
	ops := v.Ops
	if ops == nil {
		ops = []prompt.KeyOp{}
	}
	return planData{
		Target: v.Target,
		Family: v.Family,
		Answer: v.Answer,
		Ops:    ops,
		DryRun: v.DryRun,
		Sent:   !v.DryRun,
	}
}

// Text implements Result.
func (v PlanView) Text(f *Formatter) error {
	s := f.styles()
	var b strings.Builder
	if v.DryRun {
		b.WriteString(s.warning.Render("Answer plan (dry run)"))
	} else {
		b.WriteString(s.success.Render("✓ Answer sent"))
	}
	b.WriteString(s.muted.Render(fmt.Sprintf("  %s → %s", quote(v.Answer), v.Target)))
	b.WriteString("\n")
	for i, op := range v.Ops {
		fmt.Fprintf(&b, "  %s %s\n", s.number.Render(fmt.Sprintf("%2d.", i+1)), describeOp(op))
	}
	_, err := fmt.Fprint(f.writer, b.String())
	return err
}

func describeOp(op prompt.KeyOp) string {
	if op.Kind == prompt.OpText {
		if op.Submit {
			return "type " + quote(op.Text) + " + Enter"
		}
		return "type " + quote(op.Text)
	}
	return "key " + string(op.Key)
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}
