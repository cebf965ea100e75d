// Package prompt classifies terminal snapshots of coding-assistant CLIs and
// turns a human's answer back into the keystrokes the CLI expects.
//
// Detection is pure: it reads a snapshot and returns a Result. Answer
// encoding is pure as well; only Answerer.SendAnswer touches a session.
package prompt

import (
	"encoding/json"
	"fmt"
)

// Type discriminates the PromptData union.
type Type string

const (
	// TypeYesNo is a binary confirmation such as "Proceed? (y/n)".
	TypeYesNo Type = "yes_no"
	// TypeMultipleChoice is a numbered option menu.
	TypeMultipleChoice Type = "multiple_choice"
)

// Valid reports whether t is a known prompt type.
func (t Type) Valid() bool {
	return t == TypeYesNo || t == TypeMultipleChoice
}

// Status is the prompt lifecycle. Detection always produces StatusPending;
// the response pipeline moves it to StatusAnswered.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAnswered Status = "answered"
)

// Option is one numbered menu entry.
type Option struct {
	Number            int    `json:"number"`
	Label             string `json:"label"`
	IsDefault         bool   `json:"isDefault"`
	RequiresTextInput bool   `json:"requiresTextInput,omitempty"`
}

// Data is the tagged union of detected prompts. It is implemented only by
// *YesNoData and *MultipleChoiceData; narrow with a type switch.
type Data interface {
	Kind() Type
	QuestionText() string
	isData()
}

// YesNoData is a binary confirmation prompt.
type YesNoData struct {
	Type     Type      `json:"type"`
	Question string    `json:"question"`
	Options  [2]string `json:"options"`
	Status   Status    `json:"status"`
	// DefaultOption is "yes", "no" or empty when the prompt shows no default.
	DefaultOption string `json:"defaultOption,omitempty"`
}

// NewYesNo builds a pending yes/no prompt.
func NewYesNo(question, defaultOption string) *YesNoData {
	return &YesNoData{
		Type:          TypeYesNo,
		Question:      question,
		Options:       [2]string{"yes", "no"},
		Status:        StatusPending,
		DefaultOption: defaultOption,
	}
}

func (d *YesNoData) Kind() Type           { return TypeYesNo }
func (d *YesNoData) QuestionText() string { return d.Question }
func (d *YesNoData) isData()              {}

// MultipleChoiceData is a numbered menu. Options are numbered 1..N in display
// order, N >= 2, and at most one option is the default.
type MultipleChoiceData struct {
	Type     Type     `json:"type"`
	Question string   `json:"question"`
	Options  []Option `json:"options"`
	Status   Status   `json:"status"`
}

// NewMultipleChoice builds a pending multiple-choice prompt.
func NewMultipleChoice(question string, options []Option) *MultipleChoiceData {
	return &MultipleChoiceData{
		Type:     TypeMultipleChoice,
		Question: question,
		Options:  options,
		Status:   StatusPending,
	}
}

func (d *MultipleChoiceData) Kind() Type           { return TypeMultipleChoice }
func (d *MultipleChoiceData) QuestionText() string { return d.Question }
func (d *MultipleChoiceData) isData()              {}

// DefaultNumber returns the number of the default option, or 0 if none is marked.
func (d *MultipleChoiceData) DefaultNumber() int {
	for _, o := range d.Options {
		if o.IsDefault {
			return o.Number
		}
	}
	return 0
}

// IsMultiSelect reports whether the menu is a checkbox list.
func (d *MultipleChoiceData) IsMultiSelect() bool {
	for _, o := range d.Options {
		if hasCheckbox(o.Label) {
			return true
		}
	}
	return false
}

// Result is the outcome of Detect.
type Result struct {
	IsPrompt     bool   `json:"isPrompt"`
	PromptData   Data   `json:"promptData,omitempty"`
	CleanContent string `json:"cleanContent"`
	// RejectedBy names the guard that turned a candidate menu down.
	RejectedBy string `json:"rejectedBy,omitempty"`
}

// UnmarshalJSON decodes PromptData through UnmarshalData.
func (r *Result) UnmarshalJSON(b []byte) error {
	var raw struct {
		IsPrompt     bool            `json:"isPrompt"`
		PromptData   json.RawMessage `json:"promptData"`
		CleanContent string          `json:"cleanContent"`
		RejectedBy   string          `json:"rejectedBy"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.IsPrompt = raw.IsPrompt
	r.CleanContent = raw.CleanContent
	r.RejectedBy = raw.RejectedBy
	r.PromptData = nil
	if len(raw.PromptData) > 0 && string(raw.PromptData) != "null" {
		d, err := UnmarshalData(raw.PromptData)
		if err != nil {
			return err
		}
		r.PromptData = d
	}
	return nil
}

// UnmarshalData decodes a JSON prompt keyed on its "type" field.
func UnmarshalData(b []byte) (Data, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, fmt.Errorf("decoding prompt type: %w", err)
	}
	switch head.Type {
	case TypeYesNo:
		var d YesNoData
		if err := json.Unmarshal(b, &d); err != nil {
			return nil, fmt.Errorf("decoding yes/no prompt: %w", err)
		}
		return &d, nil
	case TypeMultipleChoice:
		var d MultipleChoiceData
		if err := json.Unmarshal(b, &d); err != nil {
			return nil, fmt.Errorf("decoding multiple-choice prompt: %w", err)
		}
		return &d, nil
	default:
		return nil, fmt.Errorf("unknown prompt type %q", head.Type)
	}
}
