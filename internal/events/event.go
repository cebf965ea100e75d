// Package events records prompt lifecycle events to a JSONL file.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
)

// EventType represents the type of event being logged.
type EventType string

const (
	EventPromptDetected EventType = "prompt_detected"
	EventPromptCleared  EventType = "prompt_cleared"
	EventPromptAnswered EventType = "prompt_answered"
	EventError          EventType = "error"
)

// Event represents a single logged event. Target is the pane or session the
// event concerns; Prompt is set for detected and answered events.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Target    string         `json:"target,omitempty"`
	Family    string         `json:"family,omitempty"`
	Prompt    prompt.Data    `json:"prompt,omitempty"`
	Answer    *AnswerData    `json:"answer,omitempty"`
	Error     string         `json:"error,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// UnmarshalJSON decodes Prompt through prompt.UnmarshalData.
func (e *Event) UnmarshalJSON(b []byte) error {
	type plain Event
	var raw struct {
		*plain
		Prompt json.RawMessage `json:"prompt"`
	}
	raw.plain = (*plain)(e)
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Prompt = nil
	if len(raw.Prompt) > 0 && string(raw.Prompt) != "null" {
		d, err := prompt.UnmarshalData(raw.Prompt)
		if err != nil {
			return err
		}
		e.Prompt = d
	}
	return nil
}

// AnswerData describes an answer that was sent.
type AnswerData struct {
	Answer string         `json:"answer"`
	Ops    []prompt.KeyOp `json:"ops"`
	DryRun bool           `json:"dry_run,omitempty"`
}

// NewEvent creates a new event with a fresh ID and the current timestamp.
func NewEvent(eventType EventType, target, family string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Target:    target,
		Family:    family,
	}
}

// PromptDetected builds a prompt_detected event.
func PromptDetected(target, family string, data prompt.Data) *Event {
	e := NewEvent(EventPromptDetected, target, family)
	e.Prompt = data
	return e
}

// PromptCleared builds a prompt_cleared event.
func PromptCleared(target, family string) *Event {
	return NewEvent(EventPromptCleared, target, family)
}

// PromptAnswered builds a prompt_answered event.
func PromptAnswered(target, family string, data prompt.Data, answer string, ops []prompt.KeyOp, dryRun bool) *Event {
	e := NewEvent(EventPromptAnswered, target, family)
	e.Prompt = data
	e.Answer = &AnswerData{Answer: answer, Ops: ops, DryRun: dryRun}
	return e
}

// Failure builds an error event.
func Failure(target string, err error) *Event {
	e := NewEvent(EventError, target, "")
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
