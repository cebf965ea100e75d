package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrEmptySession is returned when an answer has no target session.
	ErrEmptySession = errors.New("session id is required")
	// ErrInvalidOption is returned for option numbers below 1.
	ErrInvalidOption = errors.New("invalid option number")
	// ErrOptionOutOfRange is returned when the option number exceeds the menu.
	ErrOptionOutOfRange = errors.New("option number out of range")
)

// Key is a named special key understood by session transports.
type Key string

const (
	KeyUp    Key = "Up"
	KeyDown  Key = "Down"
	KeySpace Key = "Space"
	KeyEnter Key = "Enter"
)

// OpKind distinguishes literal text from special keys.
type OpKind string

const (
	OpText OpKind = "text"
	OpKey  OpKind = "key"
)

// KeyOp is one session operation: literal text or a single special key.
type KeyOp struct {
	Kind   OpKind `json:"kind" yaml:"kind"`
	Text   string `json:"text,omitempty" yaml:"text,omitempty"`
	Submit bool   `json:"submit,omitempty" yaml:"submit,omitempty"`
	Key    Key    `json:"key,omitempty" yaml:"key,omitempty"`
}

// TextOp sends literal text without submitting it.
func TextOp(text string) KeyOp { return KeyOp{Kind: OpText, Text: text} }

// KeyPress sends one special key.
func KeyPress(k Key) KeyOp { return KeyOp{Kind: OpKey, Key: k} }

func (o KeyOp) String() string {
	if o.Kind == OpKey {
		return string(o.Key)
	}
	return strconv.Quote(o.Text)
}

// DefaultCursorFamilies are the CLI tool families whose menus are driven by
// cursor keys rather than typed numbers.
var DefaultCursorFamilies = []string{"claude"}

// AnswerRequest is everything the encoder knows about one answer.
type AnswerRequest struct {
	SessionID string `json:"sessionId"`
	Answer    string `json:"answer"`
	Family    string `json:"cliToolFamily"`
	// PromptData is the live detection result, when still in memory.
	PromptData Data `json:"promptData,omitempty"`
	// FallbackType and FallbackDefault summarise a prompt whose detection
	// result was not kept. PromptData wins when both are set.
	FallbackType    Type `json:"fallbackPromptType,omitempty"`
	FallbackDefault int  `json:"fallbackDefaultOptionNumber,omitempty"`
}

// EncodeAnswer converts an answer into the ordered operations the CLI expects.
//
// Non-numeric answers always fall back to typed text plus Enter, even for a
// menu, so a caller passing an option label instead of its number is not
// rejected.
func EncodeAnswer(req AnswerRequest, cursorFamilies []string) ([]KeyOp, error) {
	text := []KeyOp{TextOp(req.Answer), KeyPress(KeyEnter)}
	if !isCursorFamily(req.Family, cursorFamilies) {
		return text, nil
	}

	kind := req.FallbackType
	var menu *MultipleChoiceData
	if req.PromptData != nil {
		kind = req.PromptData.Kind()
		menu, _ = req.PromptData.(*MultipleChoiceData)
	}
	if kind != TypeMultipleChoice {
		return text, nil
	}

	target, err := strconv.Atoi(strings.TrimSpace(req.Answer))
	if err != nil {
		return text, nil
	}
	if target < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOption, target)
	}
	count := 0
	if menu != nil {
		count = len(menu.Options)
	}
	if count > 0 && target > count {
		return nil, fmt.Errorf("%w: %d of %d", ErrOptionOutOfRange, target, count)
	}

	ops := navigate(target - defaultOption(menu, req.FallbackDefault, count))
	if menu != nil && menu.IsMultiSelect() {
		ops = append(ops, KeyPress(KeySpace))
		// Walk past the last option onto the trailing confirm entry.
		ops = append(ops, repeatKey(KeyDown, count-target+1)...)
	}
	return append(ops, KeyPress(KeyEnter)), nil
}

// defaultOption resolves where the cursor currently sits.
func defaultOption(menu *MultipleChoiceData, fallback, count int) int {
	if menu != nil {
		if n := menu.DefaultNumber(); n > 0 {
			return n
		}
	}
	if fallback >= 1 && (count == 0 || fallback <= count) {
		return fallback
	}
	return 1
}

func navigate(offset int) []KeyOp {
	if offset > 0 {
		return repeatKey(KeyDown, offset)
	}
	return repeatKey(KeyUp, -offset)
}

func repeatKey(k Key, n int) []KeyOp {
	ops := make([]KeyOp, 0, max(n, 0)+1)
	for i := 0; i < n; i++ {
		ops = append(ops, KeyPress(k))
	}
	return ops
}

func isCursorFamily(family string, families []string) bool {
	family = strings.ToLower(strings.TrimSpace(family))
	for _, f := range families {
		if strings.ToLower(f) == family {
			return true
		}
	}
	return false
}

// KeySender is the session transport answers are written to.
type KeySender interface {
	SendText(ctx context.Context, session, text string, submit bool) error
	SendKey(ctx context.Context, session string, key Key) error
}

// Answerer encodes answers and writes them to a session in order.
// Callers must not run two answers against the same session concurrently.
type Answerer struct {
	Sender         KeySender
	CursorFamilies []string
	// KeyDelay is the pause between operations, giving the CLI time to redraw.
	KeyDelay time.Duration
	Logger   *slog.Logger
}

// SendAnswer encodes req and sends each operation, stopping at the first error.
// It returns the planned operations.
func (a *Answerer) SendAnswer(ctx context.Context, req AnswerRequest) ([]KeyOp, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, ErrEmptySession
	}
	families := a.CursorFamilies
	if families == nil {
		families = DefaultCursorFamilies
	}
	ops, err := EncodeAnswer(req, families)
	if err != nil {
		return nil, err
	}

	log := a.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Debug("sending prompt answer", "session", req.SessionID, "family", req.Family, "ops", len(ops))

	for i, op := range ops {
		if i > 0 && a.KeyDelay > 0 {
			t := time.NewTimer(a.KeyDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ops, ctx.Err()
			case <-t.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return ops, err
		}

		switch op.Kind {
		case OpText:
			err = a.Sender.SendText(ctx, req.SessionID, op.Text, op.Submit)
		case OpKey:
			err = a.Sender.SendKey(ctx, req.SessionID, op.Key)
		}
		if err != nil {
			return ops, fmt.Errorf("sending %s to %s: %w", op, req.SessionID, err)
		}
	}
	return ops, nil
}
