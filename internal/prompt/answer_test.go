package prompt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func menu(defaultNumber int, labels ...string) *MultipleChoiceData {
	opts := make([]Option, len(labels))
	for i, l := range labels {
		opts[i] = Option{Number: i + 1, Label: l, IsDefault: i+1 == defaultNumber}
	}
	return NewMultipleChoice("Which one?", opts)
}

func keys(ops []KeyOp) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.String()
	}
	return out
}

func TestEncodeAnswer_CursorFamily(t *testing.T) {
	tests := []struct {
		name   string
		data   Data
		answer string
		want   []string
	}{
		{"default option", menu(1, "Yes", "No"), "1", []string{"Enter"}},
		{"forward", menu(1, "A", "B", "C"), "3", []string{"Down", "Down", "Enter"}},
		{"backward", menu(3, "A", "B", "C"), "1", []string{"Up", "Up", "Enter"}},
		{"no marked default", menu(0, "A", "B"), "2", []string{"Down", "Enter"}},
		{"padded number", menu(1, "A", "B"), " 2 ", []string{"Down", "Enter"}},
		{
			"multi-select toggle",
			menu(1, "[ ] A", "[ ] B", "[ ] C"),
			"2",
			[]string{"Down", "Space", "Down", "Down", "Enter"},
		},
		{
			"multi-select default",
			menu(1, "[ ] A", "[x] B"),
			"1",
			[]string{"Space", "Down", "Down", "Enter"},
		},
		{"label answer falls back to text", menu(1, "Yes", "No"), "Yes", []string{`"Yes"`, "Enter"}},
		{"yes/no uses text", NewYesNo("Proceed?", "yes"), "y", []string{`"y"`, "Enter"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, err := EncodeAnswer(AnswerRequest{
				SessionID:  "s1",
				Answer:     tt.answer,
				Family:     "claude",
				PromptData: tt.data,
			}, DefaultCursorFamilies)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys(ops))
		})
	}
}

func TestEncodeAnswer_NonCursorFamilyAlwaysText(t *testing.T) {
	for _, family := range []string{"codex", "gemini", "", "vibe-local"} {
		ops, err := EncodeAnswer(AnswerRequest{
			SessionID:  "s1",
			Answer:     "3",
			Family:     family,
			PromptData: menu(1, "A", "B", "C"),
		}, DefaultCursorFamilies)
		require.NoError(t, err)
		assert.Equal(t, []KeyOp{TextOp("3"), KeyPress(KeyEnter)}, ops)
	}
}

func TestEncodeAnswer_FamilyCaseInsensitive(t *testing.T) {
	ops, err := EncodeAnswer(AnswerRequest{Answer: "2", Family: "Claude", PromptData: menu(1, "A", "B")}, DefaultCursorFamilies)
	require.NoError(t, err)
	assert.Equal(t, []string{"Down", "Enter"}, keys(ops))
}

func TestEncodeAnswer_Fallback(t *testing.T) {
	ops, err := EncodeAnswer(AnswerRequest{
		Answer:          "4",
		Family:          "claude",
		FallbackType:    TypeMultipleChoice,
		FallbackDefault: 2,
	}, DefaultCursorFamilies)
	require.NoError(t, err)
	assert.Equal(t, []string{"Down", "Down", "Enter"}, keys(ops))

	ops, err = EncodeAnswer(AnswerRequest{Answer: "2", Family: "claude", FallbackType: TypeMultipleChoice}, DefaultCursorFamilies)
	require.NoError(t, err)
	assert.Equal(t, []string{"Down", "Enter"}, keys(ops))

	ops, err = EncodeAnswer(AnswerRequest{Answer: "2", Family: "claude", FallbackType: TypeYesNo}, DefaultCursorFamilies)
	require.NoError(t, err)
	assert.Equal(t, []string{`"2"`, "Enter"}, keys(ops))
}

func TestEncodeAnswer_LiveDataWins(t *testing.T) {
	ops, err := EncodeAnswer(AnswerRequest{
		Answer:          "2",
		Family:          "claude",
		PromptData:      menu(2, "A", "B", "C"),
		FallbackType:    TypeMultipleChoice,
		FallbackDefault: 1,
	}, DefaultCursorFamilies)
	require.NoError(t, err)
	assert.Equal(t, []string{"Enter"}, keys(ops))

	ops, err = EncodeAnswer(AnswerRequest{
		Answer:       "2",
		Family:       "claude",
		PromptData:   NewYesNo("Proceed?", ""),
		FallbackType: TypeMultipleChoice,
	}, DefaultCursorFamilies)
	require.NoError(t, err)
	assert.Equal(t, []string{`"2"`, "Enter"}, keys(ops))
}

func TestEncodeAnswer_InvalidNumbers(t *testing.T) {
	_, err := EncodeAnswer(AnswerRequest{Answer: "0", Family: "claude", PromptData: menu(1, "A", "B")}, DefaultCursorFamilies)
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = EncodeAnswer(AnswerRequest{Answer: "-1", Family: "claude", PromptData: menu(1, "A", "B")}, DefaultCursorFamilies)
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = EncodeAnswer(AnswerRequest{Answer: "3", Family: "claude", PromptData: menu(1, "A", "B")}, DefaultCursorFamilies)
	assert.ErrorIs(t, err, ErrOptionOutOfRange)
}

type recordingSender struct {
	ops    []KeyOp
	failAt int
}

func (r *recordingSender) record(op KeyOp) error {
	if r.failAt > 0 && len(r.ops)+1 == r.failAt {
		return errors.New("pane gone")
	}
	r.ops = append(r.ops, op)
	return nil
}

func (r *recordingSender) SendText(_ context.Context, _ string, text string, submit bool) error {
	return r.record(KeyOp{Kind: OpText, Text: text, Submit: submit})
}

func (r *recordingSender) SendKey(_ context.Context, _ string, key Key) error {
	return r.record(KeyPress(key))
}

func TestAnswerer_SendsInOrder(t *testing.T) {
	rec := &recordingSender{}
	a := &Answerer{Sender: rec}
	planned, err := a.SendAnswer(context.Background(), AnswerRequest{
		SessionID:  "main:0.1",
		Answer:     "2",
		Family:     "claude",
		PromptData: menu(1, "[ ] A", "[ ] B", "[ ] C"),
	})
	require.NoError(t, err)
	assert.Equal(t, planned, rec.ops)
	assert.Equal(t, []string{"Down", "Space", "Down", "Down", "Enter"}, keys(rec.ops))
}

func TestAnswerer_EmptySession(t *testing.T) {
	a := &Answerer{Sender: &recordingSender{}}
	_, err := a.SendAnswer(context.Background(), AnswerRequest{Answer: "y"})
	assert.ErrorIs(t, err, ErrEmptySession)
}

func TestAnswerer_StopsOnSendError(t *testing.T) {
	rec := &recordingSender{failAt: 2}
	a := &Answerer{Sender: rec}
	_, err := a.SendAnswer(context.Background(), AnswerRequest{SessionID: "s", Answer: "hello", Family: "codex"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pane gone")
	assert.Len(t, rec.ops, 1)
}

func TestAnswerer_ContextCancelled(t *testing.T) {
	rec := &recordingSender{}
	a := &Answerer{Sender: rec, KeyDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := a.SendAnswer(ctx, AnswerRequest{SessionID: "s", Answer: "3", Family: "claude", PromptData: menu(1, "A", "B", "C")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rec.ops, 1)
}

func TestAnswerer_CustomCursorFamilies(t *testing.T) {
	rec := &recordingSender{}
	a := &Answerer{Sender: rec, CursorFamilies: []string{"vibe-local"}}
	_, err := a.SendAnswer(context.Background(), AnswerRequest{SessionID: "s", Answer: "2", Family: "vibe-local", PromptData: menu(1, "A", "B")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Down", "Enter"}, keys(rec.ops))
}
