package zellij

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
)

type mockExecutor struct {
	calls [][]string
	// onRun lets a test act on the arguments, e.g. fill a dump-screen file.
	onRun func(args []string) (string, error)
}

func (m *mockExecutor) Run(_ context.Context, args ...string) (string, error) {
	m.calls = append(m.calls, append([]string(nil), args...))
	if m.onRun != nil {
		return m.onRun(args)
	}
	return "", nil
}

func TestSendAnswerThroughZellij(t *testing.T) {
	m := &mockExecutor{}
	c := NewClient(WithExecutor(m))
	a := &prompt.Answerer{Sender: c}

	_, err := a.SendAnswer(context.Background(), prompt.AnswerRequest{
		SessionID: "work",
		Answer:    "1",
		Family:    "claude",
		PromptData: prompt.NewMultipleChoice("Which?", []prompt.Option{
			{Number: 1, Label: "A"},
			{Number: 2, Label: "B", IsDefault: true},
		}),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"--session", "work", "action", "write", "27", "91", "65"},
		{"--session", "work", "action", "write", "13"},
	}
	if !reflect.DeepEqual(m.calls, want) {
		t.Errorf("calls = %v, want %v", m.calls, want)
	}
}

func TestSendText(t *testing.T) {
	m := &mockExecutor{}
	c := NewClient(WithExecutor(m))
	if err := c.SendText(context.Background(), "work", "use pgx", true); err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"--session", "work", "action", "write-chars", "use pgx"},
		{"--session", "work", "action", "write", "13"},
	}
	if !reflect.DeepEqual(m.calls, want) {
		t.Errorf("calls = %v, want %v", m.calls, want)
	}
}

func TestEmptySession(t *testing.T) {
	m := &mockExecutor{}
	c := NewClient(WithExecutor(m))
	if err := c.SendKey(context.Background(), "", prompt.KeyEnter); !errors.Is(err, ErrEmptySession) {
		t.Errorf("err = %v, want ErrEmptySession", err)
	}
	if len(m.calls) != 0 {
		t.Errorf("zellij invoked: %v", m.calls)
	}
}

func TestCapture(t *testing.T) {
	m := &mockExecutor{onRun: func(args []string) (string, error) {
		path := args[len(args)-1]
		return "", os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0600)
	}}
	c := NewClient(WithExecutor(m))

	out, err := c.Capture(context.Background(), "work", 2)
	if err != nil {
		t.Fatal(err)
	}
	if out != "three\nfour" {
		t.Errorf("Capture = %q", out)
	}
	path := m.calls[0][len(m.calls[0])-1]
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("capture file %s not removed", path)
	}
}

func TestCaptureError(t *testing.T) {
	m := &mockExecutor{onRun: func([]string) (string, error) {
		return "", errors.New("no session")
	}}
	c := NewClient(WithExecutor(m))
	if _, err := c.Capture(context.Background(), "gone", 10); err == nil {
		t.Error("expected error")
	}
}

func TestListSessions(t *testing.T) {
	m := &mockExecutor{onRun: func([]string) (string, error) {
		return "alpha\n\nbeta\n", nil
	}}
	c := NewClient(WithExecutor(m))
	names, err := c.ListSessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"alpha", "beta"}) {
		t.Errorf("names = %v", names)
	}
}
