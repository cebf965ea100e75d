package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dicklesworthstone/branchdesk/internal/config"
	"github.com/Dicklesworthstone/branchdesk/internal/events"
	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
)

const (
	menuScreen   = "Do you want to proceed?\n❯ 1. Yes\n  2. No"
	otherMenu    = "Do you want to proceed?\n❯ 1. Yes\n  2. No, tell Claude what to do"
	movedMenu    = "Do you want to proceed?\n  1. Yes\n❯ 2. No"
	plainScreen  = "$ go test ./...\nok"
	noCursorMenu = "Which one?\n  1. Yes\n  2. No"
)

type fakeSource struct {
	mu     sync.Mutex
	screen string
	err    error
	calls  int
}

func (f *fakeSource) set(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.screen = s
}

func (f *fakeSource) Capture(_ context.Context, _ string, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.screen, f.err
}

type countingRecorder struct {
	mu         sync.Mutex
	detections int
	rejections map[string]int
	captureErr int
}

func (r *countingRecorder) ObserveDetection(_, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detections++
}

func (r *countingRecorder) ObserveRejection(_, guard string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rejections == nil {
		r.rejections = make(map[string]int)
	}
	r.rejections[guard]++
}

func (r *countingRecorder) ObserveAnswer(_, _ string, _ bool) {}

func (r *countingRecorder) ObserveCapture(_ string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.captureErr++
	}
}

type memorySink struct {
	mu     sync.Mutex
	events []*events.Event
}

func (s *memorySink) Log(e *events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *memorySink) types() []events.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []events.EventType
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

func TestPollLifecycle(t *testing.T) {
	src := &fakeSource{screen: menuScreen}
	sink := &memorySink{}
	rec := &countingRecorder{}
	var got []Update
	m := New(Options{
		Source:  src,
		Events:  sink,
		Metrics: rec,
		Handler: func(_ context.Context, u Update) { got = append(got, u) },
	})
	ctx := context.Background()
	target := Target{Name: "dev:0.1", Family: "claude"}

	u, changed := m.Poll(ctx, target)
	if !changed || u.Kind != Detected {
		t.Fatalf("first poll = %+v, %v; want detected", u, changed)
	}
	if _, ok := m.Pending()["dev:0.1"]; !ok {
		t.Error("prompt not pending after detection")
	}

	if _, changed := m.Poll(ctx, target); changed {
		t.Error("unchanged prompt reported twice")
	}

	src.set(otherMenu)
	if u, changed := m.Poll(ctx, target); !changed || u.Kind != Detected {
		t.Errorf("new menu = %+v, %v; want detected", u, changed)
	}

	src.set(plainScreen)
	if u, changed := m.Poll(ctx, target); !changed || u.Kind != Cleared {
		t.Errorf("plain screen = %+v, %v; want cleared", u, changed)
	}
	if len(m.Pending()) != 0 {
		t.Errorf("pending = %v, want empty", m.Pending())
	}

	if _, changed := m.Poll(ctx, target); changed {
		t.Error("cleared reported twice")
	}

	if len(got) != 3 {
		t.Fatalf("handler calls = %d, want 3", len(got))
	}
	want := []events.EventType{events.EventPromptDetected, events.EventPromptDetected, events.EventPromptCleared}
	types := sink.types()
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}
	if rec.detections != 2 {
		t.Errorf("detections = %d, want 2", rec.detections)
	}
}

func TestPollReportsCursorMove(t *testing.T) {
	src := &fakeSource{screen: menuScreen}
	sink := &memorySink{}
	rec := &countingRecorder{}
	m := New(Options{Source: src, Events: sink, Metrics: rec})
	ctx := context.Background()
	target := Target{Name: "dev:0.1", Family: "claude"}

	if u, _ := m.Poll(ctx, target); u.Kind != Detected {
		t.Fatalf("first poll = %s, want detected", u.Kind)
	}

	src.set(movedMenu)
	u, changed := m.Poll(ctx, target)
	if !changed || u.Kind != Moved {
		t.Fatalf("cursor move = %+v, %v; want moved", u, changed)
	}
	pending, ok := m.Pending()["dev:0.1"].(*prompt.MultipleChoiceData)
	if !ok || pending.DefaultNumber() != 2 {
		t.Errorf("pending default not refreshed: %+v", m.Pending()["dev:0.1"])
	}
	if rec.detections != 1 || len(sink.types()) != 1 {
		t.Errorf("cursor move counted as a new prompt: detections=%d events=%v", rec.detections, sink.types())
	}

	if _, changed := m.Poll(ctx, target); changed {
		t.Error("unchanged cursor reported twice")
	}
}

func TestPollCountsRejectionOncePerScreen(t *testing.T) {
	src := &fakeSource{screen: noCursorMenu}
	rec := &countingRecorder{}
	m := New(Options{Source: src, Metrics: rec})
	target := Target{Name: "w", Family: "claude"}

	for i := 0; i < 3; i++ {
		if _, changed := m.Poll(context.Background(), target); changed {
			t.Fatal("rejected candidate reported as a change")
		}
	}
	if n := rec.rejections[prompt.GuardCursorRequired]; n != 1 {
		t.Errorf("cursor_required rejections = %d, want 1", n)
	}
}

func TestPollUsesFamilyProfile(t *testing.T) {
	src := &fakeSource{screen: noCursorMenu}
	m := New(Options{Source: src})

	u, changed := m.Poll(context.Background(), Target{Name: "a", Family: "codex"})
	if !changed || u.Kind != Detected {
		t.Errorf("loose family should accept a menu without a cursor: %+v", u.Result)
	}
}

func TestPollResolvesFamilyOnce(t *testing.T) {
	src := &fakeSource{screen: menuScreen}
	calls := 0
	m := New(Options{
		Source: src,
		Resolver: func(_ context.Context, target string) string {
			calls++
			return "claude"
		},
	})
	target := Target{Name: "dev:1"}
	u, _ := m.Poll(context.Background(), target)
	m.Poll(context.Background(), target)

	if calls != 1 {
		t.Errorf("resolver calls = %d, want 1", calls)
	}
	if u.Family != "claude" {
		t.Errorf("family = %q, want claude", u.Family)
	}
}

func TestPollCaptureError(t *testing.T) {
	src := &fakeSource{err: errors.New("can't find pane")}
	rec := &countingRecorder{}
	m := New(Options{Source: src, Metrics: rec})

	if _, changed := m.Poll(context.Background(), Target{Name: "gone"}); changed {
		t.Error("capture error reported as a change")
	}
	if rec.captureErr != 1 {
		t.Errorf("capture errors = %d, want 1", rec.captureErr)
	}
}

func TestStartStop(t *testing.T) {
	cfg := config.Default()
	cfg.Monitor.PollIntervalMs = 10
	src := &fakeSource{screen: plainScreen}
	updates := make(chan Update, 4)
	m := New(Options{
		Config:  cfg,
		Source:  src,
		Handler: func(_ context.Context, u Update) { updates <- u },
	})

	m.Start(context.Background(), []Target{{Name: "dev", Family: "claude"}})
	src.set(menuScreen)

	select {
	case u := <-updates:
		if u.Kind != Detected || u.Target != "dev" {
			t.Errorf("update = %+v", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update before timeout")
	}

	m.Stop()
	src.mu.Lock()
	calls := src.calls
	src.mu.Unlock()
	time.Sleep(250 * time.Millisecond)
	src.mu.Lock()
	defer src.mu.Unlock()
	if src.calls != calls {
		t.Errorf("captures continued after Stop: %d -> %d", calls, src.calls)
	}
}

func TestLoopPicksUpNewInterval(t *testing.T) {
	cfg := config.Default()
	cfg.Monitor.PollIntervalMs = 150
	src := &fakeSource{screen: plainScreen}
	m := New(Options{Config: cfg, Source: src})

	m.Start(context.Background(), []Target{{Name: "dev", Family: "claude"}})
	faster := config.Default()
	faster.Monitor.PollIntervalMs = 20
	m.SetConfig(faster)
	time.Sleep(600 * time.Millisecond)
	m.Stop()

	src.mu.Lock()
	defer src.mu.Unlock()
	// At 150ms the loop would poll about 5 times in 600ms.
	if src.calls < 10 {
		t.Errorf("captures = %d; interval change not applied", src.calls)
	}
}

func TestSetConfig(t *testing.T) {
	src := &fakeSource{screen: noCursorMenu}
	m := New(Options{Source: src})
	target := Target{Name: "x", Family: "claude"}

	if _, changed := m.Poll(context.Background(), target); changed {
		t.Fatal("strict family accepted a menu without a cursor")
	}

	cfg := config.Default()
	fc := cfg.Families["claude"]
	fc.RequireDefaultIndicator = false
	cfg.Families["claude"] = fc
	m.SetConfig(cfg)

	if _, changed := m.Poll(context.Background(), target); !changed {
		t.Error("relaxed profile should detect the menu")
	}
}

func TestFingerprint(t *testing.T) {
	a := prompt.NewMultipleChoice("Pick", []prompt.Option{{Number: 1, Label: "A"}, {Number: 2, Label: "B"}})
	b := prompt.NewMultipleChoice("Pick", []prompt.Option{{Number: 1, Label: "A"}, {Number: 2, Label: "C"}})
	yes := prompt.NewYesNo("Pick", "yes")
	no := prompt.NewYesNo("Pick", "no")

	if Fingerprint(a) == Fingerprint(b) {
		t.Error("menus with different labels share a fingerprint")
	}
	if Fingerprint(yes) == Fingerprint(no) {
		t.Error("yes/no prompts with different defaults share a fingerprint")
	}
	first := prompt.NewMultipleChoice("Pick", []prompt.Option{{Number: 1, Label: "A", IsDefault: true}, {Number: 2, Label: "B"}})
	second := prompt.NewMultipleChoice("Pick", []prompt.Option{{Number: 1, Label: "A"}, {Number: 2, Label: "B", IsDefault: true}})
	if Fingerprint(first) == Fingerprint(second) {
		t.Error("cursor position not part of the fingerprint")
	}
	if !SamePrompt(first, second) || SamePrompt(a, b) || SamePrompt(nil, a) {
		t.Error("SamePrompt should ignore only the cursor position")
	}
	if Fingerprint(nil) != "" {
		t.Error("nil fingerprint should be empty")
	}
}
