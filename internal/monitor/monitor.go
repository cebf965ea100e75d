// Package monitor polls terminal panes and reports prompts as they appear and
// disappear.
package monitor

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Dicklesworthstone/branchdesk/internal/config"
	"github.com/Dicklesworthstone/branchdesk/internal/events"
	"github.com/Dicklesworthstone/branchdesk/internal/metrics"
	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
)

// Source captures the recent contents of a pane.
type Source interface {
	Capture(ctx context.Context, target string, lines int) (string, error)
}

// FamilyResolver names the CLI tool family running in target, or "" if unknown.
type FamilyResolver func(ctx context.Context, target string) string

// Target is one pane (tmux) or session (zellij) to watch.
type Target struct {
	Name string
	// Family is the CLI tool family. Empty means resolve it on first poll.
	Family string
}

// UpdateKind says what changed for a target.
type UpdateKind string

const (
	Detected UpdateKind = "detected"
	// Moved means the same prompt is still waiting with its cursor on a
	// different option.
	Moved   UpdateKind = "moved"
	Cleared UpdateKind = "cleared"
)

// Update is delivered to the Handler when a target's prompt state changes.
type Update struct {
	Kind   UpdateKind
	Target string
	Family string
	Result prompt.Result
}

// Handler receives updates. Calls for one target are serial; different
// targets may call concurrently.
type Handler func(ctx context.Context, u Update)

// Options configures a Monitor.
type Options struct {
	Config    *config.Config
	Source    Source
	Resolver  FamilyResolver
	Transport string
	Logger    *slog.Logger
	Events    events.Sink
	Metrics   metrics.Recorder
	Handler   Handler
}

// targetState tracks what was last reported for a target.
type targetState struct {
	family       string
	resolved     bool
	pending      prompt.Data
	fingerprint  string
	lastRejected string // snapshot that last produced a rejection
}

// Monitor watches targets for prompts.
type Monitor struct {
	opts Options

	mu     sync.RWMutex
	cfg    *config.Config
	states map[string]*targetState

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Monitor. Nil Logger, Events and Metrics fall back to
// slog.Default, events.Discard and metrics.Nop.
func New(opts Options) *Monitor {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Events == nil {
		opts.Events = events.Discard
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop()
	}
	return &Monitor{
		opts:   opts,
		cfg:    opts.Config,
		states: make(map[string]*targetState),
	}
}

// SetConfig swaps the configuration used by subsequent polls.
func (m *Monitor) SetConfig(cfg *config.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
}

func (m *Monitor) config() *config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Start begins polling every target in the background, one goroutine each.
func (m *Monitor) Start(ctx context.Context, targets []Target) {
	ctx, m.cancel = context.WithCancel(ctx)
	for _, t := range targets {
		m.wg.Add(1)
		go m.loop(ctx, t)
	}
}

// Stop stops the monitor and waits for the poll loops to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) loop(ctx context.Context, t Target) {
	defer m.wg.Done()

	m.Poll(ctx, t)
	interval := pollInterval(m.config())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll(ctx, t)
			// Pick up a poll_interval_ms change from SetConfig.
			if next := pollInterval(m.config()); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

func pollInterval(cfg *config.Config) time.Duration {
	interval := time.Duration(cfg.Monitor.PollIntervalMs) * time.Millisecond
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	return interval
}

// Pending returns the prompts currently waiting, keyed by target.
func (m *Monitor) Pending() map[string]prompt.Data {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]prompt.Data)
	for name, s := range m.states {
		if s.pending != nil {
			out[name] = s.pending
		}
	}
	return out
}

func (m *Monitor) state(name string) *targetState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[name]
	if !ok {
		s = &targetState{}
		m.states[name] = s
	}
	return s
}

// Poll captures and classifies one target, reporting a change if there is
// one. It returns the update and whether anything changed.
func (m *Monitor) Poll(ctx context.Context, t Target) (Update, bool) {
	log := m.opts.Logger.With("target", t.Name)
	cfg := m.config()
	s := m.state(t.Name)

	if !s.resolved {
		s.family = t.Family
		if s.family == "" && m.opts.Resolver != nil {
			s.family = m.opts.Resolver(ctx, t.Name)
		}
		s.resolved = true
		log.Debug("resolved family", "family", s.family)
	}

	start := time.Now()
	snapshot, err := m.opts.Source.Capture(ctx, t.Name, cfg.Monitor.CaptureLines)
	m.opts.Metrics.ObserveCapture(m.opts.Transport, time.Since(start), err)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("capture failed", "error", err)
		}
		return Update{}, false
	}

	profile := cfg.Profile(s.family)
	res := prompt.Detect(snapshot, &profile)
	u := Update{Target: t.Name, Family: s.family, Result: res}

	if !res.IsPrompt {
		if res.RejectedBy != "" && snapshot != s.lastRejected {
			s.lastRejected = snapshot
			m.opts.Metrics.ObserveRejection(s.family, res.RejectedBy)
			log.Debug("candidate rejected", "guard", res.RejectedBy)
		}
		if s.pending == nil {
			return u, false
		}
		m.setPending(s, nil, "")
		u.Kind = Cleared
		log.Info("prompt cleared", "family", s.family)
		m.emit(log, events.PromptCleared(t.Name, s.family))
		m.deliver(ctx, u)
		return u, true
	}

	fp := Fingerprint(res.PromptData)
	if fp == s.fingerprint {
		return u, false
	}
	moved := SamePrompt(s.pending, res.PromptData)
	m.setPending(s, res.PromptData, fp)
	if moved {
		u.Kind = Moved
		log.Debug("prompt cursor moved", "family", s.family)
		m.deliver(ctx, u)
		return u, true
	}
	u.Kind = Detected
	kind := string(res.PromptData.Kind())
	m.opts.Metrics.ObserveDetection(s.family, kind)
	log.Info("prompt detected", "family", s.family, "type", kind, "question", res.PromptData.QuestionText())
	m.emit(log, events.PromptDetected(t.Name, s.family, res.PromptData))
	m.deliver(ctx, u)
	return u, true
}

func (m *Monitor) setPending(s *targetState, d prompt.Data, fp string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.pending = d
	s.fingerprint = fp
}

func (m *Monitor) emit(log *slog.Logger, e *events.Event) {
	if err := m.opts.Events.Log(e); err != nil {
		log.Warn("event log write failed", "error", err)
	}
}

func (m *Monitor) deliver(ctx context.Context, u Update) {
	if m.opts.Handler != nil {
		m.opts.Handler(ctx, u)
	}
}

// Fingerprint identifies a prompt by its content and highlighted option so a
// redraw of the same prompt is not reported twice.
func Fingerprint(d prompt.Data) string {
	fp := contentFingerprint(d)
	if mc, ok := d.(*prompt.MultipleChoiceData); ok {
		fp += "\x00@" + strconv.Itoa(mc.DefaultNumber())
	}
	return fp
}

// SamePrompt reports whether a and b are the same prompt, ignoring where the
// cursor sits.
func SamePrompt(a, b prompt.Data) bool {
	if a == nil || b == nil {
		return false
	}
	return contentFingerprint(a) == contentFingerprint(b)
}

func contentFingerprint(d prompt.Data) string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(d.Kind()))
	b.WriteByte(0)
	b.WriteString(d.QuestionText())
	switch v := d.(type) {
	case *prompt.MultipleChoiceData:
		for _, o := range v.Options {
			b.WriteByte(0)
			b.WriteString(o.Label)
		}
	case *prompt.YesNoData:
		b.WriteByte(0)
		b.WriteString(v.DefaultOption)
	}
	return b.String()
}
