// Package notify alerts a human that a prompt is waiting.
// Supports desktop notifications, webhooks and shell commands.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
)

// EventType represents the type of notification event
type EventType string

const (
	EventPromptWaiting  EventType = "prompt.waiting"  // A CLI is blocked on a prompt
	EventPromptAnswered EventType = "prompt.answered" // An answer was sent
	EventAnswerFailed   EventType = "answer.failed"   // Sending an answer failed
)

// Event represents a notification event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Target    string    `json:"target,omitempty"`
	Family    string    `json:"family,omitempty"`
	Question  string    `json:"question,omitempty"`
	Options   []string  `json:"options,omitempty"`
	Message   string    `json:"message"`
}

// Config holds notification configuration
type Config struct {
	Enabled bool     `toml:"enabled" yaml:"enabled" json:"enabled"`
	Events  []string `toml:"events" yaml:"events" json:"events"` // Which events to notify on

	Desktop DesktopConfig `toml:"desktop" yaml:"desktop" json:"desktop"`
	Webhook WebhookConfig `toml:"webhook" yaml:"webhook" json:"webhook"`
	Shell   ShellConfig   `toml:"shell" yaml:"shell" json:"shell"`
}

// DesktopConfig configures desktop notifications
type DesktopConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled" json:"enabled"`
	Title   string `toml:"title" yaml:"title" json:"title"` // Default title prefix
}

// WebhookConfig configures webhook notifications
type WebhookConfig struct {
	Enabled  bool              `toml:"enabled" yaml:"enabled" json:"enabled"`
	URL      string            `toml:"url" yaml:"url" json:"url"`
	Template string            `toml:"template" yaml:"template" json:"template"` // Go template for payload
	Method   string            `toml:"method" yaml:"method" json:"method"`       // HTTP method (default POST)
	Headers  map[string]string `toml:"headers" yaml:"headers" json:"headers,omitempty"`
}

// ShellConfig configures shell command notifications
type ShellConfig struct {
	Enabled  bool   `toml:"enabled" yaml:"enabled" json:"enabled"`
	Command  string `toml:"command" yaml:"command" json:"command"`       // Command to run
	PassJSON bool   `toml:"pass_json" yaml:"pass_json" json:"pass_json"` // Pass event as JSON stdin
}

// DefaultWebhookTemplate is the payload used when none is configured.
const DefaultWebhookTemplate = `{"text": {{json (printf "bdesk: %s is waiting: %q" .Target .Question)}}}`

// DefaultConfig returns a default notification configuration. Notifications
// are off until enabled.
func DefaultConfig() Config {
	return Config{
		Enabled: false,
		Events:  []string{string(EventPromptWaiting)},
		Desktop: DesktopConfig{
			Enabled: true,
			Title:   "bdesk",
		},
		Webhook: WebhookConfig{
			Method:   "POST",
			Template: DefaultWebhookTemplate,
		},
		Shell: ShellConfig{
			PassJSON: true,
		},
	}
}

// Notifier sends notifications through configured channels
type Notifier struct {
	config     Config
	enabledSet map[EventType]bool
	httpClient *http.Client
	// desktop is swapped in tests.
	desktop func(ctx context.Context, title, message string) error
}

// New creates a new Notifier with the given configuration
func New(cfg Config) *Notifier {
	n := &Notifier{
		config:     cfg,
		enabledSet: make(map[EventType]bool),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		desktop:    sendDesktop,
	}
	for _, e := range cfg.Events {
		n.enabledSet[EventType(e)] = true
	}
	return n
}

// PromptWaiting builds the event for a newly detected prompt.
func PromptWaiting(target, family string, d prompt.Data) Event {
	e := Event{
		Type:     EventPromptWaiting,
		Target:   target,
		Family:   family,
		Question: d.QuestionText(),
	}
	switch p := d.(type) {
	case *prompt.MultipleChoiceData:
		for _, o := range p.Options {
			e.Options = append(e.Options, fmt.Sprintf("%d. %s", o.Number, o.Label))
		}
	case *prompt.YesNoData:
		e.Options = []string{p.Options[0], p.Options[1]}
	}
	e.Message = e.Question
	if e.Message == "" {
		e.Message = "Prompt waiting"
	}
	return e
}

// PromptAnswered builds the event for a sent answer.
func PromptAnswered(target, family, answer string) Event {
	return Event{
		Type:    EventPromptAnswered,
		Target:  target,
		Family:  family,
		Message: fmt.Sprintf("Answered %q", answer),
	}
}

// AnswerFailed builds the event for an answer that could not be sent.
func AnswerFailed(target, family string, err error) Event {
	return Event{
		Type:    EventAnswerFailed,
		Target:  target,
		Family:  family,
		Message: err.Error(),
	}
}

// Notify sends a notification for the given event through every enabled
// channel in parallel.
func (n *Notifier) Notify(ctx context.Context, event Event) error {
	if !n.config.Enabled || !n.enabledSet[event.Type] {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var (
		wg    sync.WaitGroup
		errs  []error
		errMu sync.Mutex
	)
	send := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				errMu.Unlock()
			}
		}()
	}

	if n.config.Desktop.Enabled {
		send("desktop", func() error { return n.sendDesktop(ctx, event) })
	}
	if n.config.Webhook.Enabled && n.config.Webhook.URL != "" {
		send("webhook", func() error { return n.sendWebhook(ctx, event) })
	}
	if n.config.Shell.Enabled && n.config.Shell.Command != "" {
		send("shell", func() error { return n.sendShell(ctx, event) })
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (n *Notifier) sendDesktop(ctx context.Context, event Event) error {
	title := n.config.Desktop.Title
	if title == "" {
		title = "bdesk"
	}
	if event.Target != "" {
		title = fmt.Sprintf("%s [%s]", title, event.Target)
	}
	message := event.Message
	if message == "" {
		message = string(event.Type)
	}
	return n.desktop(ctx, title, message)
}

func sendDesktop(ctx context.Context, title, message string) error {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title %q`, message, title)
		return exec.CommandContext(ctx, "osascript", "-e", script).Run()
	case "linux":
		if _, err := exec.LookPath("notify-send"); err != nil {
			return fmt.Errorf("notify-send not found")
		}
		return exec.CommandContext(ctx, "notify-send", title, message).Run()
	default:
		return fmt.Errorf("desktop notifications not supported on %s", runtime.GOOS)
	}
}

var templateFuncs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

func (n *Notifier) sendWebhook(ctx context.Context, event Event) error {
	tmplStr := n.config.Webhook.Template
	if tmplStr == "" {
		tmplStr = DefaultWebhookTemplate
	}
	tmpl, err := template.New("webhook").Funcs(templateFuncs).Parse(tmplStr)
	if err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, event); err != nil {
		return fmt.Errorf("template execution failed: %w", err)
	}

	method := n.config.Webhook.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, n.config.Webhook.URL, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range n.config.Webhook.Headers {
		req.Header.Set(k, v)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (n *Notifier) sendShell(ctx context.Context, event Event) error {
	cmdStr := n.config.Shell.Command
	if strings.HasPrefix(cmdStr, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			cmdStr = filepath.Join(home, cmdStr[1:])
		}
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	if n.config.Shell.PassJSON {
		eventJSON, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		cmd.Stdin = bytes.NewReader(eventJSON)
	}
	cmd.Env = append(os.Environ(),
		"BDESK_EVENT_TYPE="+string(event.Type),
		"BDESK_EVENT_MESSAGE="+event.Message,
		"BDESK_EVENT_TARGET="+event.Target,
		"BDESK_EVENT_FAMILY="+event.Family,
		"BDESK_EVENT_QUESTION="+event.Question,
	)
	return cmd.Run()
}
