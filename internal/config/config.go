package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Dicklesworthstone/branchdesk/internal/notify"
)

// Transport names the terminal multiplexer sessions live in.
type Transport string

const (
	TransportTmux   Transport = "tmux"
	TransportZellij Transport = "zellij"
)

// Config represents the main configuration
type Config struct {
	Families  map[string]FamilyConfig `toml:"families" yaml:"families" json:"families"`
	Detection DetectionConfig         `toml:"detection" yaml:"detection" json:"detection"`
	Answer    AnswerConfig            `toml:"answer" yaml:"answer" json:"answer"`
	Monitor   MonitorConfig           `toml:"monitor" yaml:"monitor" json:"monitor"`
	Events    EventsConfig            `toml:"events" yaml:"events" json:"events"`
	Metrics   MetricsConfig           `toml:"metrics" yaml:"metrics" json:"metrics"`
	Notify    notify.Config           `toml:"notify" yaml:"notify" json:"notify"`

	// Runtime-only: the project override file merged into this config, if any.
	ProjectFile string `toml:"-" yaml:"-" json:"project_file,omitempty"`
}

// FamilyConfig describes how one CLI tool family draws its prompts.
type FamilyConfig struct {
	RequireDefaultIndicator bool     `toml:"require_default_indicator" yaml:"require_default_indicator" json:"require_default_indicator"`
	CursorMenus             bool     `toml:"cursor_menus" yaml:"cursor_menus" json:"cursor_menus"`
	Commands                []string `toml:"commands" yaml:"commands" json:"commands"` // pane process names that identify the family
}

// DetectionConfig tunes the prompt classifier.
type DetectionConfig struct {
	QuestionWindow    int      `toml:"question_window" yaml:"question_window" json:"question_window"`
	NarrationDenyList []string `toml:"narration_deny_list" yaml:"narration_deny_list" json:"narration_deny_list"`
}

// AnswerConfig tunes keystroke delivery.
type AnswerConfig struct {
	KeyDelayMs int `toml:"key_delay_ms" yaml:"key_delay_ms" json:"key_delay_ms"`
}

// MonitorConfig holds settings for the watch loop.
type MonitorConfig struct {
	PollIntervalMs int       `toml:"poll_interval_ms" yaml:"poll_interval_ms" json:"poll_interval_ms"`
	CaptureLines   int       `toml:"capture_lines" yaml:"capture_lines" json:"capture_lines"`
	Transport      Transport `toml:"transport" yaml:"transport" json:"transport"`
}

// EventsConfig controls the JSONL event log.
type EventsConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled" json:"enabled"`
	Path    string `toml:"path" yaml:"path" json:"path"`
}

// MetricsConfig controls the Prometheus endpoint served by watch.
type MetricsConfig struct {
	Listen string `toml:"listen" yaml:"listen" json:"listen"` // empty disables the endpoint
}

// DefaultPath returns the default config file path
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bdesk", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "bdesk", "config.toml")
}

// DefaultEventsPath returns the default event log path
func DefaultEventsPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "bdesk", "events.jsonl")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "bdesk", "events.jsonl")
}

// DefaultFamilies returns the built-in CLI tool families.
func DefaultFamilies() map[string]FamilyConfig {
	return map[string]FamilyConfig{
		"claude": {RequireDefaultIndicator: true, CursorMenus: true, Commands: []string{"claude"}},
		"codex":  {Commands: []string{"codex"}},
		"gemini": {Commands: []string{"gemini"}},
	}
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Families: DefaultFamilies(),
		Detection: DetectionConfig{
			QuestionWindow: 50,
		},
		Answer: AnswerConfig{
			KeyDelayMs: 50,
		},
		Monitor: MonitorConfig{
			PollIntervalMs: 2000,
			CaptureLines:   200,
			Transport:      TransportTmux,
		},
		Events: EventsConfig{
			Enabled: true,
			Path:    DefaultEventsPath(),
		},
		Notify: notify.DefaultConfig(),
	}
}

// Load reads the TOML config at path (DefaultPath if empty), filling missing
// values from Default and applying environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults(md)
	// Booleans that default to true cannot be told apart from an explicit false
	// after decoding.
	if !md.IsDefined("events", "enabled") {
		cfg.Events.Enabled = true
	}
	if !md.IsDefined("notify", "desktop", "enabled") {
		cfg.Notify.Desktop.Enabled = true
	}
	if !md.IsDefined("notify", "shell", "pass_json") {
		cfg.Notify.Shell.PassJSON = true
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault is Load that falls back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		if err := cfg.applyEnv(); err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}
	return cfg, err
}

func (c *Config) applyDefaults(md toml.MetaData) {
	defaults := Default()

	// Families from the file extend the built-ins. A family named in the file
	// overrides only the keys it sets.
	families := DefaultFamilies()
	for name, f := range c.Families {
		key := strings.ToLower(name)
		base, ok := families[key]
		if !ok {
			families[key] = f
			continue
		}
		if md.IsDefined("families", name, "require_default_indicator") {
			base.RequireDefaultIndicator = f.RequireDefaultIndicator
		}
		if md.IsDefined("families", name, "cursor_menus") {
			base.CursorMenus = f.CursorMenus
		}
		if md.IsDefined("families", name, "commands") {
			base.Commands = f.Commands
		}
		families[key] = base
	}
	c.Families = families

	if c.Detection.QuestionWindow <= 0 {
		c.Detection.QuestionWindow = defaults.Detection.QuestionWindow
	}
	if c.Answer.KeyDelayMs <= 0 {
		c.Answer.KeyDelayMs = defaults.Answer.KeyDelayMs
	}
	if c.Monitor.PollIntervalMs <= 0 {
		c.Monitor.PollIntervalMs = defaults.Monitor.PollIntervalMs
	}
	if c.Monitor.CaptureLines <= 0 {
		c.Monitor.CaptureLines = defaults.Monitor.CaptureLines
	}
	if c.Monitor.Transport == "" {
		c.Monitor.Transport = defaults.Monitor.Transport
	}
	if c.Events.Path == "" {
		c.Events.Path = defaults.Events.Path
	}
	if len(c.Notify.Events) == 0 {
		c.Notify.Events = defaults.Notify.Events
	}
	if c.Notify.Desktop.Title == "" {
		c.Notify.Desktop.Title = defaults.Notify.Desktop.Title
	}
	if c.Notify.Webhook.Method == "" {
		c.Notify.Webhook.Method = defaults.Notify.Webhook.Method
	}
	if c.Notify.Webhook.Template == "" {
		c.Notify.Webhook.Template = defaults.Notify.Webhook.Template
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BDESK_POLL_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return fmt.Errorf("invalid BDESK_POLL_INTERVAL_MS %q", v)
		}
		c.Monitor.PollIntervalMs = ms
	}
	if v := os.Getenv("BDESK_TRANSPORT"); v != "" {
		c.Monitor.Transport = Transport(strings.ToLower(v))
	}
	if v := os.Getenv("BDESK_EVENTS_ENABLED"); v != "" {
		c.Events.Enabled = v == "1" || v == "true"
	}
	if v := os.Getenv("BDESK_NOTIFY_ENABLED"); v != "" {
		c.Notify.Enabled = v == "1" || v == "true"
	}
	return nil
}

// Validate checks values Load cannot repair.
func (c *Config) Validate() error {
	switch c.Monitor.Transport {
	case TransportTmux, TransportZellij:
	default:
		return fmt.Errorf("unknown transport %q (want tmux or zellij)", c.Monitor.Transport)
	}
	if c.Detection.QuestionWindow > 50 {
		return fmt.Errorf("detection.question_window must be at most 50, got %d", c.Detection.QuestionWindow)
	}
	return nil
}

// FamilyNames returns the configured family names in sorted order.
func (c *Config) FamilyNames() []string {
	names := make([]string, 0, len(c.Families))
	for name := range c.Families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateDefault creates a default config file
func CreateDefault() (string, error) {
	path := DefaultPath()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists: %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := Print(Default(), f); err != nil {
		return "", err
	}

	return path, nil
}

// Print writes config to a writer in TOML format
func Print(cfg *Config, w io.Writer) error {
	fmt.Fprintln(w, "# bdesk configuration")
	fmt.Fprintln(w)

	for _, name := range cfg.FamilyNames() {
		f := cfg.Families[name]
		fmt.Fprintf(w, "[families.%s]\n", name)
		fmt.Fprintln(w, "# Reject menus that show no cursor marker")
		fmt.Fprintf(w, "require_default_indicator = %t\n", f.RequireDefaultIndicator)
		fmt.Fprintln(w, "# Answer menus with arrow keys instead of typing the number")
		fmt.Fprintf(w, "cursor_menus = %t\n", f.CursorMenus)
		fmt.Fprintf(w, "commands = %s\n", tomlStrings(f.Commands))
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "[detection]")
	fmt.Fprintln(w, "# Lines above a menu searched for its question (max 50)")
	fmt.Fprintf(w, "question_window = %d\n", cfg.Detection.QuestionWindow)
	if len(cfg.Detection.NarrationDenyList) > 0 {
		fmt.Fprintf(w, "narration_deny_list = %s\n", tomlStrings(cfg.Detection.NarrationDenyList))
	} else {
		fmt.Fprintln(w, "# Phrases that mark a heading as narration, replacing the built-in list")
		fmt.Fprintln(w, `# narration_deny_list = ["i have", "summary", "steps"]`)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[answer]")
	fmt.Fprintln(w, "# Pause between keystrokes while answering")
	fmt.Fprintf(w, "key_delay_ms = %d\n", cfg.Answer.KeyDelayMs)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[monitor]")
	fmt.Fprintln(w, "# Environment variables: BDESK_POLL_INTERVAL_MS, BDESK_TRANSPORT")
	fmt.Fprintf(w, "poll_interval_ms = %d\n", cfg.Monitor.PollIntervalMs)
	fmt.Fprintf(w, "capture_lines = %d\n", cfg.Monitor.CaptureLines)
	fmt.Fprintf(w, "transport = %q\n", cfg.Monitor.Transport)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[events]")
	fmt.Fprintf(w, "enabled = %t\n", cfg.Events.Enabled)
	fmt.Fprintf(w, "path = %q\n", cfg.Events.Path)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[metrics]")
	fmt.Fprintln(w, "# Address for the Prometheus endpoint served by 'bdesk watch'")
	if cfg.Metrics.Listen != "" {
		fmt.Fprintf(w, "listen = %q\n", cfg.Metrics.Listen)
	} else {
		fmt.Fprintln(w, `# listen = "127.0.0.1:9464"`)
	}
	fmt.Fprintln(w)

	n := cfg.Notify
	fmt.Fprintln(w, "[notify]")
	fmt.Fprintln(w, "# Alert when 'bdesk watch' finds a prompt waiting (BDESK_NOTIFY_ENABLED)")
	fmt.Fprintf(w, "enabled = %t\n", n.Enabled)
	fmt.Fprintln(w, "# prompt.waiting, prompt.answered, answer.failed")
	fmt.Fprintf(w, "events = %s\n", tomlStrings(n.Events))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[notify.desktop]")
	fmt.Fprintf(w, "enabled = %t\n", n.Desktop.Enabled)
	fmt.Fprintf(w, "title = %q\n", n.Desktop.Title)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[notify.webhook]")
	fmt.Fprintf(w, "enabled = %t\n", n.Webhook.Enabled)
	if n.Webhook.URL != "" {
		fmt.Fprintf(w, "url = %q\n", n.Webhook.URL)
	} else {
		fmt.Fprintln(w, `# url = "https://hooks.example.com/bdesk"`)
	}
	fmt.Fprintf(w, "method = %q\n", n.Webhook.Method)
	fmt.Fprintf(w, "template = %q\n", n.Webhook.Template)
	if len(n.Webhook.Headers) > 0 {
		keys := make([]string, 0, len(n.Webhook.Headers))
		for k := range n.Webhook.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "[notify.webhook.headers]")
		for _, k := range keys {
			fmt.Fprintf(w, "%q = %q\n", k, n.Webhook.Headers[k])
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[notify.shell]")
	fmt.Fprintf(w, "enabled = %t\n", n.Shell.Enabled)
	if n.Shell.Command != "" {
		fmt.Fprintf(w, "command = %q\n", n.Shell.Command)
	} else {
		fmt.Fprintln(w, `# command = "~/bin/on-prompt.sh"`)
	}
	fmt.Fprintf(w, "pass_json = %t\n", n.Shell.PassJSON)

	return nil
}

func tomlStrings(ss []string) string {
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
