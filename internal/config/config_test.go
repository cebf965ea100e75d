package config

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if !cfg.Families["claude"].RequireDefaultIndicator || !cfg.Families["claude"].CursorMenus {
		t.Error("claude should be strict with cursor menus")
	}
	if cfg.Families["codex"].CursorMenus {
		t.Error("codex should answer with text")
	}
	if cfg.Monitor.Transport != TransportTmux {
		t.Errorf("Transport = %q, want tmux", cfg.Monitor.Transport)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestDefaultPathXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := DefaultPath(); got != "/tmp/xdg/bdesk/config.toml" {
		t.Errorf("DefaultPath() = %q", got)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[families.vibe]
cursor_menus = true
commands = ["vibe-local"]

[monitor]
poll_interval_ms = 750
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Monitor.PollIntervalMs != 750 {
		t.Errorf("PollIntervalMs = %d, want 750", cfg.Monitor.PollIntervalMs)
	}
	if cfg.Monitor.CaptureLines != 200 {
		t.Errorf("CaptureLines = %d, want default 200", cfg.Monitor.CaptureLines)
	}
	if _, ok := cfg.Families["claude"]; !ok {
		t.Error("built-in claude family missing after load")
	}
	if !cfg.Families["vibe"].CursorMenus {
		t.Error("vibe family not loaded")
	}
	if !cfg.Events.Enabled {
		t.Error("events should default to enabled")
	}
}

func TestLoadFamilyOverridesOnlySetKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[families.Claude]
commands = ["claude", "cc"]

[families.codex]
require_default_indicator = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	claude := cfg.Families["claude"]
	if !claude.RequireDefaultIndicator || !claude.CursorMenus {
		t.Errorf("claude lost its built-in flags: %+v", claude)
	}
	if !reflect.DeepEqual(claude.Commands, []string{"claude", "cc"}) {
		t.Errorf("claude commands = %v", claude.Commands)
	}
	if got := cfg.CursorFamilies(); !reflect.DeepEqual(got, []string{"claude"}) {
		t.Errorf("CursorFamilies() = %v", got)
	}
	if !cfg.Profile("claude").RequireDefaultIndicator {
		t.Error("claude profile should stay strict")
	}
	if cfg.DetectFamily("cc") != "claude" {
		t.Error("alias not mapped to claude")
	}

	codex := cfg.Families["codex"]
	if !codex.RequireDefaultIndicator || codex.CursorMenus || !reflect.DeepEqual(codex.Commands, []string{"codex"}) {
		t.Errorf("codex = %+v", codex)
	}
}

func TestProfileEmptyDenyListKeepsBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[detection]\nnarration_deny_list = []\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p := cfg.Profile("codex")
	if p.NarrationDenyList != nil {
		t.Errorf("NarrationDenyList = %#v, want nil", p.NarrationDenyList)
	}
	if res := prompt.Detect("Steps to select from:\n1. Added the handler\n2. Wrote tests", &p); res.IsPrompt {
		t.Error("narration heading accepted with an empty deny-list")
	}
}

func TestLoadExplicitFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[events]\nenabled = false\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Events.Enabled {
		t.Error("explicit enabled = false was overridden")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "")
	t.Setenv("BDESK_POLL_INTERVAL_MS", "125")
	t.Setenv("BDESK_TRANSPORT", "ZELLIJ")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Monitor.PollIntervalMs != 125 {
		t.Errorf("PollIntervalMs = %d, want 125", cfg.Monitor.PollIntervalMs)
	}
	if cfg.Monitor.Transport != TransportZellij {
		t.Errorf("Transport = %q, want zellij", cfg.Monitor.Transport)
	}

	t.Setenv("BDESK_POLL_INTERVAL_MS", "soon")
	if _, err := Load(path); err == nil {
		t.Error("expected error for bad BDESK_POLL_INTERVAL_MS")
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, bad, "[monitor\n")
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("Load(bad) = %v, want parse error", err)
	}

	transport := filepath.Join(dir, "transport.toml")
	writeFile(t, transport, "[monitor]\ntransport = \"screen\"\n")
	if _, err := Load(transport); err == nil {
		t.Error("expected error for unknown transport")
	}

	window := filepath.Join(dir, "window.toml")
	writeFile(t, window, "[detection]\nquestion_window = 80\n")
	if _, err := Load(window); err == nil {
		t.Error("expected error for question_window > 50")
	}
}

func TestLoadOrDefaultMissing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if !reflect.DeepEqual(cfg.Families, DefaultFamilies()) {
		t.Error("expected default families")
	}
}

func TestPrintRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Detection.NarrationDenyList = []string{"i have", "summary"}
	cfg.Metrics.Listen = "127.0.0.1:9464"
	cfg.Notify.Enabled = true
	cfg.Notify.Webhook.URL = "https://hooks.example.com/bdesk"
	cfg.Notify.Webhook.Headers = map[string]string{"Authorization": "Bearer x"}

	var buf bytes.Buffer
	if err := Print(cfg, &buf); err != nil {
		t.Fatalf("Print: %v", err)
	}

	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, buf.String())
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load printed config: %v\n%s", err, buf.String())
	}
	if !reflect.DeepEqual(loaded.Families, cfg.Families) {
		t.Errorf("families = %+v, want %+v", loaded.Families, cfg.Families)
	}
	if !reflect.DeepEqual(loaded.Detection, cfg.Detection) {
		t.Errorf("detection = %+v, want %+v", loaded.Detection, cfg.Detection)
	}
	if loaded.Metrics.Listen != cfg.Metrics.Listen {
		t.Errorf("metrics.listen = %q", loaded.Metrics.Listen)
	}
	if !reflect.DeepEqual(loaded.Notify, cfg.Notify) {
		t.Errorf("notify = %+v, want %+v", loaded.Notify, cfg.Notify)
	}
}

func TestNotifyDefaultsSurviveSparseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[notify]\nenabled = true\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Notify.Enabled || !cfg.Notify.Desktop.Enabled || !cfg.Notify.Shell.PassJSON {
		t.Errorf("notify = %+v", cfg.Notify)
	}
	if len(cfg.Notify.Events) != 1 || cfg.Notify.Webhook.Method != "POST" {
		t.Errorf("notify defaults not applied: %+v", cfg.Notify)
	}

	t.Setenv("BDESK_NOTIFY_ENABLED", "0")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notify.Enabled {
		t.Error("BDESK_NOTIFY_ENABLED=0 should disable notifications")
	}
}

func TestCreateDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := CreateDefault()
	if err != nil {
		t.Fatalf("CreateDefault: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("created config does not load: %v", err)
	}
	if _, err := CreateDefault(); err == nil {
		t.Error("second CreateDefault should fail")
	}
}

func TestProfileAndCursorFamilies(t *testing.T) {
	cfg := Default()
	cfg.Detection.QuestionWindow = 20
	cfg.Detection.NarrationDenyList = []string{"shipped"}

	p := cfg.Profile("Claude")
	if !p.RequireDefaultIndicator || p.QuestionWindow != 20 || p.NarrationDenyList[0] != "shipped" {
		t.Errorf("Profile(claude) = %+v", p)
	}
	if cfg.Profile("unknown").RequireDefaultIndicator {
		t.Error("unknown families should use the loose profile")
	}

	if got := cfg.CursorFamilies(); !reflect.DeepEqual(got, []string{"claude"}) {
		t.Errorf("CursorFamilies() = %v", got)
	}
}

func TestDetectFamily(t *testing.T) {
	cfg := Default()
	tests := []struct {
		command string
		want    string
	}{
		{"claude", "claude"},
		{"Claude", "claude"},
		{"/usr/local/bin/codex --full-auto", "codex"},
		{"node /home/me/.npm/bin/gemini", "gemini"},
		{"bash", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			if got := cfg.DetectFamily(tt.command); got != tt.want {
				t.Errorf("DetectFamily(%q) = %q, want %q", tt.command, got, tt.want)
			}
		})
	}
}

func TestLoadMergedProject(t *testing.T) {
	root := t.TempDir()
	global := filepath.Join(root, "global.toml")
	writeFile(t, global, "[answer]\nkey_delay_ms = 10\n")
	writeFile(t, filepath.Join(root, "repo", ProjectFileName), `
families:
  Codex:
    cursor_menus: true
detection:
  narration_deny_list: ["shipped"]
monitor:
  transport: zellij
`)
	cwd := filepath.Join(root, "repo", "sub", "dir")
	if err := os.MkdirAll(cwd, 0755); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadMerged(cwd, global)
	if err != nil {
		t.Fatalf("LoadMerged: %v", err)
	}
	if !cfg.Families["codex"].CursorMenus {
		t.Error("project family override not applied")
	}
	if !reflect.DeepEqual(cfg.Families["codex"].Commands, []string{"codex"}) {
		t.Errorf("codex commands = %v, want built-in", cfg.Families["codex"].Commands)
	}
	if !cfg.Families["claude"].RequireDefaultIndicator {
		t.Error("claude changed by an unrelated project override")
	}
	if cfg.Answer.KeyDelayMs != 10 {
		t.Errorf("KeyDelayMs = %d, want global 10", cfg.Answer.KeyDelayMs)
	}
	if cfg.Monitor.Transport != TransportZellij {
		t.Errorf("Transport = %q, want zellij", cfg.Monitor.Transport)
	}
	if !strings.HasSuffix(cfg.ProjectFile, ProjectFileName) {
		t.Errorf("ProjectFile = %q", cfg.ProjectFile)
	}
}

func TestLoadMergedInvalidProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ProjectFileName), "families: [\n")
	if _, err := LoadMerged(root, filepath.Join(root, "none.toml")); err == nil {
		t.Error("expected error for malformed project config")
	}
}

func TestWatchReloads(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "config.toml")
	writeFile(t, path, "[answer]\nkey_delay_ms = 10\n")

	got := make(chan *Config, 4)
	stop, err := Watch(path, root, nil, func(c *Config) { got <- c })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	writeFile(t, path, "[answer]\nkey_delay_ms = 99\n")

	select {
	case cfg := <-got:
		if cfg.Answer.KeyDelayMs != 99 {
			t.Errorf("reloaded KeyDelayMs = %d, want 99", cfg.Answer.KeyDelayMs)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
