package config

import (
	"path/filepath"
	"strings"

	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
)

// Family returns the named family, falling back to the loose profile for
// families the config does not know.
func (c *Config) Family(name string) FamilyConfig {
	if f, ok := c.Families[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f
	}
	return FamilyConfig{}
}

// Profile returns the detection options for a family. An empty deny-list
// keeps the built-in phrases.
func (c *Config) Profile(family string) prompt.Options {
	var deny []string
	if len(c.Detection.NarrationDenyList) > 0 {
		deny = c.Detection.NarrationDenyList
	}
	return prompt.Options{
		RequireDefaultIndicator: c.Family(family).RequireDefaultIndicator,
		NarrationDenyList:       deny,
		QuestionWindow:          c.Detection.QuestionWindow,
	}
}

// CursorFamilies lists the families answered with arrow keys.
func (c *Config) CursorFamilies() []string {
	var out []string
	for _, name := range c.FamilyNames() {
		if c.Families[name].CursorMenus {
			out = append(out, name)
		}
	}
	return out
}

// DetectFamily maps a pane's foreground command (tmux pane_current_command)
// to a family name. It returns "" when nothing matches.
func (c *Config) DetectFamily(command string) string {
	cmd := strings.ToLower(strings.TrimSpace(command))
	if cmd == "" {
		return ""
	}
	if fields := strings.Fields(cmd); len(fields) > 0 {
		cmd = filepath.Base(fields[0])
	}
	for _, name := range c.FamilyNames() {
		for _, known := range c.Families[name].Commands {
			if cmd == strings.ToLower(known) {
				return name
			}
		}
	}
	// Node-based CLIs often show up as "node .../bin/claude"; match the
	// script path in the full command line.
	full := strings.ToLower(command)
	for _, name := range c.FamilyNames() {
		for _, known := range c.Families[name].Commands {
			if strings.Contains(full, "/"+strings.ToLower(known)) || strings.HasPrefix(full, strings.ToLower(known)+" ") {
				return name
			}
		}
	}
	return ""
}
