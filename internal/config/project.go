package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectFileName is the per-project override file searched from the working
// directory upward.
const ProjectFileName = ".bdesk.yaml"

// ProjectConfig represents the structure of .bdesk.yaml. Unset fields leave
// the global value alone.
type ProjectConfig struct {
	Families  map[string]ProjectFamily `yaml:"families"`
	Detection struct {
		QuestionWindow    int      `yaml:"question_window"`
		NarrationDenyList []string `yaml:"narration_deny_list"`
	} `yaml:"detection"`
	Answer struct {
		KeyDelayMs int `yaml:"key_delay_ms"`
	} `yaml:"answer"`
	Monitor struct {
		PollIntervalMs int       `yaml:"poll_interval_ms"`
		Transport      Transport `yaml:"transport"`
	} `yaml:"monitor"`
}

// ProjectFamily overrides the keys of a family that it sets.
type ProjectFamily struct {
	RequireDefaultIndicator *bool    `yaml:"require_default_indicator"`
	CursorMenus             *bool    `yaml:"cursor_menus"`
	Commands                []string `yaml:"commands"`
}

// FindProjectConfig searches for .bdesk.yaml starting from dir and going up.
// It returns an empty path and nil config when none is found.
func FindProjectConfig(startDir string) (string, *ProjectConfig, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", nil, err
	}

	for {
		path := filepath.Join(dir, ProjectFileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			cfg, err := LoadProjectConfig(path)
			return path, cfg, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, nil
		}
		dir = parent
	}
}

// LoadProjectConfig loads a project configuration from a file
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing project config %s: %w", path, err)
	}
	return &cfg, nil
}

// MergeConfig applies project overrides onto global.
func MergeConfig(global *Config, project *ProjectConfig, projectFile string) *Config {
	for name, pf := range project.Families {
		if global.Families == nil {
			global.Families = map[string]FamilyConfig{}
		}
		key := strings.ToLower(name)
		f := global.Families[key]
		if pf.RequireDefaultIndicator != nil {
			f.RequireDefaultIndicator = *pf.RequireDefaultIndicator
		}
		if pf.CursorMenus != nil {
			f.CursorMenus = *pf.CursorMenus
		}
		if pf.Commands != nil {
			f.Commands = pf.Commands
		}
		global.Families[key] = f
	}
	if project.Detection.QuestionWindow > 0 {
		global.Detection.QuestionWindow = project.Detection.QuestionWindow
	}
	if len(project.Detection.NarrationDenyList) > 0 {
		global.Detection.NarrationDenyList = project.Detection.NarrationDenyList
	}
	if project.Answer.KeyDelayMs > 0 {
		global.Answer.KeyDelayMs = project.Answer.KeyDelayMs
	}
	if project.Monitor.PollIntervalMs > 0 {
		global.Monitor.PollIntervalMs = project.Monitor.PollIntervalMs
	}
	if project.Monitor.Transport != "" {
		global.Monitor.Transport = project.Monitor.Transport
	}
	global.ProjectFile = projectFile
	return global
}

// LoadMerged loads the global config and merges any project config found
// starting from cwd.
func LoadMerged(cwd, globalPath string) (*Config, error) {
	cfg, err := LoadOrDefault(globalPath)
	if err != nil {
		return nil, err
	}

	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	projectFile, projectCfg, err := FindProjectConfig(cwd)
	if err != nil {
		return cfg, fmt.Errorf("loading project config: %w", err)
	}
	if projectCfg == nil {
		return cfg, nil
	}

	cfg = MergeConfig(cfg, projectCfg, projectFile)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", projectFile, err)
	}
	return cfg, nil
}
