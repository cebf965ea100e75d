package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Dicklesworthstone/branchdesk/internal/watcher"
)

// Watch reloads the merged config whenever the global file at path (DefaultPath
// if empty) or the project file for cwd changes, passing the new config to
// onChange. A reload that fails to parse is logged and the old config stays in
// effect. It returns a close function to stop watching.
func Watch(path, cwd string, logger *slog.Logger, onChange func(*Config)) (func(), error) {
	if path == "" {
		path = DefaultPath()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cwd == "" {
		cwd, _ = os.Getwd()
	}

	w, err := watcher.New(func(paths []string) {
		cfg, err := LoadMerged(cwd, path)
		if err != nil {
			logger.Warn("config reload failed", "paths", paths, "error", err)
			return
		}
		logger.Info("config reloaded", "paths", paths)
		if onChange != nil {
			onChange(cfg)
		}
	},
		watcher.WithDebounceDuration(500*time.Millisecond),
		watcher.WithErrorHandler(func(err error) {
			logger.Warn("config watch error", "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}

	if err := w.AddFile(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching config path %s: %w", path, err)
	}

	if projectFile, _, err := FindProjectConfig(cwd); err == nil && projectFile != "" {
		if err := w.AddFile(projectFile); err != nil {
			logger.Warn("failed to watch project config", "path", projectFile, "error", err)
		}
	} else if abs, err := filepath.Abs(cwd); err == nil {
		// Pick up a project file created after startup.
		_ = w.AddFile(filepath.Join(abs, ProjectFileName))
	}

	return func() {
		w.Close()
	}, nil
}
