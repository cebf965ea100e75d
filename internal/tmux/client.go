// Package tmux reads and drives tmux panes for prompt detection and answering.
package tmux

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Executor runs a tmux command and returns its trimmed stdout.
type Executor interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// localExecutor runs tmux on this host.
type localExecutor struct{}

func (localExecutor) Run(ctx context.Context, args ...string) (string, error) {
	return runContext(ctx, "tmux", args...)
}

// sshExecutor runs tmux on a remote host over ssh.
type sshExecutor struct {
	remote string
}

func (e sshExecutor) Run(ctx context.Context, args ...string) (string, error) {
	// Use "--" to prevent the remote from being parsed as an ssh option.
	return runContext(ctx, "ssh", "--", e.remote, buildRemoteShellCommand("tmux", args...))
}

func runContext(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}

// Client handles tmux operations, optionally on a remote host
type Client struct {
	Remote string // "user@host" or empty for local
	exec   Executor
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithExecutor sets a custom executor (useful for testing)
func WithExecutor(e Executor) ClientOption {
	return func(c *Client) {
		c.exec = e
	}
}

// WithRemote runs tmux on host over ssh.
func WithRemote(host string) ClientOption {
	return func(c *Client) {
		c.Remote = host
	}
}

// NewClient creates a new tmux client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.exec == nil {
		if c.Remote != "" {
			c.exec = sshExecutor{remote: c.Remote}
		} else {
			c.exec = localExecutor{}
		}
	}
	return c
}

// Run executes a tmux command
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.exec.Run(ctx, args...)
}

// RunSilent executes a tmux command ignoring output
func (c *Client) RunSilent(ctx context.Context, args ...string) error {
	_, err := c.Run(ctx, args...)
	return err
}

// IsInstalled checks if tmux is available on the target host
func (c *Client) IsInstalled(ctx context.Context) bool {
	if c.Remote == "" {
		if _, ok := c.exec.(localExecutor); ok {
			_, err := exec.LookPath("tmux")
			return err == nil
		}
	}
	return c.RunSilent(ctx, "-V") == nil
}

// ShellQuote returns a POSIX-shell-safe single-quoted string.
//
// This is required for ssh remote commands because OpenSSH transmits a single
// command string to the remote shell (not an argv vector).
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func buildRemoteShellCommand(command string, args ...string) string {
	parts := make([]string, 0, 1+len(args))
	parts = append(parts, command)
	for _, arg := range args {
		parts = append(parts, ShellQuote(arg))
	}
	return strings.Join(parts, " ")
}
