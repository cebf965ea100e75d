// Package zellij reads and drives Zellij sessions for prompt detection and
// answering.
//
// Zellij CLI actions apply to the focused pane of a session, so targets are
// session names.
package zellij

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
)

// ErrEmptySession is returned when no session name is given.
var ErrEmptySession = errors.New("zellij: empty session name")

// Executor runs commands and returns output
type Executor interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// realExecutor executes actual zellij commands
type realExecutor struct{}

func (e *realExecutor) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "zellij", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("zellij %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}

// Client handles Zellij operations
type Client struct {
	exec Executor
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithExecutor sets a custom executor (useful for testing)
func WithExecutor(exec Executor) ClientOption {
	return func(c *Client) {
		c.exec = exec
	}
}

// NewClient creates a new Zellij client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		exec: &realExecutor{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// action runs "zellij --session S action ...".
func (c *Client) action(ctx context.Context, session string, args ...string) (string, error) {
	if session == "" {
		return "", ErrEmptySession
	}
	if ctx == nil {
		ctx = context.Background()
	}
	full := append([]string{"--session", session, "action"}, args...)
	return c.exec.Run(ctx, full...)
}

// ListSessions returns the names of running sessions.
func (c *Client) ListSessions(ctx context.Context) ([]string, error) {
	out, err := c.exec.Run(ctx, "list-sessions", "--short", "--no-formatting")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// keyBytes are the raw bytes a terminal sends for each answer key.
var keyBytes = map[prompt.Key][]byte{
	prompt.KeyUp:    {27, '[', 'A'},
	prompt.KeyDown:  {27, '[', 'B'},
	prompt.KeySpace: {' '},
	prompt.KeyEnter: {'\r'},
}

// WriteChars types text into the focused pane.
func (c *Client) WriteChars(ctx context.Context, session, text string) error {
	_, err := c.action(ctx, session, "write-chars", text)
	return err
}

// WriteBytes writes raw bytes into the focused pane.
func (c *Client) WriteBytes(ctx context.Context, session string, b []byte) error {
	args := []string{"write"}
	for _, v := range b {
		args = append(args, strconv.Itoa(int(v)))
	}
	_, err := c.action(ctx, session, args...)
	return err
}

// SendText implements prompt.KeySender.
func (c *Client) SendText(ctx context.Context, session, text string, submit bool) error {
	if err := c.WriteChars(ctx, session, text); err != nil {
		return err
	}
	if submit {
		return c.SendKey(ctx, session, prompt.KeyEnter)
	}
	return nil
}

// SendKey implements prompt.KeySender.
func (c *Client) SendKey(ctx context.Context, session string, key prompt.Key) error {
	b, ok := keyBytes[key]
	if !ok {
		return fmt.Errorf("zellij: unsupported key %q", key)
	}
	return c.WriteBytes(ctx, session, b)
}

// Capture dumps the focused pane of session and returns its last lines.
func (c *Client) Capture(ctx context.Context, session string, lines int) (string, error) {
	f, err := os.CreateTemp("", "bdesk-capture-*.txt")
	if err != nil {
		return "", fmt.Errorf("creating capture file: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if _, err := c.action(ctx, session, "dump-screen", "--full", path); err != nil {
		return "", fmt.Errorf("dump-screen failed: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading capture file: %w", err)
	}
	return lastLines(string(content), lines), nil
}

func lastLines(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if n <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
