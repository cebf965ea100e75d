package tmux

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
)

// ErrEmptyTarget is returned when no pane target is given.
var ErrEmptyTarget = errors.New("tmux: empty pane target")

// chunkSize bounds a single send-keys payload to stay clear of ARG_MAX.
const chunkSize = 4096

// Pane describes one tmux pane.
type Pane struct {
	ID      string // %12
	Target  string // session:window.pane
	Command string // pane_current_command
	Title   string
	Active  bool
}

const paneFormat = "#{pane_id}\t#{session_name}:#{window_index}.#{pane_index}\t#{pane_current_command}\t#{pane_active}\t#{pane_title}"

// ListPanes lists panes in session, or in every session when session is empty.
func (c *Client) ListPanes(ctx context.Context, session string) ([]Pane, error) {
	args := []string{"list-panes", "-F", paneFormat}
	if session == "" {
		args = append(args, "-a")
	} else {
		args = append(args, "-s", "-t", session)
	}
	out, err := c.Run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parsePanes(out), nil
}

func parsePanes(out string) []Pane {
	var panes []Pane
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 5)
		if len(parts) < 4 {
			continue
		}
		p := Pane{
			ID:      parts[0],
			Target:  parts[1],
			Command: parts[2],
			Active:  parts[3] == "1",
		}
		if len(parts) == 5 {
			p.Title = parts[4]
		}
		panes = append(panes, p)
	}
	return panes
}

// CapturePane returns the last lines of a pane's visible history. Escape
// sequences are kept (-e) so that colour-only cursor highlighting survives;
// the classifier strips them.
func (c *Client) CapturePane(ctx context.Context, target string, lines int) (string, error) {
	if target == "" {
		return "", ErrEmptyTarget
	}
	if lines <= 0 {
		lines = 200
	}
	return c.Run(ctx, "capture-pane", "-p", "-e", "-J", "-t", target, "-S", "-"+strconv.Itoa(lines))
}

// PaneCommand returns the foreground command running in target.
func (c *Client) PaneCommand(ctx context.Context, target string) (string, error) {
	if target == "" {
		return "", ErrEmptyTarget
	}
	out, err := c.Run(ctx, "display-message", "-p", "-t", target, "#{pane_current_command}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// SendLiteral types text into target without key-name interpretation,
// optionally followed by Enter.
func (c *Client) SendLiteral(ctx context.Context, target, text string, enter bool) error {
	if target == "" {
		return ErrEmptyTarget
	}
	for len(text) > 0 {
		n := min(len(text), chunkSize)
		// Do not split a multi-byte rune across chunks.
		for n < len(text) && n > 0 && !isRuneStart(text[n]) {
			n--
		}
		if n == 0 {
			// No rune start in reach (invalid UTF-8): cut at the chunk size.
			n = min(len(text), chunkSize)
		}
		if err := c.RunSilent(ctx, "send-keys", "-t", target, "-l", "--", text[:n]); err != nil {
			return err
		}
		text = text[n:]
	}
	if enter {
		return c.SendSpecialKey(ctx, target, "Enter")
	}
	return nil
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// SendSpecialKey sends one named tmux key such as "Enter" or "Down".
func (c *Client) SendSpecialKey(ctx context.Context, target, key string) error {
	if target == "" {
		return ErrEmptyTarget
	}
	return c.RunSilent(ctx, "send-keys", "-t", target, key)
}

// keyNames maps answer keys to tmux key names.
var keyNames = map[prompt.Key]string{
	prompt.KeyUp:    "Up",
	prompt.KeyDown:  "Down",
	prompt.KeySpace: "Space",
	prompt.KeyEnter: "Enter",
}

// SendText implements prompt.KeySender.
func (c *Client) SendText(ctx context.Context, session, text string, submit bool) error {
	return c.SendLiteral(ctx, session, text, submit)
}

// SendKey implements prompt.KeySender.
func (c *Client) SendKey(ctx context.Context, session string, key prompt.Key) error {
	name, ok := keyNames[key]
	if !ok {
		return fmt.Errorf("tmux: unsupported key %q", key)
	}
	return c.SendSpecialKey(ctx, session, name)
}

// Capture implements the monitor's pane source.
func (c *Client) Capture(ctx context.Context, target string, lines int) (string, error) {
	return c.CapturePane(ctx, target, lines)
}
