package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dicklesworthstone/branchdesk/internal/config"
	"github.com/Dicklesworthstone/branchdesk/internal/events"
	"github.com/Dicklesworthstone/branchdesk/internal/metrics"
	"github.com/Dicklesworthstone/branchdesk/internal/monitor"
	"github.com/Dicklesworthstone/branchdesk/internal/output"
	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
	"github.com/Dicklesworthstone/branchdesk/internal/tmux"
	"github.com/Dicklesworthstone/branchdesk/internal/zellij"
)

// session is what commands need from a terminal multiplexer.
type session interface {
	monitor.Source
	prompt.KeySender
}

// paneCommander reports the foreground command of a target (tmux only).
type paneCommander interface {
	PaneCommand(ctx context.Context, target string) (string, error)
}

// newSession returns the configured transport. Tests replace it.
var newSession = func(c *config.Config) (session, error) {
	switch c.Monitor.Transport {
	case config.TransportZellij:
		if sshHost != "" {
			return nil, fmt.Errorf("--ssh is only supported with the tmux transport")
		}
		return zellij.NewClient(), nil
	case config.TransportTmux, "":
		var opts []tmux.ClientOption
		if sshHost != "" {
			opts = append(opts, tmux.WithRemote(sshHost))
		}
		client := tmux.NewClient(opts...)
		if !client.IsInstalled(context.Background()) {
			return nil, output.NewCLIError("tmux not found").
				WithCode("TRANSPORT_MISSING").
				WithHint(output.HintTransportMissing)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", c.Monitor.Transport)
	}
}

// resolveFamily picks the CLI tool family for target: the flag if set,
// otherwise whatever the pane is running.
func resolveFamily(ctx context.Context, s session, c *config.Config, target, flag string) string {
	if flag != "" {
		return strings.ToLower(flag)
	}
	pc, ok := s.(paneCommander)
	if !ok || target == "" {
		return ""
	}
	command, err := pc.PaneCommand(ctx, target)
	if err != nil {
		logger.Debug("pane command lookup failed", "target", target, "error", err)
		return ""
	}
	family := c.DetectFamily(command)
	logger.Debug("detected family", "target", target, "command", command, "family", family)
	return family
}

// capture grabs and classifies target with its family's profile.
func capture(ctx context.Context, s session, c *config.Config, target, family string) (prompt.Result, error) {
	snapshot, err := s.Capture(ctx, target, c.Monitor.CaptureLines)
	if err != nil {
		return prompt.Result{}, fmt.Errorf("capturing %s: %w", target, err)
	}
	profile := c.Profile(family)
	return prompt.Detect(snapshot, &profile), nil
}

// openEvents opens the configured event log, or a discarding sink when
// events are disabled.
func openEvents(c *config.Config) events.Sink {
	if !c.Events.Enabled {
		return events.Discard
	}
	l, err := events.NewLogger(events.LoggerOptions{Path: c.Events.Path})
	if err != nil {
		logger.Warn("event log disabled", "error", err)
		return events.Discard
	}
	return l
}

// answerDeps carries the collaborators used to send an answer.
type answerDeps struct {
	session session
	events  events.Sink
	metrics metrics.Recorder
}

// sendAnswer encodes and sends req (or only encodes it when dryRun),
// recording the outcome.
func sendAnswer(ctx context.Context, c *config.Config, deps answerDeps, req prompt.AnswerRequest, dryRun bool) ([]prompt.KeyOp, error) {
	var (
		ops []prompt.KeyOp
		err error
	)
	if dryRun {
		ops, err = prompt.EncodeAnswer(req, c.CursorFamilies())
	} else {
		a := &prompt.Answerer{
			Sender:         deps.session,
			CursorFamilies: c.CursorFamilies(),
			KeyDelay:       time.Duration(c.Answer.KeyDelayMs) * time.Millisecond,
			Logger:         logger,
		}
		ops, err = a.SendAnswer(ctx, req)
		deps.metrics.ObserveAnswer(req.Family, answerMode(ops), err == nil)
	}

	if err != nil {
		if lerr := deps.events.Log(events.Failure(req.SessionID, err)); lerr != nil {
			logger.Warn("event log write failed", "error", lerr)
		}
		return ops, err
	}
	e := events.PromptAnswered(req.SessionID, req.Family, req.PromptData, req.Answer, ops, dryRun)
	if lerr := deps.events.Log(e); lerr != nil {
		logger.Warn("event log write failed", "error", lerr)
	}
	logger.Info("answer encoded", "target", req.SessionID, "family", req.Family, "ops", len(ops), "dry_run", dryRun)
	return ops, nil
}

// answerMode is "keys" for cursor navigation and "text" for typed answers.
func answerMode(ops []prompt.KeyOp) string {
	if len(ops) > 0 && ops[0].Kind == prompt.OpText {
		return "text"
	}
	return "keys"
}
