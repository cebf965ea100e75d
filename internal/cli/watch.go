package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/branchdesk/internal/config"
	"github.com/Dicklesworthstone/branchdesk/internal/metrics"
	"github.com/Dicklesworthstone/branchdesk/internal/monitor"
	"github.com/Dicklesworthstone/branchdesk/internal/notify"
	"github.com/Dicklesworthstone/branchdesk/internal/output"
	"github.com/Dicklesworthstone/branchdesk/internal/picker"
	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
	"github.com/Dicklesworthstone/branchdesk/internal/tmux"
	"github.com/Dicklesworthstone/branchdesk/internal/zellij"
)

type watchOptions struct {
	family      string
	interval    time.Duration
	metricsAddr string
	all         bool
	interactive bool
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch [TARGET...]",
		Short: "Watch panes and report prompts as they appear",
		Long: `Poll one or more targets and report each prompt once when it appears.
With --interactive a picker opens for every new prompt and the choice is sent
back. Prometheus metrics are served on --metrics-addr (or [metrics] listen).

Examples:
  bdesk watch dev:0.1 dev:0.2
  bdesk watch --all --format json | jq .
  bdesk watch dev:0.1 --interactive --interval 1s
  bdesk watch --all --metrics-addr :9464`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !opts.all {
				return errors.New("give at least one TARGET or --all")
			}
			if opts.interactive && !stdinIsTerminal() {
				return errors.New("--interactive needs an interactive terminal")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.family, "family", "", "CLI tool family for every target; detected per pane when omitted")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Poll interval (default [monitor] poll_interval_ms)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Watch every pane (tmux) or session (zellij) running a known CLI")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Open a picker for each new prompt and send the answer")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, args []string, opts watchOptions) error {
	s, err := newSession(cfg)
	if err != nil {
		return err
	}

	targets := make([]monitor.Target, 0, len(args))
	for _, a := range args {
		targets = append(targets, monitor.Target{Name: a, Family: opts.family})
	}
	if opts.all {
		found, err := discoverTargets(ctx, s, cfg, opts.family)
		if err != nil {
			return err
		}
		targets = append(targets, found...)
	}
	if len(targets) == 0 {
		return output.NewCLIError("no targets to watch").WithHint(output.HintTargetNotFound)
	}

	format, err := output.DetectFormat(formatFlag)
	if err != nil {
		return err
	}
	f := output.New(output.WithWriter(cmd.OutOrStdout()), output.WithFormat(format), output.WithPretty(false))

	withInterval := func(c *config.Config) *config.Config {
		if opts.interval > 0 {
			cp := *c
			cp.Monitor.PollIntervalMs = int(opts.interval / time.Millisecond)
			return &cp
		}
		return c
	}

	var rec metrics.Recorder = metrics.Nop()
	addr := opts.metricsAddr
	if addr == "" {
		addr = cfg.Metrics.Listen
	}
	if addr != "" {
		prom := metrics.NewPrometheusRecorder()
		rec = prom
		shutdown, err := serveMetrics(ctx, addr, prom.Handler())
		if err != nil {
			return err
		}
		defer shutdown()
	}

	sink := openEvents(cfg)
	deps := answerDeps{session: s, events: sink, metrics: rec}

	// Hot reload swaps these; answers and family lookups read the latest.
	var (
		live     atomic.Pointer[config.Config]
		notifier atomic.Pointer[notify.Notifier]
	)
	live.Store(cfg)
	notifier.Store(notify.New(cfg.Notify))

	var (
		outMu  sync.Mutex
		pickMu sync.Mutex
	)
	handler := func(ctx context.Context, u monitor.Update) {
		if u.Kind != monitor.Detected && f.IsText() {
			return
		}
		outMu.Lock()
		if err := f.Output(output.DetectionView{Target: u.Target, Family: u.Family, Result: u.Result}); err != nil {
			logger.Warn("writing update failed", "error", err)
		}
		outMu.Unlock()

		if u.Kind != monitor.Detected {
			return
		}
		if err := notifier.Load().Notify(ctx, notify.PromptWaiting(u.Target, u.Family, u.Result.PromptData)); err != nil {
			logger.Warn("notification failed", "target", u.Target, "error", err)
		}
		if !opts.interactive {
			return
		}
		pickMu.Lock()
		defer pickMu.Unlock()
		answerInteractively(ctx, live.Load(), deps, notifier.Load(), u)
	}

	mon := monitor.New(monitor.Options{
		Config:    withInterval(cfg),
		Source:    s,
		Transport: string(cfg.Monitor.Transport),
		Logger:    logger,
		Events:    sink,
		Metrics:   rec,
		Handler:   handler,
		Resolver: func(ctx context.Context, target string) string {
			return resolveFamily(ctx, s, live.Load(), target, "")
		},
	})

	cwd, _ := os.Getwd()
	closeWatch, err := config.Watch(cfgFile, cwd, logger, func(c *config.Config) {
		live.Store(c)
		notifier.Store(notify.New(c.Notify))
		mon.SetConfig(withInterval(c))
	})
	if err != nil {
		logger.Warn("config hot reload disabled", "error", err)
	} else {
		defer closeWatch()
	}

	logger.Info("watching", "targets", len(targets), "transport", cfg.Monitor.Transport)
	mon.Start(ctx, targets)
	<-ctx.Done()
	mon.Stop()
	if pending := mon.Pending(); len(pending) > 0 {
		for target, d := range pending {
			logger.Info("prompt still waiting", "target", target, "question", d.QuestionText())
		}
	}
	return nil
}

func answerInteractively(ctx context.Context, c *config.Config, deps answerDeps, notifier *notify.Notifier, u monitor.Update) {
	// Another picker may have held the terminal while this prompt waited.
	data, ok := currentPrompt(ctx, c, deps.session, u)
	if !ok {
		logger.Info("prompt gone before the picker opened", "target", u.Target)
		return
	}
	answer, err := runPicker(u.Target, data)
	if errors.Is(err, picker.ErrCancelled) {
		return
	}
	if err != nil {
		logger.Warn("picker failed", "target", u.Target, "error", err)
		return
	}

	// Keys sent to a changed screen land somewhere else, so look again.
	if data, ok = currentPrompt(ctx, c, deps.session, u); !ok {
		logger.Warn("prompt changed while picking, answer not sent", "target", u.Target, "answer", answer)
		return
	}
	_, err = sendAnswer(ctx, c, deps, prompt.AnswerRequest{
		SessionID:  u.Target,
		Answer:     answer,
		Family:     u.Family,
		PromptData: data,
	}, false)
	event := notify.PromptAnswered(u.Target, u.Family, answer)
	if err != nil {
		logger.Warn("sending answer failed", "target", u.Target, "error", err)
		event = notify.AnswerFailed(u.Target, u.Family, err)
	}
	if err := notifier.Notify(ctx, event); err != nil {
		logger.Warn("notification failed", "target", u.Target, "error", err)
	}
}

// currentPrompt captures u's target again and returns the prompt on screen
// if it is still the one u reported. The cursor may have moved.
func currentPrompt(ctx context.Context, c *config.Config, s session, u monitor.Update) (prompt.Data, bool) {
	res, err := capture(ctx, s, c, u.Target, u.Family)
	if err != nil {
		logger.Warn("re-capture failed", "target", u.Target, "error", err)
		return nil, false
	}
	if !res.IsPrompt || !monitor.SamePrompt(res.PromptData, u.Result.PromptData) {
		return nil, false
	}
	return res.PromptData, true
}

// discoverTargets lists panes (tmux) or sessions (zellij) that run a known
// CLI tool family.
func discoverTargets(ctx context.Context, s session, c *config.Config, family string) ([]monitor.Target, error) {
	var targets []monitor.Target
	switch client := s.(type) {
	case *tmux.Client:
		panes, err := client.ListPanes(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("listing panes: %w", err)
		}
		for _, p := range panes {
			fam := family
			if fam == "" {
				fam = c.DetectFamily(p.Command)
			}
			if fam == "" {
				continue
			}
			targets = append(targets, monitor.Target{Name: p.Target, Family: fam})
		}
	case *zellij.Client:
		sessions, err := client.ListSessions(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing sessions: %w", err)
		}
		for _, name := range sessions {
			targets = append(targets, monitor.Target{Name: name, Family: family})
		}
	default:
		return nil, errors.New("--all is not supported by this transport")
	}
	return targets, nil
}

// serveMetrics serves h at /metrics on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, h http.Handler) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}
