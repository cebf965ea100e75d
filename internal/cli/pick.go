package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Dicklesworthstone/branchdesk/internal/metrics"
	"github.com/Dicklesworthstone/branchdesk/internal/output"
	"github.com/Dicklesworthstone/branchdesk/internal/picker"
	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
)

// Replaced in tests.
var (
	runPicker       = picker.Run
	stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

func newPickCmd() *cobra.Command {
	var family string

	cmd := &cobra.Command{
		Use:   "pick TARGET",
		Short: "Choose an answer for a waiting prompt interactively",
		Long: `Capture TARGET, show the detected prompt as a menu, and send the chosen
answer. Press / to type a free-form answer instead.

Examples:
  bdesk pick dev:0.1
  bdesk pick dev:0.1 --family codex`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			target := args[0]

			if !stdinIsTerminal() {
				return output.NewCLIError("pick needs an interactive terminal").
					WithHint("Use 'bdesk answer " + target + " <answer>' from scripts")
			}
			f, err := formatter(cmd)
			if err != nil {
				return err
			}

			s, err := newSession(cfg)
			if err != nil {
				return err
			}
			family = resolveFamily(ctx, s, cfg, target, family)
			res, err := capture(ctx, s, cfg, target, family)
			if err != nil {
				return output.Explain(err).WithHint(output.HintTargetNotFound)
			}
			if !res.IsPrompt {
				return output.NewCLIError("no prompt waiting in " + target).
					WithCode("NO_PROMPT").
					WithHint(output.HintNoPrompt)
			}

			answer, err := runPicker(target, res.PromptData)
			if errors.Is(err, picker.ErrCancelled) {
				return nil
			}
			if err != nil {
				return err
			}

			ops, err := sendAnswer(ctx, cfg, answerDeps{session: s, events: openEvents(cfg), metrics: metrics.Nop()}, prompt.AnswerRequest{
				SessionID:  target,
				Answer:     answer,
				Family:     family,
				PromptData: res.PromptData,
			}, false)
			if err != nil {
				return err
			}
			return f.Output(output.PlanView{Target: target, Family: family, Answer: answer, Ops: ops})
		},
	}

	cmd.Flags().StringVar(&family, "family", "", "CLI tool family (claude, codex, gemini); detected from the pane when omitted")
	return cmd
}
