package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/branchdesk/internal/metrics"
	"github.com/Dicklesworthstone/branchdesk/internal/output"
	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
)

func newAnswerCmd() *cobra.Command {
	var (
		family      string
		promptFile  string
		promptType  string
		defaultOpt  int
		dryRun      bool
		skipCapture bool
	)

	cmd := &cobra.Command{
		Use:   "answer TARGET ANSWER",
		Short: "Send an answer to a waiting prompt",
		Long: `Send ANSWER to the prompt waiting in TARGET, encoded the way the CLI
running there expects it.

Menus in cursor-driven CLIs (Claude Code) are answered with arrow keys from
the highlighted option; everything else is typed as text followed by Enter.
The prompt is re-detected from the pane unless --prompt-file is given or
--no-capture is set, in which case --type and --default describe it.

Examples:
  bdesk answer dev:0.1 2
  bdesk answer dev:0.1 yes
  bdesk answer dev:0.1 3 --family claude --no-capture --type multiple_choice --default 1 --dry-run
  bdesk detect --target dev:0.1 --format json > p.json && bdesk answer dev:0.1 2 --prompt-file p.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			target, answer := args[0], args[1]

			f, err := formatter(cmd)
			if err != nil {
				return err
			}
			if promptType != "" && !prompt.Type(promptType).Valid() {
				return fmt.Errorf("invalid --type %q (want yes_no or multiple_choice)", promptType)
			}

			s, err := newSession(cfg)
			if err != nil {
				return err
			}
			family = resolveFamily(ctx, s, cfg, target, family)

			var data prompt.Data
			switch {
			case promptFile != "":
				if data, err = loadPromptFile(promptFile); err != nil {
					return err
				}
			case !skipCapture:
				res, err := capture(ctx, s, cfg, target, family)
				if err != nil {
					return output.Explain(err).WithHint(output.HintTargetNotFound)
				}
				if res.IsPrompt {
					data = res.PromptData
				} else {
					logger.Debug("no prompt on target, using fallback summary", "target", target, "rejected_by", res.RejectedBy)
				}
			}

			sink := openEvents(cfg)
			ops, err := sendAnswer(ctx, cfg, answerDeps{session: s, events: sink, metrics: metrics.Nop()}, prompt.AnswerRequest{
				SessionID:       target,
				Answer:          answer,
				Family:          family,
				PromptData:      data,
				FallbackType:    prompt.Type(promptType),
				FallbackDefault: defaultOpt,
			}, dryRun)
			if err != nil {
				return err
			}

			return f.Output(output.PlanView{Target: target, Family: family, Answer: answer, Ops: ops, DryRun: dryRun})
		},
	}

	cmd.Flags().StringVar(&family, "family", "", "CLI tool family (claude, codex, gemini); detected from the pane when omitted")
	cmd.Flags().StringVar(&promptFile, "prompt-file", "", "JSON detection result or prompt data to answer against")
	cmd.Flags().StringVar(&promptType, "type", "", "Prompt type when no live data is available (yes_no, multiple_choice)")
	cmd.Flags().IntVar(&defaultOpt, "default", 0, "Highlighted option when no live data is available")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the keystroke plan without sending it")
	cmd.Flags().BoolVar(&skipCapture, "no-capture", false, "Do not re-detect the prompt from the pane")
	cmd.MarkFlagsMutuallyExclusive("prompt-file", "no-capture")
	return cmd
}

// loadPromptFile reads either a full detection result or bare prompt data.
func loadPromptFile(path string) (prompt.Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var res prompt.Result
	if err := json.Unmarshal(raw, &res); err == nil && res.PromptData != nil {
		return res.PromptData, nil
	}
	data, err := prompt.UnmarshalData(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}
