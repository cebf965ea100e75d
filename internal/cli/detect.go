package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/branchdesk/internal/output"
	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
)

func newDetectCmd() *cobra.Command {
	var (
		file   string
		target string
		family string
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Classify terminal output as a prompt",
		Long: `Classify a terminal snapshot as a yes/no prompt, a numbered menu, or
neither. The snapshot is read from stdin, a file, or captured live from a
pane.

Examples:
  tmux capture-pane -p -t dev:0.1 | bdesk detect --family claude
  bdesk detect --file screen.txt --format json
  bdesk detect --target dev:0.1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatter(cmd)
			if err != nil {
				return err
			}

			var res prompt.Result
			if target != "" {
				s, err := newSession(cfg)
				if err != nil {
					return err
				}
				family = resolveFamily(cmd.Context(), s, cfg, target, family)
				if res, err = capture(cmd.Context(), s, cfg, target, family); err != nil {
					return output.Explain(err).WithHint(output.HintTargetNotFound)
				}
			} else {
				snapshot, err := readSnapshot(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				profile := cfg.Profile(family)
				res = prompt.Detect(snapshot, &profile)
			}

			return f.Output(output.DetectionView{Target: target, Family: family, Result: res})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the snapshot from a file ('-' for stdin)")
	cmd.Flags().StringVarP(&target, "target", "t", "", "Capture the snapshot from a pane (tmux target or zellij session)")
	cmd.Flags().StringVar(&family, "family", "", "CLI tool family (claude, codex, gemini); detected from the pane when omitted")
	cmd.MarkFlagsMutuallyExclusive("file", "target")
	return cmd
}

func readSnapshot(stdin io.Reader, file string) (string, error) {
	if file != "" && file != "-" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
