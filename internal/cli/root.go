package cli

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/branchdesk/internal/config"
	"github.com/Dicklesworthstone/branchdesk/internal/output"
)

var (
	cfgFile    string
	cfg        *config.Config
	verbose    bool
	formatFlag string
	sshHost    string
	logger     = slog.Default()

	// Build information - set by goreleaser via ldflags
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// skipConfig marks commands that must run without a loadable config.
const skipConfig = "skip-config"

var rootCmd = &cobra.Command{
	Use:   "bdesk",
	Short: "Detect and answer AI coding CLI prompts in terminal sessions",
	Long: `bdesk watches tmux panes (or zellij sessions) running AI coding CLIs
such as Claude Code, Codex and Gemini, recognises when one is waiting on a
yes/no confirmation or a numbered menu, and sends the answer back as the
keystrokes that CLI expects.

Quick Start:
  bdesk detect --target dev:0.1          # What is this pane asking?
  bdesk answer dev:0.1 2                 # Pick option 2
  bdesk answer dev:0.1 2 --dry-run       # Show the keystrokes only
  bdesk pick dev:0.1                     # Choose interactively
  bdesk watch dev:0.1 dev:0.2 --interactive`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

		if cmd.Annotations[skipConfig] == "true" {
			return nil
		}
		cwd, _ := os.Getwd()
		loaded, err := config.LoadMerged(cwd, cfgFile)
		if err != nil {
			return output.NewCLIError("loading config: " + err.Error()).
				WithCode("CONFIG_INVALID").
				WithHint(output.HintConfigInvalid)
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command and prints any error in the requested format.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		format, ferr := output.DetectFormat(formatFlag)
		if ferr != nil || format == output.FormatText {
			output.New(output.WithWriter(os.Stderr)).Error(err)
		} else {
			output.New(output.WithWriter(os.Stdout), output.WithFormat(format)).Error(err)
		}
		return err
	}
	return nil
}

// formatter builds the output formatter for cmd from --format.
func formatter(cmd *cobra.Command) (*output.Formatter, error) {
	format, err := output.DetectFormat(formatFlag)
	if err != nil {
		return nil, err
	}
	return output.New(output.WithWriter(cmd.OutOrStdout()), output.WithFormat(format)), nil
}

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), Version)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bdesk %s (commit %s, built %s, %s)\n", Version, Commit, Date, runtime.Version())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version")
	return cmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/bdesk/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "", "Output format: text, json or yaml (default text on a terminal, json when piped)")
	rootCmd.PersistentFlags().StringVar(&sshHost, "ssh", "", "Remote host for tmux over SSH (e.g. user@host)")

	rootCmd.AddCommand(
		newDetectCmd(),
		newAnswerCmd(),
		newPickCmd(),
		newWatchCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
}
