package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
)

// CLIError represents a structured CLI error with remediation hints.
type CLIError struct {
	Message string `json:"error"`
	Cause   string `json:"cause,omitempty"`
	Hint    string `json:"hint,omitempty"`
	Code    string `json:"code,omitempty"`
	err     error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *CLIError) Unwrap() error {
	return e.err
}

// NewCLIError creates a new CLI error with just a message.
func NewCLIError(msg string) *CLIError {
	return &CLIError{Message: msg}
}

// WithCause adds a cause to the error.
func (e *CLIError) WithCause(cause string) *CLIError {
	e.Cause = cause
	return e
}

// WithHint adds a remediation hint to the error.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// WithCode adds an error code to the error.
func (e *CLIError) WithCode(code string) *CLIError {
	e.Code = code
	return e
}

// Common error hints for frequent scenarios
var (
	HintTargetNotFound   = "Run 'tmux list-panes -a' to see targets, e.g. 'dev:0.1'"
	HintNoPrompt         = "Run 'bdesk detect --target <target>' to see what the pane shows"
	HintOptionRange      = "Answer with an option number shown by 'bdesk detect'"
	HintConfigNotFound   = "Run 'bdesk config init' to create a default configuration"
	HintConfigInvalid    = "Check config syntax with 'bdesk config show'"
	HintTransportMissing = "Install tmux or zellij, or set [monitor] transport in the config"
)

// Explain wraps err in a CLIError with a code and hint when it is one of the
// known answer errors. Other errors are returned as a plain CLIError.
func Explain(err error) *CLIError {
	var cli *CLIError
	if errors.As(err, &cli) {
		return cli
	}
	e := &CLIError{Message: err.Error(), err: err}
	switch {
	case errors.Is(err, prompt.ErrOptionOutOfRange), errors.Is(err, prompt.ErrInvalidOption):
		e.Code = "INVALID_OPTION"
		e.Hint = HintOptionRange
	case errors.Is(err, prompt.ErrEmptySession):
		e.Code = "NO_TARGET"
		e.Hint = HintTargetNotFound
	}
	return e
}

// Error writes err in the formatter's format: a JSON/YAML object for machine
// formats, a styled block otherwise. It returns err unchanged.
func (f *Formatter) Error(err error) error {
	e := Explain(err)
	switch f.format {
	case FormatJSON:
		_ = WriteJSON(f.writer, e, f.pretty)
	case FormatYAML:
		_ = WriteYAML(f.writer, e)
	default:
		fmt.Fprint(f.writer, f.FormatCLIError(e))
	}
	return err
}

// FormatCLIError formats a CLIError as styled text.
func (f *Formatter) FormatCLIError(e *CLIError) string {
	s := f.styles()
	var sb strings.Builder

	sb.WriteString(s.err.Render("Error: "))
	sb.WriteString(e.Message)
	if e.Code != "" {
		sb.WriteString(" ")
		sb.WriteString(s.tag.Render("[" + e.Code + "]"))
	}
	sb.WriteString("\n")

	if e.Cause != "" {
		sb.WriteString(s.muted.Render("  Cause: "))
		sb.WriteString(e.Cause)
		sb.WriteString("\n")
	}
	if e.Hint != "" {
		sb.WriteString(s.info.Render("  Hint: "))
		sb.WriteString(e.Hint)
		sb.WriteString("\n")
	}
	return sb.String()
}
