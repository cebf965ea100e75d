// Package output provides unified output formatting for text, JSON and YAML.
// All commands should use this package for consistent output across the CLI.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Format represents the output format type
type Format int

const (
	// FormatText is human-readable formatted text (default)
	FormatText Format = iota
	// FormatJSON is machine-readable JSON output
	FormatJSON
	// FormatYAML is machine-readable YAML output
	FormatYAML
)

// String returns the string representation of the format
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "text"
	}
}

// ParseFormat parses a --format value. An empty string means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatText, fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Formatter handles output formatting for commands
type Formatter struct {
	format   Format
	writer   io.Writer
	pretty   bool // For JSON: whether to indent
	width    int
	renderer *lipgloss.Renderer
	color    *bool
}

// Option is a functional option for Formatter
type Option func(*Formatter)

// WithFormat sets the output format
func WithFormat(format Format) Option {
	return func(f *Formatter) {
		f.format = format
	}
}

// WithWriter sets the output writer
func WithWriter(w io.Writer) Option {
	return func(f *Formatter) {
		f.writer = w
	}
}

// WithPretty sets whether JSON should be indented
func WithPretty(pretty bool) Option {
	return func(f *Formatter) {
		f.pretty = pretty
	}
}

// WithWidth sets the wrap width for text output. Zero disables wrapping.
func WithWidth(width int) Option {
	return func(f *Formatter) {
		f.width = width
	}
}

// WithColor forces colored text output on or off.
func WithColor(enabled bool) Option {
	return func(f *Formatter) {
		f.color = &enabled
	}
}

// New creates a new Formatter with the given options. Color defaults to on
// when the writer is a terminal and NO_COLOR is unset.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		format: FormatText,
		writer: os.Stdout,
		pretty: true,
		width:  80,
	}
	for _, opt := range opts {
		opt(f)
	}
	color := isTerminalWriter(f.writer) && os.Getenv("NO_COLOR") == ""
	if f.color != nil {
		color = *f.color
	}

	profile := termenv.Ascii
	if color {
		profile = termenv.NewOutput(os.Stdout).EnvColorProfile()
		if profile == termenv.Ascii {
			profile = termenv.ANSI
		}
	}
	f.renderer = lipgloss.NewRenderer(f.writer, termenv.WithProfile(profile))
	return f
}

// Format returns the current output format
func (f *Formatter) Format() Format {
	return f.format
}

// IsText returns true if the output format is human-readable text
func (f *Formatter) IsText() bool {
	return f.format == FormatText
}

// Writer returns the output writer
func (f *Formatter) Writer() io.Writer {
	return f.writer
}

// DetectFormat determines the output format.
// Priority: explicit flag > BDESK_OUTPUT_FORMAT > pipe detection > text
func DetectFormat(flag string) (Format, error) {
	if flag != "" {
		return ParseFormat(flag)
	}
	if env := os.Getenv("BDESK_OUTPUT_FORMAT"); env != "" {
		if f, err := ParseFormat(env); err == nil {
			return f, nil
		}
	}
	// Piped output defaults to JSON: bdesk detect < screen.txt | jq .
	if !IsTerminal() {
		return FormatJSON, nil
	}
	return FormatText, nil
}

// IsTerminal returns true if stdout is a terminal
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
