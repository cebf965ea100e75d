package output

import "github.com/charmbracelet/lipgloss"

// Palette colors, light/dark adaptive (Catppuccin Latte / Mocha).
var (
	colorText    = lipgloss.AdaptiveColor{Light: "#4c4f69", Dark: "#cdd6f4"}
	colorSubtext = lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#a6adc8"}
	colorOverlay = lipgloss.AdaptiveColor{Light: "#9ca0b0", Dark: "#6c7086"}
	colorPrimary = lipgloss.AdaptiveColor{Light: "#8839ef", Dark: "#cba6f7"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#40a02b", Dark: "#a6e3a1"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#df8e1d", Dark: "#f9e2af"}
	colorError   = lipgloss.AdaptiveColor{Light: "#d20f39", Dark: "#f38ba8"}
	colorInfo    = lipgloss.AdaptiveColor{Light: "#1e66f5", Dark: "#89b4fa"}
)

type styles struct {
	title    lipgloss.Style
	question lipgloss.Style
	cursor   lipgloss.Style
	number   lipgloss.Style
	label    lipgloss.Style
	tag      lipgloss.Style
	muted    lipgloss.Style
	success  lipgloss.Style
	warning  lipgloss.Style
	err      lipgloss.Style
	info     lipgloss.Style
}

func (f *Formatter) styles() styles {
	r := f.renderer
	return styles{
		title:    r.NewStyle().Foreground(colorPrimary).Bold(true),
		question: r.NewStyle().Foreground(colorText).Bold(true),
		cursor:   r.NewStyle().Foreground(colorPrimary),
		number:   r.NewStyle().Foreground(colorInfo),
		label:    r.NewStyle().Foreground(colorText),
		tag:      r.NewStyle().Foreground(colorOverlay).Italic(true),
		muted:    r.NewStyle().Foreground(colorSubtext),
		success:  r.NewStyle().Foreground(colorSuccess),
		warning:  r.NewStyle().Foreground(colorWarning),
		err:      r.NewStyle().Foreground(colorError).Bold(true),
		info:     r.NewStyle().Foreground(colorInfo),
	}
}
