// Package picker is a terminal UI for answering a detected prompt locally.
package picker

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/Dicklesworthstone/branchdesk/internal/prompt"
)

// ErrCancelled is returned by Run when the user quits without choosing.
var ErrCancelled = errors.New("picker cancelled")

// choice is one selectable row.
type choice struct {
	answer    string
	label     string
	number    string
	isDefault bool
	freeText  bool
}

// KeyMap defines the keybindings
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Custom key.Binding
	Number key.Binding
	Back   key.Binding
	Quit   key.Binding
}

var keys = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Custom: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "type answer"),
	),
	Number: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
		key.WithHelp("1-9", "quick select"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Model is the Bubble Tea model for the picker
type Model struct {
	target   string
	question string
	choices  []choice
	cursor   int
	typing   bool
	input    textinput.Model
	answer   string
	quitting bool
	width    int
}

// New creates a picker for data with the cursor on the default choice.
func New(target string, data prompt.Data) Model {
	ti := textinput.New()
	ti.Placeholder = "Type an answer..."
	ti.CharLimit = 500
	ti.Width = 50
	ti.PromptStyle = lipgloss.NewStyle().Foreground(colorPrimary)

	m := Model{
		target:   target,
		question: data.QuestionText(),
		input:    ti,
		width:    80,
	}

	switch d := data.(type) {
	case *prompt.MultipleChoiceData:
		for i, o := range d.Options {
			m.choices = append(m.choices, choice{
				answer:    strconv.Itoa(o.Number),
				label:     o.Label,
				number:    strconv.Itoa(o.Number),
				isDefault: o.IsDefault,
				freeText:  o.RequiresTextInput,
			})
			if o.IsDefault {
				m.cursor = i
			}
		}
	case *prompt.YesNoData:
		for i, opt := range d.Options {
			m.choices = append(m.choices, choice{
				answer:    opt,
				label:     opt,
				number:    strconv.Itoa(i + 1),
				isDefault: opt == d.DefaultOption,
			})
			if opt == d.DefaultOption {
				m.cursor = i
			}
		}
	}
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.typing {
			return m.updateTyping(msg)
		}
		switch {
		case key.Matches(msg, keys.Quit), key.Matches(msg, keys.Back):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}

		case key.Matches(msg, keys.Select):
			if len(m.choices) > 0 {
				m.answer = m.choices[m.cursor].answer
				return m, tea.Quit
			}

		case key.Matches(msg, keys.Number):
			n, _ := strconv.Atoi(msg.String())
			if n >= 1 && n <= len(m.choices) {
				m.cursor = n - 1
				m.answer = m.choices[m.cursor].answer
				return m, tea.Quit
			}

		case key.Matches(msg, keys.Custom):
			m.typing = true
			return m, m.input.Focus()
		}
	}
	return m, nil
}

func (m Model) updateTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, keys.Back):
		m.typing = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil
	case key.Matches(msg, keys.Select):
		if text := strings.TrimSpace(m.input.Value()); text != "" {
			m.answer = text
			return m, tea.Quit
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Answer returns the chosen answer, empty if cancelled.
func (m Model) Answer() string {
	return m.answer
}

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#8839ef", Dark: "#cba6f7"}
	colorText    = lipgloss.AdaptiveColor{Light: "#4c4f69", Dark: "#cdd6f4"}
	colorOverlay = lipgloss.AdaptiveColor{Light: "#9ca0b0", Dark: "#6c7086"}
	colorSurface = lipgloss.AdaptiveColor{Light: "#ccd0da", Dark: "#313244"}
	colorPink    = lipgloss.AdaptiveColor{Light: "#ea76cb", Dark: "#f5c2e7"}
)

// View implements tea.Model
func (m Model) View() string {
	if m.answer != "" || m.quitting {
		return ""
	}

	titleStyle := lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	questionStyle := lipgloss.NewStyle().Foreground(colorText).Bold(true)
	selectedStyle := lipgloss.NewStyle().Foreground(colorPink).Bold(true)
	textStyle := lipgloss.NewStyle().Foreground(colorText)
	dimStyle := lipgloss.NewStyle().Foreground(colorOverlay)

	var b strings.Builder
	b.WriteString("\n  " + titleStyle.Render("Answer prompt") + dimStyle.Render("  "+m.target) + "\n\n")

	width := m.width - 4
	if width < 20 {
		width = 20
	}
	for _, line := range strings.Split(wordwrap.String(m.question, width), "\n") {
		b.WriteString("  " + questionStyle.Render(line) + "\n")
	}
	b.WriteString("\n")

	for i, c := range m.choices {
		label := runewidth.Truncate(c.label, width-6, "…")
		if i == m.cursor {
			b.WriteString("  " + selectedStyle.Render("❯ "+c.number+". "+label))
		} else {
			b.WriteString("    " + dimStyle.Render(c.number+".") + " " + textStyle.Render(label))
		}
		var tags []string
		if c.isDefault {
			tags = append(tags, "default")
		}
		if c.freeText {
			tags = append(tags, "text input")
		}
		if len(tags) > 0 {
			b.WriteString(dimStyle.Render("  (" + strings.Join(tags, ", ") + ")"))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.typing {
		b.WriteString("  " + m.input.View() + "\n\n")
		b.WriteString("  " + m.renderHelpBar([][2]string{{"Enter", "send"}, {"Esc", "back"}}) + "\n")
	} else {
		b.WriteString("  " + m.renderHelpBar([][2]string{
			{"↑/↓", "navigate"}, {"1-9", "quick select"}, {"/", "type"}, {"Enter", "select"}, {"Esc", "quit"},
		}) + "\n")
	}
	return b.String()
}

func (m Model) renderHelpBar(items [][2]string) string {
	keyStyle := lipgloss.NewStyle().
		Background(colorSurface).
		Foreground(colorText).
		Bold(true).
		Padding(0, 1)
	descStyle := lipgloss.NewStyle().Foreground(colorOverlay)

	var parts []string
	for _, item := range items {
		parts = append(parts, keyStyle.Render(item[0])+" "+descStyle.Render(item[1]))
	}
	return strings.Join(parts, "  ")
}

// Run shows the picker on stderr and returns the chosen answer.
func Run(target string, data prompt.Data) (string, error) {
	if data == nil {
		return "", fmt.Errorf("no prompt to answer")
	}
	p := tea.NewProgram(New(target, data), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	answer := final.(Model).Answer()
	if answer == "" {
		return "", ErrCancelled
	}
	return answer, nil
}
