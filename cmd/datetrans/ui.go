package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

type uiModel struct {
	textarea  textarea.Model
	viewport  viewport.Model
	submitted bool
	app       *App
}

func newUIModel(app *App) *uiModel {
	ta := textarea.New()
	ta.Placeholder = "Dates (yy-mm-dd), one per line:"
	ta.Focus()

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().Margin(1, 2).
		Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("99"))

	return &uiModel{
		textarea: ta,
		viewport: vp,
		app:      app,
	}
}

func (m *uiModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m *uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		taCmd  tea.Cmd
		vpCmd  tea.Cmd
		cmds   []tea.Cmd
		resize bool
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc:
			return m, tea.Quit
		case msg.Type == tea.KeyCtrlL:
			m.textarea.Reset()

		case msg.Type == tea.KeyCtrlD && !m.submitted:
			m.submitted = true
			translated, err := m.Translate()
			if err != nil {
				translated = errorStyle.Render(fmt.Sprintf("Failed to translate: %v", err))
			}
			m.viewport.SetContent(translated)
			m.textarea.Blur()

		case m.submitted && msg.Type == tea.KeyEnter: // Enter while submitted to edit
			m.submitted = false
			m.textarea.Focus()
			return m, nil
		}

	case tea.WindowSizeMsg:
		resize = true
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 3 // Account for textarea and margins
		m.textarea.SetWidth(msg.Width - 4) // Account for textarea margins
		m.textarea.SetHeight(msg.Height - 8)
	}

	m.textarea, taCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	if resize {
		cmds = append(cmds, vpCmd)
	}

	return m, tea.Batch(append(cmds, taCmd)...)
}

// Translate each non-empty line of the text area, and returns one "source -> target" line per date.
func (m *uiModel) Translate() (string, error) {
	var sources []string
	for _, line := range strings.Split(m.textarea.Value(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			sources = append(sources, line)
		}
	}
	if len(sources) == 0 {
		return "(no dates given)", nil
	}
	targets, err := m.app.Translate(sources)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for ii, source := range sources {
		fmt.Fprintf(&sb, "%s -> %s\n", source, targets[ii])
	}
	return sb.String(), nil
}

func (m *uiModel) View() string {
	if m.submitted {
		return fmt.Sprintf("\n%s\n\nPress Enter to edit...", m.viewport.View())
	}

	return fmt.Sprintf(
		"\n%s\n\n"+
			"\t• Ctrl+C or ESC to quit;\n"+
			"\t• Ctrl+D to translate;\n"+
			"\t• Ctrl+L to clear the dates.\n",
		m.textarea.View(),
	)
}
