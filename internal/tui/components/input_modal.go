package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/libdesk/internal/tui/styles"
)

// Field describes one input of the modal
type Field struct {
	Label       string
	Placeholder string
}

// InputModal is a small form: a title and one or more labelled text inputs
type InputModal struct {
	visible bool
	title   string
	labels  []string
	inputs  []textinput.Model
	focus   int
}

// NewInputModal creates a hidden input modal
func NewInputModal() InputModal {
	return InputModal{}
}

// Show displays the modal with a title and fresh, empty fields
func (m *InputModal) Show(title string, fields ...Field) {
	m.visible = true
	m.title = title
	m.focus = 0
	m.labels = make([]string, len(fields))
	m.inputs = make([]textinput.Model, len(fields))
	for i, f := range fields {
		ti := textinput.New()
		ti.Placeholder = f.Placeholder
		ti.CharLimit = 120
		ti.Width = 30
		ti.Prompt = ""
		ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
		ti.PlaceholderStyle = styles.DimStyle
		m.labels[i] = f.Label
		m.inputs[i] = ti
	}
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
}

// Hide dismisses the modal
func (m *InputModal) Hide() {
	m.visible = false
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

// IsVisible returns whether the modal is shown
func (m InputModal) IsVisible() bool {
	return m.visible
}

// Title returns the modal's title
func (m InputModal) Title() string {
	return m.title
}

// Values returns the current field values in order
func (m InputModal) Values() []string {
	out := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		out[i] = strings.TrimSpace(in.Value())
	}
	return out
}

// SetValue fills field i, used to pre-populate the form
func (m *InputModal) SetValue(i int, v string) {
	if i >= 0 && i < len(m.inputs) {
		m.inputs[i].SetValue(v)
	}
}

func (m *InputModal) setFocus(i int) {
	m.inputs[m.focus].Blur()
	m.focus = (i + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Focus()
}

// Update handles input events, returns (modal, cmd, submitted)
func (m InputModal) Update(msg tea.Msg) (InputModal, tea.Cmd, bool) {
	if !m.visible || len(m.inputs) == 0 {
		return m, nil, false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, formKeys.Submit):
			return m, nil, true
		case key.Matches(keyMsg, formKeys.Cancel):
			m.Hide()
			return m, nil, false
		case key.Matches(keyMsg, formKeys.Next):
			m.setFocus(m.focus + 1)
			return m, nil, false
		case key.Matches(keyMsg, formKeys.Prev):
			m.setFocus(m.focus - 1)
			return m, nil, false
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd, false
}

// View renders the input modal
func (m InputModal) View() string {
	if !m.visible {
		return ""
	}

	const (
		modalWidth = 46
		labelWidth = 12
	)

	titleStyle := lipgloss.NewStyle().
		Foreground(styles.White).
		Bold(true).
		Width(modalWidth).
		Background(styles.SlateDark)

	rowStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Background(styles.SlateDark)

	spacer := rowStyle.Render("")

	rows := []string{titleStyle.Render(m.title), spacer}
	for i, in := range m.inputs {
		label := styles.DimStyle
		if i == m.focus {
			label = styles.AccentStyle
		}
		rows = append(rows, rowStyle.Render(label.Render(styles.Pad(m.labels[i], labelWidth))+in.View()))
	}
	rows = append(rows, spacer, rowStyle.Render(
		styles.HelpKeyStyle.Render("tab")+styles.HelpDescStyle.Render(" next  ")+
			styles.HelpKeyStyle.Render("enter")+styles.HelpDescStyle.Render(" save  ")+
			styles.HelpKeyStyle.Render("esc")+styles.HelpDescStyle.Render(" cancel")))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Amber).
		Background(styles.SlateDark).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
