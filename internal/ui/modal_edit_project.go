package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

// EditProjectModal collects a description of a change to an existing app.
type EditProjectModal struct {
	ID    string
	Title string
	Err   string

	input textarea.Model
}

// Ensure EditProjectModal implements View.
var _ View = (*EditProjectModal)(nil)

// NewEditProjectModal creates the edit modal for a project.
func NewEditProjectModal(id, title string) *EditProjectModal {
	ta := textarea.New()
	ta.Placeholder = "Describe what should change"
	ta.ShowLineNumbers = false
	ta.SetWidth(56)
	ta.SetHeight(6)
	ta.Focus()
	return &EditProjectModal{ID: id, Title: title, input: ta}
}

// Init implements View.
func (m *EditProjectModal) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements View.
func (m *EditProjectModal) Update(msg tea.Msg) (View, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			return m, func() tea.Msg { return DismissModalMsg{} }
		case "ctrl+s":
			desc := strings.TrimSpace(m.input.Value())
			if desc == "" {
				m.Err = "Describe the change first"
				return m, nil
			}
			id := m.ID
			return m, func() tea.Msg { return EditProjectMsg{ID: id, Description: desc} }
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements View.
func (m *EditProjectModal) View() string {
	content := Styles.Title.Render("Edit "+m.Title) + "\n\n"
	content += m.input.View() + "\n\n"
	if m.Err != "" {
		content += Styles.Error.Render(m.Err) + "\n"
	}
	content += Styles.Hint.Render("Ctrl+S: send  Esc: cancel")
	return Styles.Box.Render(content)
}
