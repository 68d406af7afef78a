package ui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"wisp/internal/project"
)

// ProjectSwitcherModal is a filterable picker over the current projects.
type ProjectSwitcherModal struct {
	list list.Model
}

type switcherItem struct {
	id    string
	title string
	name  string
}

func (s switcherItem) FilterValue() string { return s.title + " " + s.name }
func (s switcherItem) Title() string       { return s.title }
func (s switcherItem) Description() string { return s.name }

// Ensure ProjectSwitcherModal implements View.
var _ View = (*ProjectSwitcherModal)(nil)

// NewProjectSwitcherModal creates a picker over projects.
func NewProjectSwitcherModal(projects []project.Project) *ProjectSwitcherModal {
	items := make([]list.Item, len(projects))
	for i, p := range projects {
		items[i] = switcherItem{id: p.ID, title: p.Title(), name: p.Name}
	}
	l := list.New(items, NewCompactListDelegate(), 40, 12)
	l.Title = "Switch app"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	l.Styles.Title = Styles.Title
	return &ProjectSwitcherModal{list: l}
}

// Init implements View.
func (m *ProjectSwitcherModal) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (m *ProjectSwitcherModal) Update(msg tea.Msg) (View, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch k.String() {
		case "esc":
			return m, func() tea.Msg { return DismissModalMsg{} }
		case "enter":
			if sel, ok := m.list.SelectedItem().(switcherItem); ok {
				return m, func() tea.Msg { return SelectProjectMsg{ID: sel.id} }
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements View.
func (m *ProjectSwitcherModal) View() string {
	return Styles.BoxCompact.Render(m.list.View() + "\n" + Styles.Hint.Render("/: filter  Enter: open  Esc: cancel"))
}
