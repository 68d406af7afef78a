package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"wisp/internal/project"
)

// ProjectDetailView shows every field of one project.
type ProjectDetailView struct {
	ProjectID string
	Project   project.Project
	Missing   bool // the project is no longer in the store
	AppDomain string

	viewport viewport.Model
	now      func() time.Time
}

// Ensure ProjectDetailView implements View.
var _ View = (*ProjectDetailView)(nil)

// NewProjectDetailView creates a detail view for p.
func NewProjectDetailView(p project.Project, appDomain string) *ProjectDetailView {
	v := &ProjectDetailView{
		ProjectID: p.ID,
		Project:   p,
		AppDomain: appDomain,
		viewport:  viewport.New(80, 20),
		now:       time.Now,
	}
	v.refresh()
	return v
}

// SetProject replaces the displayed record. ok=false marks it missing.
func (v *ProjectDetailView) SetProject(p project.Project, ok bool) {
	v.Missing = !ok
	if ok {
		v.Project = p
		v.ProjectID = p.ID
	}
	v.refresh()
}

// URL returns the public URL of the project.
func (v *ProjectDetailView) URL() string {
	return v.Project.URL(v.AppDomain)
}

// Init implements View.
func (v *ProjectDetailView) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (v *ProjectDetailView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.viewport.Width = msg.Width
		v.viewport.Height = msg.Height - 6
		v.refresh()
		return v, nil
	case tickMsg:
		v.refresh()
		return v, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "g":
			v.viewport.GotoTop()
			return v, nil
		case "G":
			v.viewport.GotoBottom()
			return v, nil
		}
	}
	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// View implements View.
func (v *ProjectDetailView) View() string {
	header := StatusDot(v.Project.Status) + " " + Styles.Title.Render(v.Project.Title())
	if v.Missing {
		header += "  " + Styles.Error.Render("(deleted)")
	}
	return header + "\n\n" + v.viewport.View()
}

// refresh rebuilds the viewport content from Project.
func (v *ProjectDetailView) refresh() {
	v.viewport.SetContent(v.render())
}

func (v *ProjectDetailView) render() string {
	p := v.Project
	now := v.now()

	var rows []string
	field := func(name, value string) {
		if value == "" {
			return
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, Styles.Field.Render(name), Styles.Normal.Render(value)))
	}
	when := func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return ""
		}
		return t.Local().Format("2006-01-02 15:04") + "  " + Styles.Muted.Render(relativeTime(*t, now))
	}

	status := p.Status.Label()
	if project.IsPlaceholder(p.ID) {
		status += " (saving…)"
	}
	field("Status", status)
	if msg := project.Deref(p.StatusMessage); msg != "" {
		field("Message", msg)
	}
	if e := project.Deref(p.Error); e != "" {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, Styles.Field.Render("Error"), Styles.Error.Render(e)))
	}
	field("URL", v.URL())
	visibility := "Public"
	if p.Private {
		visibility = "Private"
	}
	field("Visibility", visibility)
	field("Name", p.Name)
	field("Created", when(p.CreatedAt))
	field("Updated", when(p.LastUpdated))
	field("Deployed", when(p.DeployedAt))
	field("Project ID", p.ProjectID)
	field("ID", p.ID)

	var b strings.Builder
	b.WriteString(strings.Join(rows, "\n"))
	if p.Description != "" {
		b.WriteString("\n\n" + Styles.Section.Render("Description") + "\n")
		b.WriteString(wrap(p.Description, v.viewport.Width))
	}
	if prompt := project.Deref(p.Prompt); prompt != "" {
		b.WriteString("\n\n" + Styles.Section.Render("Prompt") + "\n")
		b.WriteString(wrap(prompt, v.viewport.Width))
	}
	return b.String()
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}
