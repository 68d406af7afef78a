package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"wisp/internal/project"
	"wisp/internal/store"
	"wisp/internal/ui/textutil"
)

// titleWidth is the column reserved for project titles.
const titleWidth = 28

// projectItem implements list.Item for a project row.
type projectItem struct {
	project.Project
	now time.Time
}

func (p projectItem) FilterValue() string { return p.Project.Title() }

func (p projectItem) Title() string {
	line := fmt.Sprintf("%s %s %s", StatusDot(p.Status), textutil.PadRight(p.Project.Title(), titleWidth), p.Status.Label())
	if msg := statusMessage(p.Project); msg != "" {
		line += " · " + textutil.Truncate(msg, 40)
	}
	if created := p.Created(); !created.IsZero() {
		line += "  " + relativeTime(created, p.now)
	}
	return line
}

func (p projectItem) Description() string { return p.Project.Description }

// statusMessage prefers the error text for failed projects.
func statusMessage(p project.Project) string {
	if p.Status == project.StatusFailed {
		if e := project.Deref(p.Error); e != "" {
			return e
		}
	}
	return project.Deref(p.StatusMessage)
}

// relativeTime renders t relative to now, e.g. "3 minutes ago".
func relativeTime(t, now time.Time) string {
	if now.Sub(t) < time.Second && now.Sub(t) > -time.Second {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// DashboardView lists the user's projects, newest first.
type DashboardView struct {
	list     list.Model
	Projects []project.Project
	spinner  spinner.Model
	loading  bool
	err      error
	now      func() time.Time
}

// Ensure DashboardView implements View.
var _ View = (*DashboardView)(nil)

// NewDashboardView creates an empty dashboard; call SetSnapshot to fill it.
func NewDashboardView() *DashboardView {
	l := list.New(nil, NewCompactListDelegate(), 0, 0)
	l.Title = "Your apps"
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = Styles.Status

	return &DashboardView{
		list:    l,
		spinner: s,
		now:     time.Now,
	}
}

// Init implements View.
func (d *DashboardView) Init() tea.Cmd {
	return d.spinner.Tick
}

// SetSnapshot replaces the rows, keeping the cursor on the same project
// when it still exists. Returns a spinner command when loading starts.
func (d *DashboardView) SetSnapshot(snap store.Snapshot) tea.Cmd {
	selectedID := ""
	if p, ok := d.SelectedProject(); ok {
		selectedID = p.ID
	}
	d.Projects = snap.Projects
	d.err = snap.Err
	d.updateItems()

	if selectedID != "" {
		for i, p := range d.Projects {
			if p.ID == selectedID {
				d.list.Select(i)
				break
			}
		}
	}
	return d.SetLoading(snap.Loading)
}

// SetLoading toggles the spinner.
func (d *DashboardView) SetLoading(loading bool) tea.Cmd {
	wasLoading := d.loading
	d.loading = loading
	if loading && !wasLoading {
		return d.spinner.Tick
	}
	return nil
}

// Loading reports whether a refresh is in flight.
func (d *DashboardView) Loading() bool {
	return d.loading
}

// Selected returns the cursor index.
func (d *DashboardView) Selected() int {
	return d.list.Index()
}

// Select moves the cursor to the project with id.
func (d *DashboardView) Select(id string) bool {
	for i, p := range d.Projects {
		if p.ID == id {
			d.list.Select(i)
			return true
		}
	}
	return false
}

// SelectedProject returns the project under the cursor.
func (d *DashboardView) SelectedProject() (project.Project, bool) {
	idx := d.list.Index()
	if idx < 0 || idx >= len(d.Projects) {
		return project.Project{}, false
	}
	return d.Projects[idx], true
}

// Update implements View.
func (d *DashboardView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.list.SetWidth(msg.Width)
		d.list.SetHeight(msg.Height - 6) // header, status line and footer
		return d, nil
	case spinner.TickMsg:
		if !d.loading {
			return d, nil
		}
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	case tickMsg:
		d.updateItems()
		return d, nil
	}

	// list.Model handles j/k/g/G; enter is handled by the app.
	var cmd tea.Cmd
	d.list, cmd = d.list.Update(msg)
	return d, cmd
}

// View implements View.
func (d *DashboardView) View() string {
	if d.list.Width() == 0 {
		d.list.SetWidth(80)
	}
	if d.list.Height() == 0 {
		d.list.SetHeight(20)
	}

	var b strings.Builder
	title := Styles.Title.Render(fmt.Sprintf("Your apps (%d)", len(d.Projects)))
	if d.loading {
		title += " " + d.spinner.View()
	}
	b.WriteString(title + "\n")
	if d.err != nil {
		b.WriteString(Styles.Error.Render("Couldn't refresh: "+d.err.Error()) + "\n")
	}
	b.WriteString("\n")

	if len(d.Projects) == 0 {
		if d.loading {
			b.WriteString(Styles.Empty.Render("Loading your apps…"))
		} else {
			b.WriteString(Styles.Empty.Render("No apps yet"))
			b.WriteString("\n" + Styles.Hint.Render("Press SPC p c to create one"))
		}
		return b.String()
	}
	b.WriteString(d.list.View())
	return b.String()
}

func (d *DashboardView) updateItems() {
	now := d.now()
	items := make([]list.Item, len(d.Projects))
	for i, p := range d.Projects {
		items[i] = projectItem{Project: p, now: now}
	}
	idx := d.list.Index()
	d.list.SetItems(items)
	if idx >= len(items) && len(items) > 0 {
		d.list.Select(len(items) - 1)
	}
}
