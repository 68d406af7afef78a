package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"wisp/internal/project"
)

// DiscoverView is the community gallery: deployed public apps, newest
// first. It is fetched on open and on refresh; the change feed only
// covers the user's own projects.
type DiscoverView struct {
	list     list.Model
	Projects []project.Project
	spinner  spinner.Model
	loading  bool
	err      error
	now      func() time.Time
}

// Ensure DiscoverView implements View.
var _ View = (*DiscoverView)(nil)

// NewDiscoverView creates an empty gallery in the loading state.
func NewDiscoverView(now func() time.Time) *DiscoverView {
	l := list.New(nil, NewCompactListDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = Styles.Status

	if now == nil {
		now = time.Now
	}
	return &DiscoverView{list: l, spinner: s, loading: true, now: now}
}

// Init implements View.
func (d *DiscoverView) Init() tea.Cmd {
	return d.spinner.Tick
}

// SetLoading toggles the spinner.
func (d *DiscoverView) SetLoading(loading bool) tea.Cmd {
	wasLoading := d.loading
	d.loading = loading
	if loading && !wasLoading {
		return d.spinner.Tick
	}
	return nil
}

// Loading reports whether a fetch is in flight.
func (d *DiscoverView) Loading() bool {
	return d.loading
}

// SetResult installs a fetch result. A failed fetch keeps the rows it has.
func (d *DiscoverView) SetResult(rows []project.Project, err error) {
	d.loading = false
	d.err = err
	if err != nil {
		return
	}
	d.Projects = rows
	project.SortByCreatedDesc(d.Projects)
	d.updateItems()
}

// SelectedProject returns the app under the cursor.
func (d *DiscoverView) SelectedProject() (project.Project, bool) {
	idx := d.list.Index()
	if idx < 0 || idx >= len(d.Projects) {
		return project.Project{}, false
	}
	return d.Projects[idx], true
}

// Update implements View.
func (d *DiscoverView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.list.SetWidth(msg.Width)
		d.list.SetHeight(msg.Height - 6)
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

	var cmd tea.Cmd
	d.list, cmd = d.list.Update(msg)
	return d, cmd
}

// View implements View.
func (d *DiscoverView) View() string {
	if d.list.Width() == 0 {
		d.list.SetWidth(80)
	}
	if d.list.Height() == 0 {
		d.list.SetHeight(20)
	}

	var b strings.Builder
	title := Styles.Title.Render(fmt.Sprintf("Discover (%d)", len(d.Projects)))
	if d.loading {
		title += " " + d.spinner.View()
	}
	b.WriteString(title + "\n")
	if d.err != nil {
		b.WriteString(Styles.Error.Render("Couldn't load the gallery: "+d.err.Error()) + "\n")
	}
	b.WriteString("\n")

	if len(d.Projects) == 0 {
		if d.loading {
			b.WriteString(Styles.Empty.Render("Loading community apps…"))
		} else {
			b.WriteString(Styles.Empty.Render("No community apps yet"))
			b.WriteString("\n" + Styles.Hint.Render("Public apps show up here once deployed"))
		}
		return b.String()
	}
	b.WriteString(d.list.View())
	return b.String()
}

func (d *DiscoverView) updateItems() {
	now := d.now()
	items := make([]list.Item, len(d.Projects))
	for i, p := range d.Projects {
		items[i] = projectItem{Project: p, now: now}
	}
	d.list.SetItems(items)
	if d.list.Index() >= len(items) && len(items) > 0 {
		d.list.Select(len(items) - 1)
	}
}
