package ui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"wisp/internal/api"
	"wisp/internal/progress"
	"wisp/internal/project"
	"wisp/internal/state"
	"wisp/internal/store"
)

// ProjectService writes project rows. Satisfied by *backend.Client.
type ProjectService interface {
	InsertProject(ctx context.Context, row project.NewRow) (project.Project, error)
	UpdateProject(ctx context.Context, id string, pt project.Patch) (project.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// AppService calls the application endpoints. Satisfied by *api.Client.
type AppService interface {
	Refine(ctx context.Context, req api.RefineRequest) (api.RefineResponse, error)
	CreateProject(ctx context.Context, row project.NewRow, iconPath string) (project.Project, error)
	UpdateProject(ctx context.Context, id, description, userID string) error
	DeleteAccount(ctx context.Context, userID string) error
}

// Gallery lists other users' public apps. Satisfied by *backend.Client.
type Gallery interface {
	ListPublicProjects(ctx context.Context) ([]project.Project, error)
}

// Refresher schedules a background refetch. Satisfied by *syncer.Syncer.
type Refresher interface {
	RequestRefresh()
}

// SessionStore persists the local session. Satisfied by *state.Store.
type SessionStore interface {
	Load() (state.Session, error)
	SignOut() (state.Session, error)
	SetPreferences(p state.Preferences) (state.Session, error)
}

// Deps wires the app to its services. Only Store is required.
type Deps struct {
	Store     *store.Store
	Projects  ProjectService
	App       AppService
	Gallery   Gallery
	Refresher Refresher
	Sessions  SessionStore
	Progress  <-chan progress.Event
	AppDomain string
	Logger    *slog.Logger
	Clipboard func(string) error
	Now       func() time.Time
}

// AppModel is the root model: a dashboard, a detail screen, the community
// gallery and a settings screen, with modals stacked on top.
type AppModel struct {
	Mode       AppMode
	Dashboard  *DashboardView
	Detail     *ProjectDetailView
	Settings   *SettingsView
	Discover   *DiscoverView
	Overlays   OverlayStack
	KeyHandler *KeyHandler
	Activity   *ProgressWindow

	Status        string
	StatusIsError bool
	Connection    string

	// SignedOut is set when the user signed out or deleted the account;
	// the program quits afterwards.
	SignedOut      bool
	AccountDeleted bool

	store     *store.Store
	projects  ProjectService
	app       AppService
	gallery   Gallery
	refresher Refresher
	sessions  SessionStore
	session   state.Session
	appDomain string
	logger    *slog.Logger
	clipboard func(string) error
	now       func() time.Time

	storeCh    chan struct{}
	progressCh <-chan progress.Event
	rollbacks  map[string]store.Rollback
	nextOp     uint64

	width  int
	height int
}

// Ensure AppModel can be used as tea.Model via adapter.
var _ tea.Model = (*appModelAdapter)(nil)

// appModelAdapter wraps AppModel to implement tea.Model.
type appModelAdapter struct {
	*AppModel
}

// NewAppModel creates the root model and subscribes it to store changes.
func NewAppModel(d Deps) *AppModel {
	if d.Store == nil {
		d.Store = store.New()
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Clipboard == nil {
		d.Clipboard = clipboard.WriteAll
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	m := &AppModel{
		Mode:       ModeDashboard,
		Dashboard:  NewDashboardView(),
		Activity:   NewProgressWindow(),
		KeyHandler: NewKeyHandler(newKeybindings()),
		store:      d.Store,
		projects:   d.Projects,
		app:        d.App,
		gallery:    d.Gallery,
		refresher:  d.Refresher,
		sessions:   d.Sessions,
		appDomain:  d.AppDomain,
		logger:     d.Logger,
		clipboard:  d.Clipboard,
		now:        d.Now,
		storeCh:    make(chan struct{}, 1),
		progressCh: d.Progress,
		rollbacks:  make(map[string]store.Rollback),
	}
	m.Dashboard.now = d.Now
	d.Store.SetOnChange(func() {
		select {
		case m.storeCh <- struct{}{}:
		default:
		}
	})
	return m
}

func msgCmd(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// newKeybindings registers the global key map.
func newKeybindings() *KeybindRegistry {
	onProject := []AppMode{ModeDashboard, ModeProjectDetail}
	reg := NewKeybindRegistry()
	reg.BindWithDesc("q", tea.Quit, "Quit")
	reg.BindWithDesc("SPC q", tea.Quit, "Quit")
	reg.BindWithDesc("r", msgCmd(RefreshMsg{}), "Refresh")
	reg.BindWithDesc("SPC r", msgCmd(RefreshMsg{}), "Refresh")
	reg.BindWithDesc("SPC p c", msgCmd(ShowCreateProjectMsg{}), "Create app")
	reg.BindWithDescForMode("SPC p e", msgCmd(ShowEditProjectMsg{}), "Edit app", onProject)
	reg.BindWithDescForMode("SPC p d", msgCmd(ShowDeleteProjectMsg{}), "Delete app", onProject)
	reg.BindWithDescForMode("SPC p v", msgCmd(TogglePrivateMsg{}), "Toggle visibility", onProject)
	reg.BindWithDesc("SPC p p", msgCmd(ShowProjectSwitcherMsg{}), "Switch app")
	reg.BindWithDesc("SPC s", msgCmd(ShowSettingsMsg{}), "Settings")
	reg.BindWithDesc("SPC l", msgCmd(ShowActivityMsg{}), "Sync activity")
	reg.BindWithDesc("SPC d", msgCmd(ShowDiscoverMsg{}), "Discover")
	reg.BindWithDescForMode("y", msgCmd(CopyURLMsg{}), "Copy URL", []AppMode{ModeProjectDetail, ModeDiscover})
	return reg
}

// AsTeaModel returns a tea.Model adapter for use with tea.NewProgram.
func (m *AppModel) AsTeaModel() tea.Model {
	return &appModelAdapter{AppModel: m}
}

// Session returns the session the app is running with.
func (m *AppModel) Session() state.Session {
	return m.session
}

// Init implements tea.Model.
func (a *appModelAdapter) Init() tea.Cmd {
	return tea.Batch(
		loadSessionCmd(a.sessions),
		a.Dashboard.SetSnapshot(a.store.Snapshot()),
		listenStoreCmd(a.storeCh),
		listenProgressCmd(a.progressCh),
		tickCmd(),
	)
}

// Update implements tea.Model.
func (a *appModelAdapter) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return a.handleWindowSize(msg)
	case tea.KeyMsg:
		return a.handleKey(msg)
	case StoreChangedMsg:
		return a.handleStoreChanged()
	case progress.Event:
		return a.handleProgress(msg)
	case tickMsg:
		a.Dashboard.Update(msg)
		if a.Detail != nil {
			a.Detail.Update(msg)
		}
		if a.Discover != nil {
			a.Discover.Update(msg)
		}
		return a, tickCmd()
	case spinner.TickMsg:
		_, cmd := a.Dashboard.Update(msg)
		if a.Discover != nil {
			_, dcmd := a.Discover.Update(msg)
			cmd = tea.Batch(cmd, dcmd)
		}
		return a, cmd
	case SessionLoadedMsg:
		return a.handleSessionLoaded(msg)
	case DismissModalMsg:
		a.Overlays.Pop()
		return a, nil
	case RefreshMsg:
		return a.handleRefresh()
	case SelectProjectMsg:
		return a.handleSelectProject(msg)
	case ShowCreateProjectMsg:
		return a.handleShowCreateProject()
	case CreateProjectMsg:
		return a.handleCreateProject(msg)
	case ProjectCreatedMsg:
		return a.handleProjectCreated(msg)
	case RefineRequestedMsg:
		return a, refineCmd(a.app, msg.Request)
	case RefineResultMsg:
		cmd, _ := a.Overlays.UpdateTop(msg)
		return a, cmd
	case ShowEditProjectMsg:
		return a.handleShowEditProject()
	case EditProjectMsg:
		return a.handleEditProject(msg)
	case ProjectEditedMsg:
		return a.handleProjectEdited(msg)
	case ShowDeleteProjectMsg:
		return a.handleShowDeleteProject()
	case DeleteProjectMsg:
		return a.handleDeleteProject(msg)
	case ProjectDeletedMsg:
		return a.handleProjectDeleted(msg)
	case TogglePrivateMsg:
		return a.handleTogglePrivate()
	case ProjectUpdatedMsg:
		return a.handleProjectUpdated(msg)
	case CopyURLMsg:
		return a.handleCopyURL()
	case ShowProjectSwitcherMsg:
		return a.handleShowProjectSwitcher()
	case ShowDiscoverMsg:
		return a.handleShowDiscover()
	case DiscoverLoadedMsg:
		return a.handleDiscoverLoaded(msg)
	case ShowActivityMsg:
		a.Overlays.Push(Overlay{View: a.Activity, Dismiss: "esc"})
		return a, nil
	case ShowSettingsMsg:
		return a.handleShowSettings()
	case SetPreferencesMsg:
		return a, savePreferencesCmd(a.sessions, msg.Preferences)
	case PreferencesSavedMsg:
		return a.handlePreferencesSaved(msg)
	case SignOutMsg:
		return a, signOutCmd(a.sessions)
	case ShowDeleteAccountMsg:
		a.Overlays.Push(Overlay{View: NewDeleteAccountConfirmModal(), Dismiss: "esc"})
		return a, nil
	case DeleteAccountMsg:
		return a.handleDeleteAccount()
	case SignedOutMsg:
		return a.handleSignedOut(msg)
	}

	// Anything else (cursor blink and the like) goes to the top overlay
	// and the current screen.
	var cmds []tea.Cmd
	if cmd, ok := a.Overlays.UpdateTop(msg); ok {
		cmds = append(cmds, cmd)
	}
	v, cmd := a.currentView().Update(msg)
	a.setCurrentView(v)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a *appModelAdapter) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	if top, ok := a.Overlays.Peek(); ok {
		if top.IsDismissKey(msg.String()) {
			a.Overlays.Pop()
			return a, nil
		}
		cmd, _ := a.Overlays.UpdateTop(msg)
		return a, cmd
	}

	if a.KeyHandler != nil {
		if consumed, cmd := a.KeyHandler.Handle(msg, a.Mode); consumed {
			return a, cmd
		}
	}

	switch {
	case a.Mode == ModeDashboard && msg.String() == "enter":
		if p, ok := a.Dashboard.SelectedProject(); ok {
			return a, msgCmd(SelectProjectMsg{ID: p.ID})
		}
		return a, nil
	case a.Mode != ModeDashboard && msg.String() == "esc":
		a.Mode = ModeDashboard
		a.Detail = nil
		a.Settings = nil
		a.Discover = nil
		return a, nil
	}

	v, cmd := a.currentView().Update(msg)
	a.setCurrentView(v)
	return a, cmd
}

func (a *appModelAdapter) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	a.width, a.height = msg.Width, msg.Height
	a.Dashboard.Update(msg)
	if a.Detail != nil {
		a.Detail.Update(msg)
	}
	if a.Discover != nil {
		a.Discover.Update(msg)
	}
	a.Activity.Update(msg)
	return a, nil
}

func (a *appModelAdapter) handleStoreChanged() (tea.Model, tea.Cmd) {
	cmd := a.Dashboard.SetSnapshot(a.store.Snapshot())
	if a.Detail != nil {
		p, ok := a.store.Get(a.Detail.ProjectID)
		a.Detail.SetProject(p, ok)
	}
	return a, tea.Batch(cmd, listenStoreCmd(a.storeCh))
}

func (a *appModelAdapter) handleProgress(ev progress.Event) (tea.Model, tea.Cmd) {
	a.Activity.Append(ev)
	if ev.Kind == progress.KindConnection {
		a.Connection = ev.Message
	}
	return a, listenProgressCmd(a.progressCh)
}

func (a *appModelAdapter) handleSessionLoaded(msg SessionLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		a.setError("Couldn't read session: " + msg.Err.Error())
		return a, nil
	}
	a.session = msg.Session
	if !a.session.SignedIn() {
		a.setError("Not signed in. Run `wispctl login` first.")
	}
	return a, nil
}

func (a *appModelAdapter) handleRefresh() (tea.Model, tea.Cmd) {
	if a.Mode == ModeDiscover && a.Discover != nil {
		return a, tea.Batch(a.Discover.SetLoading(true), discoverCmd(a.gallery))
	}
	if a.refresher == nil {
		a.setError("Refresh unavailable")
		return a, nil
	}
	a.refresher.RequestRefresh()
	a.setStatus("Refreshing…")
	return a, a.Dashboard.SetLoading(true)
}

func (a *AppModel) setStatus(s string) {
	a.Status = s
	a.StatusIsError = false
}

func (a *AppModel) setError(s string) {
	a.Status = s
	a.StatusIsError = true
	a.logger.Warn("ui error", "status", s)
}

// View implements tea.Model.
func (a *appModelAdapter) View() string {
	header := a.renderHeader()
	footer := a.renderFooter()

	body := a.currentView().View()
	if a.Overlays.Len() > 0 {
		h := a.height - lipgloss.Height(header) - lipgloss.Height(footer)
		body = a.Overlays.Render(body, a.width, h)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (a *appModelAdapter) renderHeader() string {
	left := Styles.Title.Render("wisp")
	right := connectionLabel(a.Connection)
	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	return left + strings.Repeat(" ", gap) + right
}

func (a *appModelAdapter) renderFooter() string {
	var lines []string
	if a.Status != "" {
		style := Styles.Status
		if a.StatusIsError {
			style = Styles.Error
		}
		lines = append(lines, style.Render(a.Status))
	}
	if a.KeyHandler != nil && a.KeyHandler.LeaderWaiting {
		lines = append(lines, RenderKeybindHelp(a.KeyHandler, a.Mode))
	} else {
		lines = append(lines, RenderFooter(a.Mode))
	}
	return strings.Join(lines, "\n")
}

// connectionLabel renders the change feed status for the header.
func connectionLabel(status string) string {
	switch status {
	case "subscribed":
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess)).Render("● live")
	case "connecting":
		return Styles.Details.Render("● connecting…")
	case "disconnected":
		return Styles.Error.Render("● offline")
	case "closed":
		return Styles.Muted.Render("○ closed")
	default:
		return ""
	}
}

func (a *appModelAdapter) currentView() View {
	switch a.Mode {
	case ModeProjectDetail:
		if a.Detail != nil {
			return a.Detail
		}
	case ModeSettings:
		if a.Settings != nil {
			return a.Settings
		}
	case ModeDiscover:
		if a.Discover != nil {
			return a.Discover
		}
	}
	return a.Dashboard
}

func (a *appModelAdapter) setCurrentView(v View) {
	switch t := v.(type) {
	case *DashboardView:
		a.Dashboard = t
	case *ProjectDetailView:
		a.Detail = t
	case *SettingsView:
		a.Settings = t
	case *DiscoverView:
		a.Discover = t
	}
}
