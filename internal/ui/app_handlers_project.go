package ui

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"wisp/internal/project"
)

// currentProject returns the project the project commands act on: the
// open detail view, else the dashboard cursor.
func (a *AppModel) currentProject() (project.Project, bool) {
	if a.Mode == ModeProjectDetail && a.Detail != nil {
		if a.Detail.Missing {
			return project.Project{}, false
		}
		return a.Detail.Project, true
	}
	if a.Mode == ModeDashboard && a.Dashboard != nil {
		return a.Dashboard.SelectedProject()
	}
	return project.Project{}, false
}

// saved returns the current project unless it is missing or still an
// optimistic placeholder, in which case the status line says why.
func (a *AppModel) saved() (project.Project, bool) {
	p, ok := a.currentProject()
	if !ok {
		a.setError("No app selected")
		return project.Project{}, false
	}
	if project.IsPlaceholder(p.ID) {
		a.setError(p.Title() + " is still being saved")
		return project.Project{}, false
	}
	return p, true
}

func (a *AppModel) opKey(kind, id string) string {
	a.nextOp++
	return kind + ":" + id + ":" + strconv.FormatUint(a.nextOp, 10)
}

// takeRollback removes and returns the rollback registered for key.
func (a *AppModel) takeRollback(key string) func() {
	rb, ok := a.rollbacks[key]
	if !ok {
		return func() {}
	}
	delete(a.rollbacks, key)
	return rb
}

// handleSelectProject opens the detail view.
func (a *appModelAdapter) handleSelectProject(msg SelectProjectMsg) (tea.Model, tea.Cmd) {
	if top, ok := a.Overlays.Peek(); ok {
		if _, isSwitcher := top.View.(*ProjectSwitcherModal); isSwitcher {
			a.Overlays.Pop()
		}
	}
	p, ok := a.store.Get(msg.ID)
	if !ok {
		a.setError("App not found")
		return a, nil
	}
	a.Dashboard.Select(msg.ID)
	a.Mode = ModeProjectDetail
	a.Detail = NewProjectDetailView(p, a.appDomain)
	a.Detail.now = a.now
	if a.width > 0 {
		a.Detail.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
	}
	return a, a.Detail.Init()
}

func (a *appModelAdapter) handleShowProjectSwitcher() (tea.Model, tea.Cmd) {
	ps := a.store.Projects()
	if len(ps) == 0 {
		a.setError("No apps yet")
		return a, nil
	}
	modal := NewProjectSwitcherModal(ps)
	a.Overlays.Push(Overlay{View: modal})
	return a, modal.Init()
}

func (a *appModelAdapter) handleShowCreateProject() (tea.Model, tea.Cmd) {
	if !a.session.SignedIn() {
		a.setError("Sign in with `wispctl login` to create apps")
		return a, nil
	}
	modal := NewCreateProjectModal(a.session.Preferences.PrivateByDefault)
	// The wizard handles esc itself to step back.
	a.Overlays.Push(Overlay{View: modal})
	return a, modal.Init()
}

// handleCreateProject inserts a placeholder right away and sends the
// insert; ProjectCreatedMsg resolves or rolls it back.
func (a *appModelAdapter) handleCreateProject(msg CreateProjectMsg) (tea.Model, tea.Cmd) {
	a.Overlays.Pop()
	row := msg.Draft.Row(a.session.UserID)
	placeholder := row.Placeholder(a.now())
	a.rollbacks[placeholder.ID] = a.store.OptimisticAdd(placeholder)
	a.Dashboard.Select(placeholder.ID)
	a.setStatus(fmt.Sprintf("Creating %s…", placeholder.Title()))
	a.logger.Debug("create project", "temp_id", placeholder.ID, "project_id", row.ProjectID)
	return a, createProjectCmd(a.projects, a.app, msg.Draft, row, placeholder.ID)
}

func (a *appModelAdapter) handleProjectCreated(msg ProjectCreatedMsg) (tea.Model, tea.Cmd) {
	rollback := a.takeRollback(msg.TempID)
	if msg.Err != nil {
		rollback()
		a.setError("Couldn't create app: " + msg.Err.Error())
		return a, nil
	}
	a.store.ResolvePlaceholder(msg.TempID, msg.Project)
	if a.Detail != nil && a.Detail.ProjectID == msg.TempID {
		a.Detail.ProjectID = msg.Project.ID
		p, ok := a.store.Get(msg.Project.ID)
		a.Detail.SetProject(p, ok)
	}
	a.setStatus(fmt.Sprintf("Created %s", msg.Project.Title()))
	return a, nil
}

func (a *appModelAdapter) handleShowEditProject() (tea.Model, tea.Cmd) {
	p, ok := a.saved()
	if !ok {
		return a, nil
	}
	modal := NewEditProjectModal(p.ID, p.Title())
	a.Overlays.Push(Overlay{View: modal, Dismiss: "esc"})
	return a, modal.Init()
}

// handleEditProject sends the change request. The project's new status
// arrives through the change feed.
func (a *appModelAdapter) handleEditProject(msg EditProjectMsg) (tea.Model, tea.Cmd) {
	a.Overlays.Pop()
	a.setStatus("Sending change…")
	return a, editProjectCmd(a.app, msg.ID, msg.Description, a.session.UserID)
}

func (a *appModelAdapter) handleProjectEdited(msg ProjectEditedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		a.setError(msg.Err.Error())
		return a, nil
	}
	a.setStatus("Change requested; the app will redeploy")
	return a, nil
}

func (a *appModelAdapter) handleShowDeleteProject() (tea.Model, tea.Cmd) {
	p, ok := a.saved()
	if !ok {
		return a, nil
	}
	modal := NewDeleteProjectConfirmModal(p.ID, p.Title())
	a.Overlays.Push(Overlay{View: modal, Dismiss: "esc"})
	return a, modal.Init()
}

// handleDeleteProject removes the row optimistically and sends the delete.
func (a *appModelAdapter) handleDeleteProject(msg DeleteProjectMsg) (tea.Model, tea.Cmd) {
	a.Overlays.Pop()
	a.rollbacks["delete:"+msg.ID] = a.store.OptimisticRemove(msg.ID)
	if a.Mode == ModeProjectDetail && a.Detail != nil && a.Detail.ProjectID == msg.ID {
		a.Mode = ModeDashboard
		a.Detail = nil
	}
	a.setStatus(fmt.Sprintf("Deleting %s…", msg.Title))
	return a, deleteProjectCmd(a.projects, msg.ID, msg.Title)
}

func (a *appModelAdapter) handleProjectDeleted(msg ProjectDeletedMsg) (tea.Model, tea.Cmd) {
	rollback := a.takeRollback("delete:" + msg.ID)
	if msg.Err != nil {
		rollback()
		a.setError(fmt.Sprintf("Couldn't delete %s: %v", msg.Title, msg.Err))
		return a, nil
	}
	a.setStatus(fmt.Sprintf("Deleted %s", msg.Title))
	return a, nil
}

func (a *appModelAdapter) handleTogglePrivate() (tea.Model, tea.Cmd) {
	p, ok := a.saved()
	if !ok {
		return a, nil
	}
	private := !p.Private
	pt := project.Patch{Private: &private}
	op := a.opKey("update", p.ID)
	a.rollbacks[op] = a.store.OptimisticUpdate(p.ID, pt)
	if private {
		a.setStatus(p.Title() + " is now private")
	} else {
		a.setStatus(p.Title() + " is now public")
	}
	return a, updateProjectCmd(a.projects, op, p.ID, pt)
}

func (a *appModelAdapter) handleProjectUpdated(msg ProjectUpdatedMsg) (tea.Model, tea.Cmd) {
	rollback := a.takeRollback(msg.Op)
	if msg.Err != nil {
		rollback()
		a.setError("Couldn't change visibility: " + msg.Err.Error())
	}
	return a, nil
}

func (a *appModelAdapter) handleCopyURL() (tea.Model, tea.Cmd) {
	var url string
	switch {
	case a.Mode == ModeDiscover && a.Discover != nil:
		p, ok := a.Discover.SelectedProject()
		if !ok {
			return a, nil
		}
		url = p.URL(a.appDomain)
	case a.Detail != nil:
		url = a.Detail.URL()
	default:
		return a, nil
	}
	if url == "" {
		a.setError("This app has no URL yet")
		return a, nil
	}
	if err := a.clipboard(url); err != nil {
		a.setError("Couldn't copy: " + err.Error())
		return a, nil
	}
	a.setStatus("Copied " + url)
	return a, nil
}
