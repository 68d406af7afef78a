package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"wisp/internal/api"
	"wisp/internal/progress"
	"wisp/internal/project"
	"wisp/internal/state"
)

// requestTimeout bounds every network call started from the UI.
const requestTimeout = 30 * time.Second

// relativeTimeTick is how often relative timestamps are re-rendered.
const relativeTimeTick = 30 * time.Second

var errNotConfigured = errors.New("not configured")

// listenStoreCmd waits for the next store change notification.
func listenStoreCmd(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return StoreChangedMsg{}
	}
}

// listenProgressCmd waits for the next sync event. The event itself is
// the message.
func listenProgressCmd(ch <-chan progress.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return ev
	}
}

func loadSessionCmd(s SessionStore) tea.Cmd {
	return func() tea.Msg {
		if s == nil {
			return SessionLoadedMsg{}
		}
		sess, err := s.Load()
		return SessionLoadedMsg{Session: sess, Err: err}
	}
}

// createProjectCmd inserts row directly, or goes through the app API when
// the draft carries an icon to upload.
func createProjectCmd(projects ProjectService, app AppService, d project.Draft, row project.NewRow, tempID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		var (
			p   project.Project
			err error
		)
		switch {
		case d.IconPath != "" && app != nil:
			p, err = app.CreateProject(ctx, row, d.IconPath)
		case projects != nil:
			p, err = projects.InsertProject(ctx, row)
		default:
			err = errNotConfigured
		}
		return ProjectCreatedMsg{TempID: tempID, Project: p, Err: err}
	}
}

func editProjectCmd(app AppService, id, description, userID string) tea.Cmd {
	return func() tea.Msg {
		if app == nil {
			return ProjectEditedMsg{ID: id, Err: errNotConfigured}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return ProjectEditedMsg{ID: id, Err: app.UpdateProject(ctx, id, description, userID)}
	}
}

func deleteProjectCmd(projects ProjectService, id, title string) tea.Cmd {
	return func() tea.Msg {
		if projects == nil {
			return ProjectDeletedMsg{ID: id, Title: title, Err: errNotConfigured}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return ProjectDeletedMsg{ID: id, Title: title, Err: projects.DeleteProject(ctx, id)}
	}
}

func updateProjectCmd(projects ProjectService, op, id string, pt project.Patch) tea.Cmd {
	return func() tea.Msg {
		if projects == nil {
			return ProjectUpdatedMsg{Op: op, ID: id, Err: errNotConfigured}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := projects.UpdateProject(ctx, id, pt)
		return ProjectUpdatedMsg{Op: op, ID: id, Err: err}
	}
}

func refineCmd(app AppService, req api.RefineRequest) tea.Cmd {
	return func() tea.Msg {
		if app == nil {
			return RefineResultMsg{Err: errNotConfigured}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp, err := app.Refine(ctx, req)
		return RefineResultMsg{Response: resp, Err: err}
	}
}

func discoverCmd(gallery Gallery) tea.Cmd {
	return func() tea.Msg {
		if gallery == nil {
			return DiscoverLoadedMsg{Err: errNotConfigured}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		rows, err := gallery.ListPublicProjects(ctx)
		return DiscoverLoadedMsg{Projects: rows, Err: err}
	}
}

func savePreferencesCmd(s SessionStore, prefs state.Preferences) tea.Cmd {
	return func() tea.Msg {
		if s == nil {
			return PreferencesSavedMsg{Err: errNotConfigured}
		}
		sess, err := s.SetPreferences(prefs)
		return PreferencesSavedMsg{Session: sess, Err: err}
	}
}

func signOutCmd(s SessionStore) tea.Cmd {
	return func() tea.Msg {
		if s == nil {
			return SignedOutMsg{Err: errNotConfigured}
		}
		sess, err := s.SignOut()
		return SignedOutMsg{Session: sess, Err: err}
	}
}

// deleteAccountCmd deletes the account server-side, then signs out.
func deleteAccountCmd(app AppService, s SessionStore, userID string) tea.Cmd {
	return func() tea.Msg {
		if app == nil || s == nil {
			return SignedOutMsg{Err: errNotConfigured}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := app.DeleteAccount(ctx, userID); err != nil {
			return SignedOutMsg{Err: err}
		}
		sess, err := s.SignOut()
		return SignedOutMsg{Session: sess, AccountDeleted: true, Err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(relativeTimeTick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
