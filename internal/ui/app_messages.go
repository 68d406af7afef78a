package ui

import (
	"time"

	"wisp/internal/api"
	"wisp/internal/project"
	"wisp/internal/state"
)

// StoreChangedMsg is sent whenever the project store changes.
type StoreChangedMsg struct{}

// SelectProjectMsg opens the detail view for a project (enter on the
// dashboard or the switcher).
type SelectProjectMsg struct {
	ID string
}

// SessionLoadedMsg carries the persisted session read at startup.
type SessionLoadedMsg struct {
	Session state.Session
	Err     error
}

// RefreshMsg triggers a manual refresh (r or SPC r).
type RefreshMsg struct{}

// ShowCreateProjectMsg opens the create wizard (SPC p c).
type ShowCreateProjectMsg struct{}

// ShowEditProjectMsg opens the edit modal for the current project (SPC p e).
type ShowEditProjectMsg struct{}

// ShowDeleteProjectMsg asks for confirmation before deleting the current
// project (SPC p d).
type ShowDeleteProjectMsg struct{}

// ShowProjectSwitcherMsg opens the project picker (SPC p p).
type ShowProjectSwitcherMsg struct{}

// ShowSettingsMsg switches to the settings screen (SPC s).
type ShowSettingsMsg struct{}

// ShowDiscoverMsg opens the community gallery (SPC d).
type ShowDiscoverMsg struct{}

// DiscoverLoadedMsg carries the result of a gallery fetch.
type DiscoverLoadedMsg struct {
	Projects []project.Project
	Err      error
}

// ShowActivityMsg opens the sync activity window (SPC l).
type ShowActivityMsg struct{}

// TogglePrivateMsg flips the visibility of the current project (SPC p v).
type TogglePrivateMsg struct{}

// CopyURLMsg copies the current project's URL to the clipboard (y).
type CopyURLMsg struct{}

// RefineRequestedMsg is sent by the wizard to ask for clarifying questions.
type RefineRequestedMsg struct {
	Request api.RefineRequest
}

// RefineResultMsg carries the /api/refine response back to the wizard.
type RefineResultMsg struct {
	Response api.RefineResponse
	Err      error
}

// CreateProjectMsg is sent when the wizard is submitted.
type CreateProjectMsg struct {
	Draft project.Draft
}

// ProjectCreatedMsg reports the outcome of a create. TempID is the
// placeholder inserted optimistically.
type ProjectCreatedMsg struct {
	TempID  string
	Project project.Project
	Err     error
}

// EditProjectMsg is sent when the edit modal is submitted.
type EditProjectMsg struct {
	ID          string
	Description string
}

// ProjectEditedMsg reports the outcome of an edit request.
type ProjectEditedMsg struct {
	ID  string
	Err error
}

// DeleteProjectMsg is sent when the user confirms a delete.
type DeleteProjectMsg struct {
	ID    string
	Title string
}

// ProjectDeletedMsg reports the outcome of a delete.
type ProjectDeletedMsg struct {
	ID    string
	Title string
	Err   error
}

// ProjectUpdatedMsg reports the outcome of a visibility toggle.
type ProjectUpdatedMsg struct {
	Op  string
	ID  string
	Err error
}

// SetPreferencesMsg persists new preferences from the settings screen.
type SetPreferencesMsg struct {
	Preferences state.Preferences
}

// PreferencesSavedMsg reports the outcome of SetPreferencesMsg.
type PreferencesSavedMsg struct {
	Session state.Session
	Err     error
}

// ShowDeleteAccountMsg asks for confirmation before deleting the account.
type ShowDeleteAccountMsg struct{}

// DeleteAccountMsg is sent when the user confirms account deletion.
type DeleteAccountMsg struct{}

// SignOutMsg clears the local session.
type SignOutMsg struct{}

// SignedOutMsg reports that the session was cleared, optionally after an
// account deletion.
type SignedOutMsg struct {
	Session        state.Session
	AccountDeleted bool
	Err            error
}

// DismissModalMsg is sent when the user cancels a modal (esc).
type DismissModalMsg struct{}

// tickMsg re-renders relative timestamps.
type tickMsg time.Time
