package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (a *appModelAdapter) handleShowSettings() (tea.Model, tea.Cmd) {
	a.Mode = ModeSettings
	a.Detail = nil
	a.Discover = nil
	a.Settings = NewSettingsView(a.session)
	return a, nil
}

func (a *appModelAdapter) handlePreferencesSaved(msg PreferencesSavedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		if a.Settings != nil {
			a.Settings.Preferences = a.session.Preferences
		}
		a.setError("Couldn't save preferences: " + msg.Err.Error())
		return a, nil
	}
	a.session = msg.Session
	a.setStatus("Preferences saved")
	return a, nil
}

func (a *appModelAdapter) handleDeleteAccount() (tea.Model, tea.Cmd) {
	a.Overlays.Pop()
	if !a.session.SignedIn() {
		a.setError("Not signed in")
		return a, nil
	}
	a.setStatus("Deleting account…")
	return a, deleteAccountCmd(a.app, a.sessions, a.session.UserID)
}

// handleSignedOut quits once the local session is cleared.
func (a *appModelAdapter) handleSignedOut(msg SignedOutMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		if msg.AccountDeleted {
			a.setError("Account deleted, but signing out failed: " + msg.Err.Error())
		} else {
			a.setError("Couldn't sign out: " + msg.Err.Error())
		}
		return a, nil
	}
	a.session = msg.Session
	a.SignedOut = true
	a.AccountDeleted = msg.AccountDeleted
	return a, tea.Quit
}
