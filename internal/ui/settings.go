package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"wisp/internal/state"
)

type settingsRow int

const (
	rowPrivateByDefault settingsRow = iota
	rowNotifications
	rowSignOut
	rowDeleteAccount
	settingsRowCount
)

// SettingsView edits local preferences and manages the account.
type SettingsView struct {
	Preferences state.Preferences
	UserID      string
	Cursor      int
}

// Ensure SettingsView implements View.
var _ View = (*SettingsView)(nil)

// NewSettingsView creates the settings screen for sess.
func NewSettingsView(sess state.Session) *SettingsView {
	return &SettingsView{Preferences: sess.Preferences, UserID: sess.UserID}
}

// Init implements View.
func (s *SettingsView) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (s *SettingsView) Update(msg tea.Msg) (View, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	switch k.String() {
	case "j", "down":
		if s.Cursor < int(settingsRowCount)-1 {
			s.Cursor++
		}
	case "k", "up":
		if s.Cursor > 0 {
			s.Cursor--
		}
	case "enter", "x":
		return s, s.activate()
	}
	return s, nil
}

func (s *SettingsView) activate() tea.Cmd {
	switch settingsRow(s.Cursor) {
	case rowPrivateByDefault:
		s.Preferences.PrivateByDefault = !s.Preferences.PrivateByDefault
		prefs := s.Preferences
		return func() tea.Msg { return SetPreferencesMsg{Preferences: prefs} }
	case rowNotifications:
		s.Preferences.NotificationsEnabled = !s.Preferences.NotificationsEnabled
		prefs := s.Preferences
		return func() tea.Msg { return SetPreferencesMsg{Preferences: prefs} }
	case rowSignOut:
		return func() tea.Msg { return SignOutMsg{} }
	case rowDeleteAccount:
		return func() tea.Msg { return ShowDeleteAccountMsg{} }
	}
	return nil
}

// View implements View.
func (s *SettingsView) View() string {
	check := func(on bool) string {
		if on {
			return "[x]"
		}
		return "[ ]"
	}
	rows := []string{
		check(s.Preferences.PrivateByDefault) + " New apps are private",
		check(s.Preferences.NotificationsEnabled) + " Notifications",
		"Sign out",
		"Delete account",
	}

	var b strings.Builder
	b.WriteString(Styles.Title.Render("Settings") + "\n")
	if s.UserID != "" {
		b.WriteString(Styles.Muted.Render("Signed in as "+s.UserID) + "\n")
	}
	b.WriteString("\n")
	for i, r := range rows {
		style := Styles.Normal
		if settingsRow(i) == rowDeleteAccount {
			style = Styles.Error
		}
		if i == s.Cursor {
			b.WriteString(Styles.Selected.Render("> "+r) + "\n")
			continue
		}
		b.WriteString("  " + style.Render(r) + "\n")
	}
	b.WriteString("\n" + Styles.Hint.Render("Enter: toggle/select"))
	return b.String()
}
