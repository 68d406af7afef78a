package ui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// leaderHelpBindings converts the hints for the pending sequence into
// key.Bindings, plus a trailing esc.
func leaderHelpBindings(h *KeyHandler, mode AppMode) []key.Binding {
	hints := h.Registry.LeaderHints(h.CurrentSeq(), mode)
	if len(hints) == 0 {
		return nil
	}
	bindings := make([]key.Binding, 0, len(hints)+1)
	for _, k := range SortedKeys(hints) {
		bindings = append(bindings, key.NewBinding(
			key.WithKeys(k),
			key.WithHelp(k, hints[k]),
		))
	}
	return append(bindings, key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	))
}

// RenderKeybindHelp produces the transient help bar shown after SPC.
// In a submenu (e.g. "SPC p") it lists the next-level keys.
func RenderKeybindHelp(h *KeyHandler, mode AppMode) string {
	if h == nil || h.Registry == nil {
		return ""
	}
	bindings := leaderHelpBindings(h, mode)
	if len(bindings) == 0 {
		return ""
	}

	hm := help.New()
	hm.Styles.ShortKey = lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHighlight)).
		Bold(true)
	hm.Styles.ShortDesc = Styles.Muted
	hm.Styles.ShortSeparator = Styles.Muted

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccent)).
		Padding(0, 1)

	prefix := h.LeaderSeq
	if seq := h.CurrentSeq(); seq != "" {
		prefix = seq
	}
	return box.Render(Styles.Muted.Render(prefix) + " " + hm.ShortHelpView(bindings))
}

// footerBindings are the always-available keys shown under each screen.
func footerBindings(mode AppMode) []key.Binding {
	b := []key.Binding{
		key.NewBinding(key.WithKeys(" "), key.WithHelp("SPC", "commands")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	}
	switch mode {
	case ModeDashboard:
		b = append(b, key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")))
	case ModeProjectDetail:
		b = append(b,
			key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy url")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		)
	case ModeSettings:
		b = append(b, key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")))
	case ModeDiscover:
		b = append(b,
			key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy url")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		)
	}
	return append(b, key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")))
}

// RenderFooter renders the per-mode key hints.
func RenderFooter(mode AppMode) string {
	hm := help.New()
	hm.Styles.ShortKey = Styles.Status
	hm.Styles.ShortDesc = Styles.Muted
	hm.Styles.ShortSeparator = Styles.Muted
	return hm.ShortHelpView(footerBindings(mode))
}
