package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"wisp/internal/progress"
)

// maxActivityEvents caps the scrollback.
const maxActivityEvents = 200

const (
	defaultProgressWidth  = 70
	defaultProgressHeight = 16
)

// ProgressWindow shows the sync activity log: connection changes,
// refreshes and applied change events. It collects events while hidden
// and is shown as an overlay with SPC l.
type ProgressWindow struct {
	events   []progress.Event
	viewport viewport.Model
}

// Ensure ProgressWindow implements View.
var _ View = (*ProgressWindow)(nil)

// NewProgressWindow creates an empty activity window.
func NewProgressWindow() *ProgressWindow {
	vp := viewport.New(defaultProgressWidth, defaultProgressHeight)
	vp.Style = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorHighlight)).
		Padding(0, 1)
	p := &ProgressWindow{viewport: vp}
	p.refreshContent()
	return p
}

// Append records an event.
func (p *ProgressWindow) Append(ev progress.Event) {
	p.events = append(p.events, ev)
	if over := len(p.events) - maxActivityEvents; over > 0 {
		p.events = append([]progress.Event(nil), p.events[over:]...)
	}
	p.refreshContent()
}

// Events returns the recorded events, oldest first.
func (p *ProgressWindow) Events() []progress.Event {
	return p.events
}

// Init implements View.
func (p *ProgressWindow) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (p *ProgressWindow) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case progress.Event:
		p.Append(msg)
		return p, nil
	case tea.KeyMsg:
		if msg.String() == "esc" {
			return p, func() tea.Msg { return DismissModalMsg{} }
		}
	case tea.WindowSizeMsg:
		p.viewport.Width = max(msg.Width-8, 40)
		p.viewport.Height = max(msg.Height/2+4, 10)
		p.refreshContent()
		return p, nil
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

// View implements View.
func (p *ProgressWindow) View() string {
	header := Styles.Title.Render("Sync activity") + Styles.Hint.Render("  Esc: close")
	return header + "\n" + p.viewport.View()
}

func (p *ProgressWindow) refreshContent() {
	lines := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		line := fmt.Sprintf("[%s] %s %-10s %s", ev.Timestamp.Format("15:04:05"), statusIcon(ev.Status), ev.Kind, ev.Message)
		if ev.Err != nil {
			line += "  " + Styles.Error.Render(ev.Err.Error())
		}
		if o := ev.Metadata["outcome"]; o != "" {
			line += Styles.Muted.Render("  (" + o + ")")
		}
		lines = append(lines, line)
		if ev.Kind != progress.KindChange {
			lines = append(lines, metadataLines(ev.Metadata)...)
		}
	}
	content := strings.Join(lines, "\n")
	if content == "" {
		content = Styles.Empty.Render("No sync activity yet")
	}
	p.viewport.SetContent(content)
	p.viewport.GotoBottom()
}

func metadataLines(md map[string]string) []string {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("      %s: %s", k, md[k]))
	}
	return out
}

func statusIcon(s progress.Status) string {
	switch s {
	case progress.StatusRunning:
		return "●"
	case progress.StatusDone:
		return "✓"
	case progress.StatusError:
		return "✗"
	case progress.StatusAborted:
		return "○"
	default:
		return "•"
	}
}
