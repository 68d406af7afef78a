package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"wisp/internal/api"
	"wisp/internal/project"
)

// WizardStep is a page of the create wizard.
type WizardStep int

const (
	StepDetails WizardStep = iota
	StepPrompt
	StepQuestions
)

const (
	focusName        = "name"
	focusDescription = "description"
	focusIcon        = "icon"
)

// CreateProjectModal is the two-step create wizard: details, then prompt,
// with an optional round of clarifying questions from /api/refine.
type CreateProjectModal struct {
	Step     WizardStep
	Private  bool
	Refining bool
	Err      string
	Note     string

	name        textinput.Model
	description textinput.Model
	icon        textinput.Model
	focus       *FocusManager
	prompt      textarea.Model

	questions []api.Question
	answers   []textinput.Model
	qFocus    int
}

// Ensure CreateProjectModal implements View.
var _ View = (*CreateProjectModal)(nil)

// NewCreateProjectModal creates the wizard. private seeds the visibility
// toggle from the user's preferences.
func NewCreateProjectModal(private bool) *CreateProjectModal {
	newInput := func(placeholder string, limit int) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.CharLimit = limit
		ti.Width = 48
		return ti
	}
	m := &CreateProjectModal{
		Private:     private,
		name:        newInput("Habit tracker", project.MaxNameLength),
		description: newInput("What does it do?", project.MaxDescriptionLength),
		icon:        newInput("optional path to an icon image", 0),
		focus:       NewFocusManager(focusName, focusDescription, focusIcon),
	}
	m.name.Focus()

	ta := textarea.New()
	ta.Placeholder = "Describe the app you want in as much detail as you like."
	ta.CharLimit = project.MaxPromptLength
	ta.ShowLineNumbers = false
	ta.SetWidth(56)
	ta.SetHeight(8)
	m.prompt = ta
	return m
}

// Draft returns the wizard's current values.
func (m *CreateProjectModal) Draft() project.Draft {
	return project.Draft{
		Name:        m.name.Value(),
		Description: m.description.Value(),
		Prompt:      m.prompt.Value(),
		Private:     m.Private,
		IconPath:    m.icon.Value(),
	}.Normalize()
}

// CanContinue reports whether the details step is complete.
func (m *CreateProjectModal) CanContinue() bool {
	return m.Draft().DetailsComplete()
}

// Init implements View.
func (m *CreateProjectModal) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements View.
func (m *CreateProjectModal) Update(msg tea.Msg) (View, tea.Cmd) {
	if res, ok := msg.(RefineResultMsg); ok {
		return m, m.handleRefineResult(res)
	}
	key, isKey := msg.(tea.KeyMsg)
	if isKey && key.String() == "esc" {
		return m, m.back()
	}
	switch m.Step {
	case StepDetails:
		return m, m.updateDetails(msg, key, isKey)
	case StepPrompt:
		return m, m.updatePrompt(msg, key, isKey)
	case StepQuestions:
		return m, m.updateQuestions(msg, key, isKey)
	}
	return m, nil
}

func (m *CreateProjectModal) back() tea.Cmd {
	m.Err = ""
	switch m.Step {
	case StepQuestions:
		m.Step = StepPrompt
		m.Refining = false
		return m.prompt.Focus()
	case StepPrompt:
		m.Step = StepDetails
		m.prompt.Blur()
		return m.focusInput(m.focus.Current)
	default:
		return func() tea.Msg { return DismissModalMsg{} }
	}
}

func (m *CreateProjectModal) updateDetails(msg tea.Msg, key tea.KeyMsg, isKey bool) tea.Cmd {
	if isKey {
		switch key.String() {
		case "tab", "down":
			return m.focusInput(m.focus.Next())
		case "shift+tab", "up":
			return m.focusInput(m.focus.Prev())
		case "enter":
			if m.CanContinue() {
				return m.toPrompt()
			}
			if m.focus.Is(focusName) {
				return m.focusInput(m.focus.Next())
			}
			m.Err = "Name and description are required"
			return nil
		}
	}
	var cmd tea.Cmd
	switch m.focus.Current {
	case focusName:
		m.name, cmd = m.name.Update(msg)
	case focusDescription:
		m.description, cmd = m.description.Update(msg)
	case focusIcon:
		m.icon, cmd = m.icon.Update(msg)
	}
	return cmd
}

func (m *CreateProjectModal) toPrompt() tea.Cmd {
	m.Err = ""
	m.Step = StepPrompt
	m.name.Blur()
	m.description.Blur()
	m.icon.Blur()
	return m.prompt.Focus()
}

func (m *CreateProjectModal) focusInput(id string) tea.Cmd {
	m.name.Blur()
	m.description.Blur()
	m.icon.Blur()
	switch id {
	case focusName:
		return m.name.Focus()
	case focusDescription:
		return m.description.Focus()
	case focusIcon:
		return m.icon.Focus()
	}
	return nil
}

func (m *CreateProjectModal) updatePrompt(msg tea.Msg, key tea.KeyMsg, isKey bool) tea.Cmd {
	if isKey {
		switch key.String() {
		case "ctrl+t":
			m.Private = !m.Private
			return nil
		case "ctrl+r":
			if m.Refining {
				return nil
			}
			d := m.Draft()
			if d.Prompt == "" {
				m.Err = "Write a prompt first"
				return nil
			}
			m.Err = ""
			m.Refining = true
			req := api.RefineRequest{Name: d.Name, Description: d.Description, Prompt: d.Prompt}
			return func() tea.Msg { return RefineRequestedMsg{Request: req} }
		case "ctrl+s":
			return m.submit()
		}
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return cmd
}

func (m *CreateProjectModal) submit() tea.Cmd {
	d := m.Draft()
	if err := d.Validate(); err != nil {
		m.Err = err.Error()
		return nil
	}
	m.Err = ""
	return func() tea.Msg { return CreateProjectMsg{Draft: d} }
}

func (m *CreateProjectModal) updateQuestions(msg tea.Msg, key tea.KeyMsg, isKey bool) tea.Cmd {
	if len(m.answers) == 0 {
		return nil
	}
	if isKey {
		switch key.String() {
		case "tab", "down":
			return m.focusAnswer((m.qFocus + 1) % len(m.answers))
		case "shift+tab", "up":
			return m.focusAnswer((m.qFocus - 1 + len(m.answers)) % len(m.answers))
		case "enter":
			if m.qFocus < len(m.answers)-1 {
				return m.focusAnswer(m.qFocus + 1)
			}
			return m.sendAnswers()
		case "ctrl+s":
			return m.sendAnswers()
		}
	}
	var cmd tea.Cmd
	m.answers[m.qFocus], cmd = m.answers[m.qFocus].Update(msg)
	return cmd
}

func (m *CreateProjectModal) focusAnswer(i int) tea.Cmd {
	for j := range m.answers {
		m.answers[j].Blur()
	}
	m.qFocus = i
	return m.answers[i].Focus()
}

func (m *CreateProjectModal) sendAnswers() tea.Cmd {
	d := m.Draft()
	req := api.RefineRequest{Name: d.Name, Description: d.Description, Prompt: d.Prompt}
	for i, q := range m.questions {
		if a := strings.TrimSpace(m.answers[i].Value()); a != "" {
			req.Answers = append(req.Answers, api.Answer{QuestionID: q.ID, Answer: a})
		}
	}
	m.Refining = true
	m.Err = ""
	return func() tea.Msg { return RefineRequestedMsg{Request: req} }
}

func (m *CreateProjectModal) handleRefineResult(res RefineResultMsg) tea.Cmd {
	m.Refining = false
	if res.Err != nil {
		m.Err = "Refine failed: " + res.Err.Error()
		return nil
	}
	if len(res.Response.Questions) > 0 {
		m.questions = res.Response.Questions
		m.answers = make([]textinput.Model, len(m.questions))
		for i, q := range m.questions {
			ti := textinput.New()
			ti.Width = 48
			if len(q.Options) > 0 {
				ti.Placeholder = strings.Join(q.Options, " / ")
			}
			m.answers[i] = ti
		}
		m.Step = StepQuestions
		m.prompt.Blur()
		return m.focusAnswer(0)
	}
	if res.Response.Prompt != "" {
		m.prompt.SetValue(res.Response.Prompt)
		m.Note = "Prompt refined"
	}
	m.Step = StepPrompt
	return m.prompt.Focus()
}

// View implements View.
func (m *CreateProjectModal) View() string {
	var b strings.Builder
	b.WriteString(Styles.Title.Render("New app") + Styles.Muted.Render(fmt.Sprintf("  step %d of 2", min(int(m.Step), 1)+1)) + "\n\n")

	switch m.Step {
	case StepDetails:
		b.WriteString(Styles.Label.Render("Name") + "\n" + m.name.View() + "\n\n")
		b.WriteString(Styles.Label.Render("Description") + "\n" + m.description.View() + "\n\n")
		b.WriteString(Styles.Label.Render("Icon") + "\n" + m.icon.View() + "\n\n")
		cont := "[ Continue ]"
		if m.CanContinue() {
			b.WriteString(Styles.Selected.Render(cont))
		} else {
			b.WriteString(Styles.Disabled.Render(cont))
		}
		b.WriteString("\n\n" + Styles.Hint.Render("Tab: next field  Enter: continue  Esc: cancel"))
	case StepPrompt:
		b.WriteString(Styles.Label.Render("Prompt") + "\n" + m.prompt.View() + "\n\n")
		visibility := "Public"
		if m.Private {
			visibility = "Private"
		}
		b.WriteString(Styles.Muted.Render("Visibility: ") + Styles.Normal.Render(visibility) + "\n")
		if m.Refining {
			b.WriteString(Styles.Status.Render("Asking for clarifying questions…") + "\n")
		} else if m.Note != "" {
			b.WriteString(Styles.Status.Render(m.Note) + "\n")
		}
		b.WriteString("\n" + Styles.Hint.Render("Ctrl+S: create  Ctrl+R: refine  Ctrl+T: visibility  Esc: back"))
	case StepQuestions:
		b.WriteString(Styles.Section.Render("A few questions") + "\n\n")
		for i, q := range m.questions {
			b.WriteString(Styles.Label.Render(q.Question) + "\n" + m.answers[i].View() + "\n\n")
		}
		if m.Refining {
			b.WriteString(Styles.Status.Render("Refining prompt…") + "\n")
		}
		b.WriteString(Styles.Hint.Render("Enter: next  Ctrl+S: send answers  Esc: back"))
	}
	if m.Err != "" {
		b.WriteString("\n" + Styles.Error.Render(m.Err))
	}
	return Styles.Box.Render(b.String())
}
