// Package tui is the terminal chat view: mission header, scrollback
// viewport, input line, and the Mugu-Shield warning overlay.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/manunited/headcoach/internal/client"
	"github.com/manunited/headcoach/internal/core"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	modeStyle      = lipgloss.NewStyle().Faint(true)
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	coachStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	statusStyle    = lipgloss.NewStyle().Faint(true).Italic(true)
	warnBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("208")).Padding(0, 1)
	warnTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	footerStyle    = lipgloss.NewStyle().Faint(true)
)

type replyMsg struct {
	err error
}

type verdictMsg struct {
	verdict core.MuguVerdict
	draft   string
}

type Model struct {
	session *client.Session

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	waiting  bool
	checking bool
	warning  *core.MuguVerdict
	draft    string
	errText  string

	width  int
	height int
	ready  bool
}

func NewModel(session *client.Session) Model {
	ti := textinput.New()
	ti.Placeholder = "Type her message or describe the situation..."
	ti.Focus()
	ti.CharLimit = 2000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		session: session,
		input:   ti,
		spin:    sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

func (m Model) sendCmd(content string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.session.Send(context.Background(), content)
		return replyMsg{err: err}
	}
}

func (m Model) checkCmd(draft string) tea.Cmd {
	return func() tea.Msg {
		verdict := m.session.CheckDraft(context.Background(), draft)
		return verdictMsg{verdict: verdict, draft: draft}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		contentHeight := msg.Height - 6
		if contentHeight < 3 {
			contentHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, contentHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = contentHeight
		}
		m.input.Width = msg.Width - 4
		m.refreshTranscript()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			if m.warning != nil {
				// Ignore the warning and send the original draft anyway.
				draft := m.draft
				m.warning = nil
				m.draft = ""
				m.waiting = true
				m.input.SetValue("")
				return m, m.sendCmd(draft)
			}
			return m, tea.Quit

		case "ctrl+u":
			if m.warning != nil && m.warning.Correction != "" {
				// Load the striker alternative for review; never auto-send.
				m.input.SetValue(m.warning.Correction)
				m.warning = nil
				m.draft = ""
				return m, nil
			}

		case "enter":
			if m.warning != nil || m.waiting || m.checking {
				return m, nil
			}
			draft := strings.TrimSpace(m.input.Value())
			if draft == "" {
				return m, nil
			}
			m.errText = ""
			m.input.SetValue("")
			if m.session.ShouldCheck(draft) {
				m.checking = true
				m.draft = draft
				return m, m.checkCmd(draft)
			}
			m.waiting = true
			return m, m.sendCmd(draft)
		}

	case verdictMsg:
		m.checking = false
		if msg.verdict.IsMugu {
			v := msg.verdict
			m.warning = &v
			m.draft = msg.draft
			return m, nil
		}
		m.waiting = true
		return m, m.sendCmd(msg.draft)

	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.errText = msg.err.Error()
		}
		m.refreshTranscript()
		m.viewport.GotoBottom()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
	}

	// The optimistic user turn appears as soon as Send appends it, so keep
	// the transcript fresh while a reply is pending too.
	if m.waiting {
		m.refreshTranscript()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, turn := range m.session.Turns() {
		label := userStyle.Render("RECRUIT")
		if turn.Role == "assistant" {
			label = coachStyle.Render("HEAD COACH")
		}
		b.WriteString(label + "\n" + turn.Content + "\n\n")
	}
	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(b.String()))
	m.viewport.GotoBottom()
}

func (m Model) headerView() string {
	mission := m.session.ActiveMission()
	if mission == nil {
		return headerStyle.Render("HEADQUARTERS") + " " + modeStyle.Render("GENERAL STRATEGY · MODE: HOME")
	}
	return headerStyle.Render(mission.TargetName) + " " +
		modeStyle.Render(fmt.Sprintf("%s STAGE · MODE: %s",
			strings.ToUpper(string(mission.Stage)), strings.ToUpper(string(mission.Mode))))
}

func (m Model) warningView() string {
	if m.warning == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(warnTitleStyle.Render("MUGU MOVE DETECTED") + "\n")
	if m.warning.Explanation != "" {
		b.WriteString(m.warning.Explanation + "\n")
	}
	if m.warning.Correction != "" {
		b.WriteString("Striker move: " + m.warning.Correction + "\n")
		b.WriteString(footerStyle.Render("esc: send anyway · ctrl+u: use striker move"))
	} else {
		b.WriteString(footerStyle.Render("esc: send anyway"))
	}
	return warnBoxStyle.Render(b.String())
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing command center..."
	}

	var status string
	switch {
	case m.checking:
		status = statusStyle.Render(m.spin.View() + " Scanning for weakness...")
	case m.waiting:
		status = statusStyle.Render(m.spin.View() + " Head Coach is analyzing...")
	case m.errText != "":
		status = statusStyle.Render("Error: " + m.errText)
	default:
		status = footerStyle.Render("Mugu-Shield active · enter: send · ctrl+c: quit")
	}

	sections := []string{
		m.headerView(),
		m.viewport.View(),
	}
	if w := m.warningView(); w != "" {
		sections = append(sections, w)
	}
	sections = append(sections, m.input.View(), status)
	return strings.Join(sections, "\n")
}

// Run starts the chat view over an authenticated session.
func Run(session *client.Session) error {
	p := tea.NewProgram(NewModel(session), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
