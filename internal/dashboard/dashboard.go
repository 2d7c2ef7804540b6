package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/taskmastery/taskdash/internal/api"
	"github.com/taskmastery/taskdash/internal/session"
	"github.com/taskmastery/taskdash/internal/todolist"
	"github.com/taskmastery/taskdash/pkg/models"
)

type view int

const (
	viewInitializing view = iota
	viewEntry
	viewDashboard
)

type sessionResolvedMsg struct {
	state session.State
}

type authResultMsg struct {
	err error
}

type signedOutMsg struct{}

type listLoadedMsg struct {
	err error
}

type opDoneMsg struct {
	err error
}

// Model is the top-level TUI. It owns no business state: identity lives in
// the session manager and the todo replica in the list controller; the model
// just routes key events into operations and renders whatever those two
// report. The dashboard view is unreachable until the session manager says
// authenticated, which is the client-side counterpart of the route gate.
type Model struct {
	sessions *session.Manager
	list     *todolist.Controller

	view   view
	entry  entryForm
	notice string

	cursor    int
	adding    bool
	addInputs [2]textinput.Model
	addFocus  int

	width    int
	height   int
	quitting bool
}

// New builds the TUI over an unresolved session manager. The session check
// runs as the first command.
func New(sessions *session.Manager, list *todolist.Controller) *Model {
	title := textinput.New()
	title.Placeholder = "Task title"
	title.CharLimit = 255

	desc := textinput.New()
	desc.Placeholder = "Description (optional)"
	desc.CharLimit = 1000

	return &Model{
		sessions:  sessions,
		list:      list,
		view:      viewInitializing,
		entry:     newEntryForm(),
		addInputs: [2]textinput.Model{title, desc},
	}
}

// Run starts the program and blocks until the user quits.
func Run(sessions *session.Manager, list *todolist.Controller) error {
	p := tea.NewProgram(New(sessions, list), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return m.recoverCmd()
}

func (m *Model) recoverCmd() tea.Cmd {
	return func() tea.Msg {
		return sessionResolvedMsg{state: m.sessions.Recover(context.Background())}
	}
}

func (m *Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		return listLoadedMsg{err: m.list.Load(context.Background())}
	}
}

func (m *Model) signInCmd(email, password string) tea.Cmd {
	return func() tea.Msg {
		return authResultMsg{err: m.sessions.SignIn(context.Background(), email, password)}
	}
}

func (m *Model) signUpCmd(name, email, password, confirm string) tea.Cmd {
	return func() tea.Msg {
		return authResultMsg{err: m.sessions.SignUp(context.Background(), name, email, password, confirm)}
	}
}

func (m *Model) signOutCmd() tea.Cmd {
	return func() tea.Msg {
		// Local identity is cleared even when the server call fails, so
		// there is nothing useful to report back.
		m.sessions.SignOut(context.Background())
		return signedOutMsg{}
	}
}

func (m *Model) toggleCmd(id string) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: m.list.Toggle(context.Background(), id)}
	}
}

func (m *Model) removeCmd(id string) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: m.list.Remove(context.Background(), id)}
	}
}

func (m *Model) addCmd(title, description string) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: m.list.Add(context.Background(), title, description)}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case sessionResolvedMsg:
		if msg.state == session.StateAuthenticated {
			m.view = viewDashboard
			return m, m.loadCmd()
		}
		m.view = viewEntry
		return m, textinput.Blink

	case authResultMsg:
		m.entry.busy = false
		if msg.err != nil {
			m.entry.errMsg = msg.err.Error()
			return m, nil
		}
		m.entry.reset()
		m.notice = ""
		m.view = viewDashboard
		return m, m.loadCmd()

	case signedOutMsg:
		m.view = viewEntry
		m.cursor = 0
		m.adding = false
		return m, textinput.Blink

	case listLoadedMsg:
		if msg.err != nil && api.IsUnauthorized(msg.err) {
			return m, m.expireSession()
		}
		m.clampCursor()
		return m, nil

	case opDoneMsg:
		if msg.err != nil && api.IsUnauthorized(msg.err) {
			return m, m.expireSession()
		}
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case viewEntry:
			return m.updateEntry(msg)
		case viewDashboard:
			return m.updateDashboard(msg)
		default:
			if msg.String() == "ctrl+c" || msg.String() == "q" {
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}
	}

	if m.view == viewEntry {
		_, cmd := m.entry.update(msg)
		return m, cmd
	}
	return m, nil
}

// expireSession is the stale-session path: the server rejected the cookie,
// so the identity is dropped and the user lands back on the entry page.
func (m *Model) expireSession() tea.Cmd {
	m.sessions.Invalidate()
	m.list.ClearErr()
	m.notice = "Your session expired. Please sign in again."
	m.view = viewEntry
	m.cursor = 0
	m.adding = false
	return textinput.Blink
}

func (m *Model) updateEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	}

	submit, cmd := m.entry.update(msg)
	if !submit {
		return m, cmd
	}

	m.entry.busy = true
	m.entry.errMsg = ""
	email := m.entry.inputs[fieldEmail].Value()
	password := m.entry.inputs[fieldPassword].Value()
	if m.entry.mode == modeSignUp {
		name := m.entry.inputs[fieldName].Value()
		confirm := m.entry.inputs[fieldConfirm].Value()
		return m, m.signUpCmd(name, email, password, confirm)
	}
	return m, m.signInCmd(email, password)
}

func (m *Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.adding {
		return m.updateAddForm(msg)
	}

	filtered := m.list.Filtered()

	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(filtered)-1 {
			m.cursor++
		}

	case " ", "x", "enter":
		if m.cursor < len(filtered) {
			return m, m.toggleCmd(filtered[m.cursor].ID)
		}

	case "d":
		if m.cursor < len(filtered) {
			return m, m.removeCmd(filtered[m.cursor].ID)
		}

	case "a":
		m.adding = true
		m.addFocus = 0
		m.addInputs[0].SetValue("")
		m.addInputs[1].SetValue("")
		m.addInputs[0].Focus()
		m.addInputs[1].Blur()
		return m, textinput.Blink

	case "1":
		m.setFilter(models.FilterAll)
	case "2":
		m.setFilter(models.FilterPending)
	case "3":
		m.setFilter(models.FilterCompleted)

	case "r":
		return m, m.loadCmd()

	case "e":
		m.list.ClearErr()

	case "s":
		return m, m.signOutCmd()
	}

	return m, nil
}

func (m *Model) updateAddForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.adding = false
		return m, nil

	case "tab", "shift+tab", "up", "down":
		m.addInputs[m.addFocus].Blur()
		m.addFocus = (m.addFocus + 1) % 2
		m.addInputs[m.addFocus].Focus()
		return m, nil

	case "enter":
		if m.addFocus == 0 {
			m.addInputs[0].Blur()
			m.addFocus = 1
			m.addInputs[1].Focus()
			return m, nil
		}
		title := m.addInputs[0].Value()
		description := m.addInputs[1].Value()
		m.adding = false
		return m, m.addCmd(title, description)
	}

	var cmd tea.Cmd
	m.addInputs[m.addFocus], cmd = m.addInputs[m.addFocus].Update(msg)
	return m, cmd
}

func (m *Model) setFilter(mode models.FilterMode) {
	m.list.SetFilter(mode)
	m.clampCursor()
}

func (m *Model) clampCursor() {
	n := len(m.list.Filtered())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.view {
	case viewInitializing:
		return statusStyle.Render("Checking session...") + "\n"
	case viewEntry:
		return m.entryView()
	default:
		return m.dashboardView()
	}
}

func (m *Model) entryView() string {
	var b strings.Builder
	if m.notice != "" {
		b.WriteString(statusStyle.Render(m.notice))
		b.WriteString("\n\n")
	}
	b.WriteString(m.entry.view())
	return b.String()
}

func (m *Model) dashboardView() string {
	var b strings.Builder

	header := titleStyle.Render("TaskMastery Dashboard")
	if user := m.sessions.Current(); user != nil {
		header += "  " + userStyle.Render("signed in as "+user.Name)
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	total, pending, completed := m.list.Counts()
	b.WriteString(statusStyle.Render(fmt.Sprintf("all: %d • pending: %d • completed: %d", total, pending, completed)))
	b.WriteString("\n")
	b.WriteString(m.filterLine())
	b.WriteString("\n\n")

	if errMsg := m.list.Err(); errMsg != "" {
		b.WriteString(errorStyle.Render(errMsg))
		b.WriteString("\n\n")
	}

	switch m.list.State() {
	case todolist.ListLoading:
		b.WriteString(statusStyle.Render("Loading tasks..."))
		b.WriteString("\n")
	default:
		m.renderTodos(&b)
	}

	if m.adding {
		b.WriteString("\n")
		b.WriteString(formLabelStyle.Render("New task"))
		b.WriteString("\n")
		b.WriteString(m.addInputs[0].View())
		b.WriteString("\n")
		b.WriteString(m.addInputs[1].View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("(enter: save • esc: cancel)"))
		b.WriteString("\n")
	} else {
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("(a: add • space: toggle • d: delete • 1/2/3: filter • r: reload • s: sign out • q: quit)"))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *Model) filterLine() string {
	current := m.list.Filter()
	parts := make([]string, 0, 3)
	for _, mode := range []models.FilterMode{models.FilterAll, models.FilterPending, models.FilterCompleted} {
		label := string(mode)
		if mode == current {
			parts = append(parts, filterActiveStyle.Render(label))
		} else {
			parts = append(parts, filterStyle.Render(label))
		}
	}
	return strings.Join(parts, filterStyle.Render(" | "))
}

func (m *Model) renderTodos(b *strings.Builder) {
	filtered := m.list.Filtered()
	if len(filtered) == 0 {
		switch m.list.Filter() {
		case models.FilterPending:
			b.WriteString(statusStyle.Render("No pending tasks. Great job!"))
		case models.FilterCompleted:
			b.WriteString(statusStyle.Render("No completed tasks yet."))
		default:
			b.WriteString(statusStyle.Render("No tasks yet. Press 'a' to add your first task."))
		}
		b.WriteString("\n")
		return
	}

	for i, todo := range filtered {
		check := "[ ]"
		line := pendingStyle
		if todo.Completed {
			check = "[x]"
			line = completedStyle
		}

		prefix := "  "
		if i == m.cursor {
			prefix = selectedStyle.Render("> ")
		}
		b.WriteString(prefix + check + " " + line.Render(todo.Title))
		b.WriteString("\n")
		if i == m.cursor && todo.Description != "" {
			b.WriteString(descStyle.Render(todo.Description))
			b.WriteString("\n")
		}
	}
}
