package dashboard

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type entryMode int

const (
	modeSignIn entryMode = iota
	modeSignUp
)

const (
	fieldName = iota
	fieldEmail
	fieldPassword
	fieldConfirm
)

// entryForm is the login/signup surface shown while unauthenticated. The
// confirm-password check happens in the session manager, not here; the form
// only collects input and relays the surfaced error.
type entryForm struct {
	mode   entryMode
	inputs [4]textinput.Model
	focus  int
	errMsg string
	busy   bool
}

func newEntryForm() entryForm {
	f := entryForm{}

	name := textinput.New()
	name.Placeholder = "Ada Lovelace"
	name.CharLimit = 120
	f.inputs[fieldName] = name

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 254
	f.inputs[fieldEmail] = email

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	f.inputs[fieldPassword] = password

	confirm := textinput.New()
	confirm.Placeholder = "repeat password"
	confirm.EchoMode = textinput.EchoPassword
	confirm.EchoCharacter = '•'
	f.inputs[fieldConfirm] = confirm

	f.setMode(modeSignIn)
	return f
}

// fields returns the input indexes active for the current mode, in tab
// order.
func (f *entryForm) fields() []int {
	if f.mode == modeSignUp {
		return []int{fieldName, fieldEmail, fieldPassword, fieldConfirm}
	}
	return []int{fieldEmail, fieldPassword}
}

func (f *entryForm) setMode(mode entryMode) {
	f.mode = mode
	f.focus = 0
	f.errMsg = ""
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
	f.inputs[f.fields()[0]].Focus()
}

func (f *entryForm) toggleMode() {
	if f.mode == modeSignIn {
		f.setMode(modeSignUp)
	} else {
		f.setMode(modeSignIn)
	}
}

func (f *entryForm) moveFocus(delta int) {
	fields := f.fields()
	f.inputs[fields[f.focus]].Blur()
	f.focus = (f.focus + delta + len(fields)) % len(fields)
	f.inputs[fields[f.focus]].Focus()
}

func (f *entryForm) reset() {
	for i := range f.inputs {
		f.inputs[i].SetValue("")
	}
	f.busy = false
	f.setMode(modeSignIn)
}

// update routes a key or other message to the form. submit becomes true when
// the user confirmed the form and the caller should run the auth operation.
func (f *entryForm) update(msg tea.Msg) (submit bool, cmd tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && !f.busy {
		switch key.String() {
		case "tab", "down":
			f.moveFocus(1)
			return false, nil
		case "shift+tab", "up":
			f.moveFocus(-1)
			return false, nil
		case "ctrl+t":
			f.toggleMode()
			return false, nil
		case "enter":
			fields := f.fields()
			if f.focus < len(fields)-1 {
				f.moveFocus(1)
				return false, nil
			}
			return true, nil
		}
	}

	idx := f.fields()[f.focus]
	f.inputs[idx], cmd = f.inputs[idx].Update(msg)
	return false, cmd
}

func (f *entryForm) view() string {
	var b strings.Builder

	if f.mode == modeSignUp {
		b.WriteString(titleStyle.Render("TaskMastery / Sign Up"))
	} else {
		b.WriteString(titleStyle.Render("TaskMastery / Sign In"))
	}
	b.WriteString("\n\n")

	labels := map[int]string{
		fieldName:     "Name",
		fieldEmail:    "Email",
		fieldPassword: "Password",
		fieldConfirm:  "Confirm password",
	}
	for _, idx := range f.fields() {
		b.WriteString(formLabelStyle.Render(labels[idx]))
		b.WriteString("\n")
		b.WriteString(f.inputs[idx].View())
		b.WriteString("\n\n")
	}

	if f.errMsg != "" {
		b.WriteString(errorStyle.Render(f.errMsg))
		b.WriteString("\n\n")
	}

	if f.busy {
		b.WriteString(statusStyle.Render("Signing in..."))
		b.WriteString("\n")
	}

	switchHint := "switch to sign up"
	if f.mode == modeSignUp {
		switchHint = "switch to sign in"
	}
	b.WriteString(helpStyle.Render("(tab: next field • enter: submit • ctrl+t: " + switchHint + " • esc: quit)"))
	b.WriteString("\n")

	return b.String()
}
