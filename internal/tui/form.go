package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/snooze/internal/validation"
)

type fieldSpec struct {
	name        string
	placeholder string
	secret      bool
}

// form is a column of text inputs with one focused at a time.
type form struct {
	title  string
	specs  []fieldSpec
	inputs []textinput.Model
	focus  int
}

func newForm(title string, specs ...fieldSpec) *form {
	f := &form{title: title, specs: specs}
	for _, spec := range specs {
		ti := textinput.New()
		ti.Placeholder = spec.placeholder
		ti.Prompt = "› "
		ti.CharLimit = 2048
		ti.Cursor.SetMode(cursor.CursorStatic)
		if spec.secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		f.inputs = append(f.inputs, ti)
	}
	return f
}

// Focus focuses the current field and blurs the rest.
func (f *form) Focus() tea.Cmd {
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == f.focus {
			cmd = f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	return cmd
}

func (f *form) Blur() {
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
}

func (f *form) Focused() bool {
	for i := range f.inputs {
		if f.inputs[i].Focused() {
			return true
		}
	}
	return false
}

func (f *form) Next() tea.Cmd {
	f.focus = (f.focus + 1) % len(f.inputs)
	return f.Focus()
}

func (f *form) Prev() tea.Cmd {
	f.focus = (f.focus - 1 + len(f.inputs)) % len(f.inputs)
	return f.Focus()
}

// OnLast reports whether the focused field is the final one.
func (f *form) OnLast() bool {
	return f.focus == len(f.inputs)-1
}

// Update forwards msg to the focused input.
func (f *form) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *form) Value(name string) string {
	for i, spec := range f.specs {
		if spec.name == name {
			return strings.TrimSpace(f.inputs[i].Value())
		}
	}
	return ""
}

func (f *form) SetValue(name, value string) {
	for i, spec := range f.specs {
		if spec.name == name {
			f.inputs[i].SetValue(value)
			return
		}
	}
}

// Reset clears every field and moves focus back to the first.
func (f *form) Reset() {
	for i := range f.inputs {
		f.inputs[i].Reset()
	}
	f.focus = 0
}

// Validate checks that every field has a value.
func (f *form) Validate() error {
	fields := make([]validation.Field, len(f.specs))
	for i, spec := range f.specs {
		fields[i] = validation.Field{Name: spec.name, Value: f.Value(spec.name)}
	}
	return validation.Required(fields...)
}

func (f *form) SetWidth(w int) {
	for i := range f.inputs {
		f.inputs[i].Width = w
	}
}

func (f *form) View(active bool) string {
	titleStyle := HeaderStyle
	if !active {
		titleStyle = lipgloss.NewStyle().Foreground(MutedColor).Bold(true)
	}

	rows := []string{titleStyle.Render("› " + f.title), ""}
	for i, spec := range f.specs {
		rows = append(rows, renderMuted(spec.name))
		rows = append(rows, renderInputFrame(f.inputs[i].View(), active && i == f.focus, f.inputs[i].Width))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
