package internal

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type formKind int

const (
	formTask formKind = iota
	formSettings
	formSignIn
	formSignUp
)

type formField struct {
	label       string
	value       string
	placeholder string
	digits      bool
	secret      bool
	limit       int
}

// Form is a small stack of labelled text inputs. Enter advances to the
// next field and submits on the last one.
type Form struct {
	kind   formKind
	title  string
	labels []string
	digits []bool
	inputs []textinput.Model
	focus  int
}

func newForm(kind formKind, title string, fields ...formField) *Form {
	f := &Form{kind: kind, title: title}
	for _, fd := range fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = fd.placeholder
		ti.CharLimit = fd.limit
		if ti.CharLimit == 0 {
			ti.CharLimit = 120
		}
		if fd.secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		ti.SetValue(fd.value)
		f.labels = append(f.labels, fd.label)
		f.digits = append(f.digits, fd.digits)
		f.inputs = append(f.inputs, ti)
	}
	f.setFocus(0)
	return f
}

func (f *Form) setFocus(i int) {
	n := len(f.inputs)
	f.focus = ((i % n) + n) % n
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

func (f *Form) Value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

func (f *Form) Int(i int) (int, error) {
	v, err := strconv.Atoi(f.Value(i))
	if err != nil {
		return 0, fmt.Errorf("%s: not a number", strings.TrimSpace(f.labels[i]))
	}
	return v, nil
}

func (f *Form) Bool(i int) bool {
	switch strings.ToLower(f.Value(i)) {
	case "y", "yes", "true", "on", "1":
		return true
	}
	return false
}

// Update routes a key to the form. submit is true when Enter was pressed on
// the last field; cancel is true on Esc.
func (f *Form) Update(msg tea.KeyMsg) (submit, cancel bool, cmd tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return false, true, nil
	case "tab", "down":
		f.setFocus(f.focus + 1)
		return false, false, nil
	case "shift+tab", "up":
		f.setFocus(f.focus - 1)
		return false, false, nil
	case "enter":
		if f.focus < len(f.inputs)-1 {
			f.setFocus(f.focus + 1)
			return false, false, nil
		}
		return true, false, nil
	}

	if f.digits[f.focus] && msg.Type == tea.KeyRunes {
		for _, r := range msg.Runes {
			if !unicode.IsDigit(r) {
				return false, false, nil
			}
		}
	}
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return false, false, cmd
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}
