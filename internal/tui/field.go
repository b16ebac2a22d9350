package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/crmedit/internal/contact"
)

// noneOption is shown for an unset choice.
const noneOption = "(none)"

// fieldInput is the widget bound to one form field.
type fieldInput struct {
	field contact.Field

	text textinput.Model // KindText, KindDate
	area textarea.Model  // KindTextArea

	flag *bool // KindToggle

	options []contact.Option // KindChoice
	choice  int              // index into options, -1 when unset
}

func newFieldInput(f contact.Field, v contact.Value, options []contact.Option) fieldInput {
	fi := fieldInput{field: f, choice: -1}
	switch f.Kind {
	case contact.KindText, contact.KindDate:
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = f.Placeholder
		if f.Kind == contact.KindDate && ti.Placeholder == "" {
			ti.Placeholder = "YYYY-MM-DD"
		}
		ti.SetValue(v.String())
		fi.text = ti
	case contact.KindTextArea:
		ta := textarea.New()
		ta.Placeholder = f.Placeholder
		ta.ShowLineNumbers = false
		ta.SetHeight(3)
		ta.SetValue(v.String())
		ta.Blur()
		fi.area = ta
	case contact.KindToggle:
		if b, ok := v.Bool(); ok {
			fi.flag = &b
		}
	case contact.KindChoice:
		fi.options = options
		id := v.String()
		for i, o := range options {
			if o.ID == id {
				fi.choice = i
				break
			}
		}
		// Keep an unknown current value selectable rather than dropping it.
		if fi.choice < 0 && id != "" {
			fi.options = append(append([]contact.Option(nil), options...), contact.Option{ID: id, Name: id})
			fi.choice = len(fi.options) - 1
		}
	}
	return fi
}

// focus gives the widget keyboard focus.
func (fi *fieldInput) focus() tea.Cmd {
	switch fi.field.Kind {
	case contact.KindText, contact.KindDate:
		return fi.text.Focus()
	case contact.KindTextArea:
		return fi.area.Focus()
	}
	return nil
}

func (fi *fieldInput) blur() {
	switch fi.field.Kind {
	case contact.KindText, contact.KindDate:
		fi.text.Blur()
	case contact.KindTextArea:
		fi.area.Blur()
	}
}

// setWidth resizes text widgets.
func (fi *fieldInput) setWidth(w int) {
	if w <= 0 {
		return
	}
	fi.text.Width = w
	if fi.field.Kind == contact.KindTextArea {
		fi.area.SetWidth(w)
	}
}

// toggle flips a toggle; an unset toggle becomes true.
func (fi *fieldInput) toggle() {
	if fi.field.Kind != contact.KindToggle {
		return
	}
	b := fi.flag == nil || !*fi.flag
	fi.flag = &b
}

// cycle moves a choice by delta. Nullable choices include the unset
// position; required ones wrap over the options only.
func (fi *fieldInput) cycle(delta int) {
	switch fi.field.Kind {
	case contact.KindToggle:
		fi.toggle()
		return
	case contact.KindChoice:
	default:
		return
	}
	n := len(fi.options)
	if n == 0 {
		return
	}
	if contact.Nullable(fi.field.Name) {
		// Positions 0..n map to -1..n-1.
		pos := (fi.choice + 1 + delta) % (n + 1)
		if pos < 0 {
			pos += n + 1
		}
		fi.choice = pos - 1
		return
	}
	if fi.choice < 0 {
		if delta < 0 {
			fi.choice = n - 1
		} else {
			fi.choice = 0
		}
		return
	}
	fi.choice = ((fi.choice+delta)%n + n) % n
}

// update forwards a message to a text widget.
func (fi *fieldInput) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch fi.field.Kind {
	case contact.KindText, contact.KindDate:
		fi.text, cmd = fi.text.Update(msg)
	case contact.KindTextArea:
		fi.area, cmd = fi.area.Update(msg)
	}
	return cmd
}

// value converts the widget state into a field value.
func (fi *fieldInput) value() (contact.Value, error) {
	switch fi.field.Kind {
	case contact.KindText, contact.KindDate:
		return contact.ParseValue(fi.field.Name, fi.text.Value())
	case contact.KindTextArea:
		return contact.ParseValue(fi.field.Name, fi.area.Value())
	case contact.KindToggle:
		if fi.flag == nil {
			return contact.ParseValue(fi.field.Name, "")
		}
		return contact.Toggle(*fi.flag), nil
	case contact.KindChoice:
		if fi.choice < 0 || fi.choice >= len(fi.options) {
			return contact.NullChoice(), nil
		}
		return contact.Choice(fi.options[fi.choice].ID), nil
	}
	return contact.Value{}, fmt.Errorf("tui: field %s has unsupported kind %s", fi.field.Name, fi.field.Kind)
}

// view renders the widget body (without label).
func (fi *fieldInput) view(disabled bool) string {
	switch fi.field.Kind {
	case contact.KindText, contact.KindDate:
		if disabled {
			return dimStyle.Render(orPlaceholder(fi.text.Value(), fi.text.Placeholder))
		}
		return fi.text.View()
	case contact.KindTextArea:
		if disabled {
			return dimStyle.Render(orPlaceholder(fi.area.Value(), fi.area.Placeholder))
		}
		return fi.area.View()
	case contact.KindToggle:
		box := "[ ]"
		if fi.flag != nil && *fi.flag {
			box = "[x]"
		}
		if disabled {
			return dimStyle.Render(box)
		}
		return box
	case contact.KindChoice:
		name := noneOption
		if fi.choice >= 0 && fi.choice < len(fi.options) {
			name = fi.options[fi.choice].Name
		}
		s := "< " + name + " >"
		if disabled {
			return dimStyle.Render(s)
		}
		return s
	}
	return ""
}

func orPlaceholder(v, placeholder string) string {
	if strings.TrimSpace(v) == "" {
		return placeholder
	}
	return v
}
