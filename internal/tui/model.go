// Package tui renders the contact update form as a Bubble Tea program.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/crmedit/internal/contact"
	"github.com/smileynet/crmedit/internal/editor"
)

// NoDataMessage is rendered in place of the form when data is missing.
const NoDataMessage = "Something went wrong, there is no data for form"

// LoadingMessage is rendered while reference data loads.
const LoadingMessage = "Loading contact form..."

// maxInputWidth caps text widget width.
const maxInputWidth = 60

// Model is the Bubble Tea model for the contact form.
type Model struct {
	ctx       context.Context
	contactID string
	fetcher   Fetcher
	submitter Submitter
	layout    contact.Layout

	accounts editor.Fetch[[]contact.Account]
	users    editor.Fetch[[]contact.User]
	initial  editor.Fetch[*contact.UpdateInput]
	ref      editor.Reference

	inputs    []fieldInput
	focus     int // index into inputs; len(inputs) is the submit control
	fieldErrs contact.FieldErrors
	busy      bool
	toast     *editor.Toast
	route     string

	spinner  spinner.Model
	help     help.Model
	keys     formKeys
	waitKeys waitKeys
	width    int
	height   int
}

// ModelOption configures optional Model behavior.
type ModelOption func(*Model)

// WithContext sets the context passed to fetches and the submission.
func WithContext(ctx context.Context) ModelOption {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

// WithLayout sets the field order, labels and captions.
func WithLayout(l contact.Layout) ModelOption {
	return func(m *Model) {
		if len(l.Fields) > 0 {
			m.layout = l
		}
	}
}

// NewModel creates a form for the given contact. The form starts pending.
func NewModel(contactID string, f Fetcher, s Submitter, opts ...ModelOption) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:       context.Background(),
		contactID: contactID,
		fetcher:   f,
		submitter: s,
		layout:    contact.DefaultLayout(),
		ref:       editor.Reference{State: editor.StatePending},
		spinner:   sp,
		help:      help.New(),
		keys:      FormKeyMap(),
		waitKeys:  WaitKeyMap(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// State returns the data loading state.
func (m Model) State() editor.State { return m.ref.State }

// Err returns the load error when the state is failed.
func (m Model) Err() error { return m.ref.Err }

// Busy reports whether a submission is in flight.
func (m Model) Busy() bool { return m.busy }

// Toast returns the last notification, or nil.
func (m Model) Toast() *editor.Toast { return m.toast }

// Route returns the route navigated to, or "" when the form stayed open.
func (m Model) Route() string { return m.route }

// FieldErrors returns the current per-field messages.
func (m Model) FieldErrors() contact.FieldErrors { return m.fieldErrs }

// Init starts the spinner and the three fetches.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		fetchAccountsCmd(m.ctx, m.fetcher),
		fetchUsersCmd(m.ctx, m.fetcher),
		fetchRecordCmd(m.ctx, m.fetcher, m.contactID),
	)
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case AccountsLoadedMsg:
		m.accounts = msg.Fetch
		return m.resolve()

	case UsersLoadedMsg:
		m.users = msg.Fetch
		return m.resolve()

	case RecordLoadedMsg:
		m.initial = msg.Fetch
		return m.resolve()

	case SubmitDoneMsg:
		return m.handleSubmitDone(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		for i := range m.inputs {
			m.inputs[i].setWidth(m.inputWidth())
		}
		return m, nil

	case spinner.TickMsg:
		if m.ref.State != editor.StatePending && !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// resolve recomputes the reference state and builds the inputs once ready.
func (m Model) resolve() (tea.Model, tea.Cmd) {
	m.ref = editor.Resolve(m.accounts, m.users, m.initial)
	if m.ref.State != editor.StateReady || m.inputs != nil {
		return m, nil
	}
	m.buildInputs()
	return m, m.setFocus(0)
}

func (m *Model) buildInputs() {
	in := m.ref.Initial
	m.inputs = make([]fieldInput, 0, len(m.layout.Fields))
	for _, f := range m.layout.Fields {
		v, err := in.Get(f.Name)
		if err != nil {
			continue
		}
		var opts []contact.Option
		switch f.Name {
		case contact.FieldAssignedTo:
			opts = contact.UserOptions(m.ref.Users)
		case contact.FieldAccount:
			opts = contact.AccountOptions(m.ref.Accounts)
		case contact.FieldType:
			opts = contact.TypeOptions()
		}
		fi := newFieldInput(f, v, opts)
		fi.setWidth(m.inputWidth())
		m.inputs = append(m.inputs, fi)
	}
}

func (m Model) inputWidth() int {
	w := m.width - 4
	if w <= 0 || w > maxInputWidth {
		return maxInputWidth
	}
	return w
}

// setFocus moves focus to index i, wrapping over inputs plus the submit control.
func (m *Model) setFocus(i int) tea.Cmd {
	n := len(m.inputs) + 1
	i = ((i % n) + n) % n
	if m.focus < len(m.inputs) {
		m.inputs[m.focus].blur()
	}
	m.focus = i
	if i < len(m.inputs) {
		return m.inputs[i].focus()
	}
	return nil
}

func (m Model) onSubmitControl() bool { return m.focus == len(m.inputs) }

func (m Model) onTextArea() bool {
	return m.focus < len(m.inputs) && m.inputs[m.focus].field.Kind == contact.KindTextArea
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.ref.State != editor.StateReady || m.busy {
		// Inputs are disabled; only quitting is possible outside a submission.
		if !m.busy && key.Matches(msg, m.waitKeys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	// Arrow keys move between lines inside a textarea; tab still leaves it.
	if m.onTextArea() && (msg.Type == tea.KeyUp || msg.Type == tea.KeyDown) {
		fi := &m.inputs[m.focus]
		return m, fi.update(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	case key.Matches(msg, m.keys.Next):
		return m, m.setFocus(m.focus + 1)
	case key.Matches(msg, m.keys.Prev):
		return m, m.setFocus(m.focus - 1)
	}

	if m.onSubmitControl() {
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
		return m, nil
	}

	fi := &m.inputs[m.focus]
	switch fi.field.Kind {
	case contact.KindToggle, contact.KindChoice:
		switch {
		case key.Matches(msg, m.keys.Left):
			fi.cycle(-1)
		case key.Matches(msg, m.keys.Right), key.Matches(msg, m.keys.Toggle):
			fi.cycle(1)
		case msg.Type == tea.KeyEnter:
			return m, m.setFocus(m.focus + 1)
		default:
			return m, nil
		}
		delete(m.fieldErrs, fi.field.Name)
		return m, nil
	case contact.KindText, contact.KindDate:
		if msg.Type == tea.KeyEnter {
			return m, m.setFocus(m.focus + 1)
		}
	}
	delete(m.fieldErrs, fi.field.Name)
	return m, fi.update(msg)
}

// collect builds the update input from the initial record and the widgets.
func (m Model) collect() (contact.UpdateInput, contact.FieldErrors) {
	in := m.ref.Initial
	errs := contact.FieldErrors{}
	for i := range m.inputs {
		fi := &m.inputs[i]
		v, err := fi.value()
		if err != nil {
			errs[fi.field.Name] = parseMessage(fi.field)
			continue
		}
		if err := in.Set(fi.field.Name, v); err != nil {
			errs[fi.field.Name] = err.Error()
		}
	}
	return in, errs
}

func parseMessage(f contact.Field) string {
	if f.Kind == contact.KindDate {
		return fmt.Sprintf("%s must be a date (YYYY-MM-DD)", contact.Label(f.Name))
	}
	return fmt.Sprintf("%s is invalid", contact.Label(f.Name))
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	in, errs := m.collect()
	if len(errs) == 0 {
		errs = m.submitter.Validate(in)
	}
	if len(errs) > 0 {
		m.fieldErrs = errs
		return m, m.focusFirstError()
	}

	m.fieldErrs = nil
	m.toast = nil
	m.busy = true
	if m.focus < len(m.inputs) {
		m.inputs[m.focus].blur()
	}
	return m, tea.Batch(submitCmd(m.ctx, m.submitter, in), m.spinner.Tick)
}

func (m *Model) focusFirstError() tea.Cmd {
	for i, fi := range m.inputs {
		if m.fieldErrs.Has(fi.field.Name) {
			return m.setFocus(i)
		}
	}
	return nil
}

func (m Model) handleSubmitDone(msg SubmitDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	switch {
	case errors.Is(msg.Err, editor.ErrInvalid):
		m.fieldErrs = msg.Outcome.FieldErrors
		return m, m.focusFirstError()
	case errors.Is(msg.Err, editor.ErrBusy):
		return m, nil
	}

	m.toast = msg.Outcome.Toast
	if msg.Outcome.Navigated {
		m.route = editor.ContactsRoute
		return m, tea.Quit
	}
	return m, m.setFocus(m.focus)
}

// View renders the form for the current state.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString("\n  " + titleStyle.Render(m.layout.Title) + "\n\n")

	switch m.ref.State {
	case editor.StatePending:
		b.WriteString(fmt.Sprintf("  %s %s\n", m.spinner.View(), LoadingMessage))
		b.WriteString("\n  " + m.help.View(m.waitKeys) + "\n")
		return b.String()
	case editor.StateFailed:
		b.WriteString("  " + placeholderStyle.Render(NoDataMessage) + "\n")
		b.WriteString("\n  " + m.help.View(m.waitKeys) + "\n")
		return b.String()
	}

	if m.toast != nil {
		b.WriteString("  " + RenderToast(*m.toast) + "\n\n")
	}

	blocks := make([]string, 0, len(m.inputs))
	for i := range m.inputs {
		blocks = append(blocks, m.renderField(i))
	}
	b.WriteString(strings.Join(m.window(blocks), ""))

	button := ButtonStyle(m.onSubmitControl(), m.busy).Render(m.layout.Submit)
	if m.busy {
		button = ButtonStyle(false, true).Render(m.spinner.View() + " " + m.layout.Busy)
	}
	b.WriteString(indent(button) + "\n")

	if m.busy {
		b.WriteString("\n  " + m.help.View(m.waitKeys) + "\n")
	} else {
		b.WriteString("\n  " + m.help.View(m.keys) + "\n")
	}
	return b.String()
}

func (m Model) renderField(i int) string {
	fi := &m.inputs[i]
	focused := i == m.focus && !m.busy

	marker := "  "
	label := labelStyle.Render(fi.field.Label)
	if focused {
		marker = "› "
		label = focusedLabel.Render(fi.field.Label)
	}

	var b strings.Builder
	b.WriteString(marker + label + "\n")
	b.WriteString(indent(fi.view(m.busy)) + "\n")
	if msg, ok := m.fieldErrs[fi.field.Name]; ok {
		b.WriteString("  " + fieldErrorStyle.Render(msg) + "\n")
	}
	return b.String()
}

// window returns the blocks that fit the terminal height, keeping the
// focused field visible. With an unknown height every block is returned.
func (m Model) window(blocks []string) []string {
	budget := m.height - 12
	if m.height == 0 || budget <= 0 || len(blocks) == 0 {
		return blocks
	}
	focus := m.focus
	if focus >= len(blocks) {
		focus = len(blocks) - 1
	}
	// The focused block is always shown, even when it alone exceeds the budget.
	start, end := focus, focus+1
	used := lineCount(blocks[focus])
	for start > 0 && used+lineCount(blocks[start-1]) <= budget {
		start--
		used += lineCount(blocks[start])
	}
	for end < len(blocks) && used+lineCount(blocks[end]) <= budget {
		used += lineCount(blocks[end])
		end++
	}
	return blocks[start:end]
}

func lineCount(s string) int { return strings.Count(s, "\n") }

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
