package tui

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/smileynet/crmedit/internal/contact"
	"github.com/smileynet/crmedit/internal/crm"
	"github.com/smileynet/crmedit/internal/editor"
)

func TestNewModel_StartsPending(t *testing.T) {
	src := fullSource()
	m := NewModel("cnt-00042", editor.NewLoader(src, src), newHandler(&fakeUpdater{}))

	if m.State() != editor.StatePending {
		t.Errorf("State() = %v, want pending", m.State())
	}
	if m.Init() == nil {
		t.Fatal("Init() should return the fetch and spinner commands")
	}
}

func TestModel_View_LoadingShowsNoFields(t *testing.T) {
	// Given: only the accounts have arrived
	src := fullSource()
	loader := editor.NewLoader(src, src)
	m := NewModel("cnt-00042", loader, newHandler(&fakeUpdater{}))
	m, _ = step(m, AccountsLoadedMsg{Fetch: loader.FetchAccounts(context.Background())})

	// Then: still pending, loading indicator, no fields
	if m.State() != editor.StatePending {
		t.Fatalf("State() = %v, want pending", m.State())
	}
	view := m.View()
	if !containsPlainText(view, LoadingMessage) {
		t.Errorf("view missing loading indicator:\n%s", view)
	}
	if containsPlainText(view, "Last name") {
		t.Errorf("loading view should not render fields:\n%s", view)
	}
}

func TestModel_View_MissingDataShowsPlaceholder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fakeSource)
	}{
		{"no accounts", func(s *fakeSource) { s.accounts = nil }},
		{"no users", func(s *fakeSource) { s.users = nil }},
		{"no record", func(s *fakeSource) { s.record = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := fullSource()
			tt.mutate(src)
			loader := editor.NewLoader(src, src)
			m := NewModel("cnt-00042", loader, newHandler(&fakeUpdater{}))
			ctx := context.Background()

			m, _ = step(m, AccountsLoadedMsg{Fetch: loader.FetchAccounts(ctx)})
			m, _ = step(m, UsersLoadedMsg{Fetch: loader.FetchUsers(ctx)})
			m, _ = step(m, RecordLoadedMsg{Fetch: loader.FetchRecord(ctx, "cnt-00042")})

			if m.State() != editor.StateFailed {
				t.Fatalf("State() = %v, want failed", m.State())
			}
			if !errors.Is(m.Err(), editor.ErrMissingData) {
				t.Errorf("Err() = %v, want ErrMissingData", m.Err())
			}
			view := m.View()
			if !containsPlainText(view, NoDataMessage) {
				t.Errorf("view missing placeholder:\n%s", view)
			}
			if containsPlainText(view, "Last name") {
				t.Errorf("failed view should not render fields:\n%s", view)
			}
		})
	}
}

func TestModel_Ready_RendersFieldsAndOptions(t *testing.T) {
	m := readyModel(t, fullSource(), newHandler(&fakeUpdater{}))

	view := m.View()
	for _, want := range []string{"Last name", "Assigned user", "< Ada >", "< Customer >", "[x]", "Update contact"} {
		if !containsPlainText(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if m.focus != 0 {
		t.Errorf("focus = %d, want 0", m.focus)
	}
}

func TestModel_WaitKeysQuitWhileLoading(t *testing.T) {
	src := fullSource()
	m := NewModel("cnt-00042", editor.NewLoader(src, src), newHandler(&fakeUpdater{}))

	_, cmd := step(m, runes("q"))
	if cmd == nil {
		t.Fatal("q while loading should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModel_Submit_InvalidBlocksRequest(t *testing.T) {
	// Given: a record without a last name
	src := fullSource()
	src.record.LastName = ""
	u := &fakeUpdater{}
	m := readyModel(t, src, newHandler(u))

	// When: submit is pressed
	m, _ = step(m, keyPress(tea.KeyCtrlS))

	// Then: the field error is shown and nothing is sent
	if !m.FieldErrors().Has(contact.FieldLastName) {
		t.Errorf("FieldErrors() = %v, want last_name", m.FieldErrors())
	}
	if m.Busy() {
		t.Error("Busy() = true after blocked submission")
	}
	if u.count() != 0 {
		t.Errorf("update calls = %d, want 0", u.count())
	}
	if !containsPlainText(m.View(), "Last name is required") {
		t.Errorf("view missing field error:\n%s", m.View())
	}
	if m.inputs[m.focus].field.Name != contact.FieldLastName {
		t.Errorf("focus on %s, want last_name", m.inputs[m.focus].field.Name)
	}
}

func TestModel_Submit_InvalidDate(t *testing.T) {
	u := &fakeUpdater{}
	m := readyModel(t, fullSource(), newHandler(u))
	m = focusField(t, m, contact.FieldBirthday)

	m, _ = step(m, runes("not-a-date"))
	m, _ = step(m, keyPress(tea.KeyCtrlS))

	if got := m.FieldErrors()[contact.FieldBirthday]; got != "Birthday must be a date (YYYY-MM-DD)" {
		t.Errorf("birthday error = %q", got)
	}
	if u.count() != 0 {
		t.Errorf("update calls = %d, want 0", u.count())
	}
}

func TestModel_Submit_BusyDisablesInputs(t *testing.T) {
	u := &fakeUpdater{}
	m := readyModel(t, fullSource(), newHandler(u))

	m, cmd := step(m, keyPress(tea.KeyCtrlS))

	if !m.Busy() {
		t.Fatal("Busy() = false after valid submit")
	}
	if !containsPlainText(m.View(), "Saving data ...") {
		t.Errorf("busy view missing label:\n%s", m.View())
	}

	// Typing while busy changes nothing.
	before := m.inputs[0].text.Value()
	m, _ = step(m, runes("zzz"))
	if m.inputs[0].text.Value() != before {
		t.Errorf("input changed while busy: %q", m.inputs[0].text.Value())
	}
	// A second submit while busy is ignored.
	if _, again := step(m, keyPress(tea.KeyCtrlS)); again != nil {
		t.Error("submit while busy should return no command")
	}

	done := submitResult(t, cmd)
	if u.count() != 1 {
		t.Errorf("update calls = %d, want 1", u.count())
	}
	m, _ = step(m, done)
	if m.Busy() {
		t.Error("Busy() = true after SubmitDoneMsg")
	}
}

func TestModel_Submit_SuccessNavigates(t *testing.T) {
	u := &fakeUpdater{}
	m := readyModel(t, fullSource(), newHandler(u))

	// Edit the first name, then submit.
	m = focusField(t, m, contact.FieldFirstName)
	m, _ = step(m, runes("John"))
	m, cmd := step(m, keyPress(tea.KeyCtrlS))
	m, quit := step(m, submitResult(t, cmd))

	if got := u.last().FirstName; got == nil || *got != "John" {
		t.Errorf("sent first_name = %v, want John", got)
	}
	if m.Toast() == nil || m.Toast().Kind != editor.ToastSuccess {
		t.Errorf("Toast() = %+v, want success", m.Toast())
	}
	if m.Route() != editor.ContactsRoute {
		t.Errorf("Route() = %q, want %q", m.Route(), editor.ContactsRoute)
	}
	if quit == nil {
		t.Fatal("navigation should quit the program")
	}
	if _, ok := quit().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModel_Submit_FailureStaysUnderStayPolicy(t *testing.T) {
	u := &fakeUpdater{err: &crm.APIError{StatusCode: http.StatusConflict, Message: "Duplicate email"}}
	m := readyModel(t, fullSource(), newHandler(u, editor.WithFailurePolicy(editor.NavigateOnSuccess)))

	m, cmd := step(m, keyPress(tea.KeyCtrlS))
	m, _ = step(m, submitResult(t, cmd))

	if m.Route() != "" {
		t.Errorf("Route() = %q, want empty", m.Route())
	}
	if m.Toast() == nil || m.Toast().Message != "Duplicate email" {
		t.Errorf("Toast() = %+v", m.Toast())
	}
	if !containsPlainText(m.View(), "Duplicate email") {
		t.Errorf("view missing error toast:\n%s", m.View())
	}
}

func TestModel_ChoiceAndToggleKeys(t *testing.T) {
	u := &fakeUpdater{}
	m := readyModel(t, fullSource(), newHandler(u))

	m = focusField(t, m, contact.FieldAssignedTo)
	m, _ = step(m, keyPress(tea.KeyRight))
	m = focusField(t, m, contact.FieldStatus)
	m, _ = step(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m = focusField(t, m, contact.FieldType)
	m, _ = step(m, keyPress(tea.KeyLeft))

	m, cmd := step(m, keyPress(tea.KeyCtrlS))
	_, _ = step(m, submitResult(t, cmd))

	got := u.last()
	if got.AssignedTo != "usr-2" {
		t.Errorf("assigned_to = %q, want usr-2", got.AssignedTo)
	}
	if got.Status == nil || *got.Status {
		t.Errorf("status = %v, want false", got.Status)
	}
	if got.Type != contact.TypeVendor {
		t.Errorf("type = %q, want Vendor", got.Type)
	}
}

func TestModel_FocusWrapsToSubmitControl(t *testing.T) {
	m := readyModel(t, fullSource(), newHandler(&fakeUpdater{}))

	m, _ = step(m, keyPress(tea.KeyShiftTab))

	if !m.onSubmitControl() {
		t.Fatalf("focus = %d, want submit control %d", m.focus, len(m.inputs))
	}
	m, cmd := step(m, keyPress(tea.KeyEnter))
	if !m.Busy() || cmd == nil {
		t.Error("enter on the submit control should submit")
	}
}

func TestModel_WindowKeepsFocusVisible(t *testing.T) {
	m := readyModel(t, fullSource(), newHandler(&fakeUpdater{}))
	m, _ = step(m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m = focusField(t, m, contact.FieldSocialTiktok)
	view := m.View()

	if !containsPlainText(view, "TikTok") {
		t.Errorf("focused field not visible:\n%s", view)
	}
	if containsPlainText(view, "\n› ID") || containsPlainText(view, "  ID\n") {
		t.Errorf("first field should scroll out of view:\n%s", view)
	}
}

func TestModel_ArrowKeysStayInsideTextArea(t *testing.T) {
	// Given: two lines typed into the focused description
	m := readyModel(t, fullSource(), newHandler(&fakeUpdater{}))
	m = focusField(t, m, contact.FieldDescription)
	want := m.focus
	for _, msg := range []tea.Msg{runes("a"), keyPress(tea.KeyEnter), runes("b")} {
		m, _ = step(m, msg)
	}

	// When: the cursor moves up and text is typed
	m, _ = step(m, keyPress(tea.KeyUp))
	if m.focus != want {
		t.Fatalf("focus after up = %d, want %d", m.focus, want)
	}
	m, _ = step(m, runes("X"))

	// Then: the text lands on the first line
	lines := strings.Split(m.inputs[want].area.Value(), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "X") {
		t.Errorf("description = %q, want X on the first line", m.inputs[want].area.Value())
	}

	// And: down stays in the field while tab leaves it
	m, _ = step(m, keyPress(tea.KeyDown))
	if m.focus != want {
		t.Errorf("focus after down = %d, want %d", m.focus, want)
	}
	m, _ = step(m, keyPress(tea.KeyTab))
	if m.focus != want+1 {
		t.Errorf("focus after tab = %d, want %d", m.focus, want+1)
	}
}

func TestModel_WindowShowsOversizedFocusedField(t *testing.T) {
	// Given: a terminal too short for the description textarea
	m := readyModel(t, fullSource(), newHandler(&fakeUpdater{}))
	m, _ = step(m, tea.WindowSizeMsg{Width: 80, Height: 15})

	// When: the description is focused
	m = focusField(t, m, contact.FieldDescription)
	view := m.View()

	// Then: the description is rendered and the next field is not shown in its place
	if !containsPlainText(view, "› Description") {
		t.Errorf("focused Description not visible:\n%s", view)
	}
	if containsPlainText(view, "Assigned user") {
		t.Errorf("following field should not replace the focused one:\n%s", view)
	}
}

// TestModel_Teatest_SubmitAndNavigate runs the full program: load, submit, quit.
func TestModel_Teatest_SubmitAndNavigate(t *testing.T) {
	src := fullSource()
	u := &fakeUpdater{}
	m := NewModel("cnt-00042", editor.NewLoader(src, src), newHandler(u))

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 80))

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("Last name"))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlS})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	final := tm.FinalModel(t).(Model)
	if final.Route() != editor.ContactsRoute {
		t.Errorf("Route() = %q, want %q", final.Route(), editor.ContactsRoute)
	}
	if final.Toast() == nil || final.Toast().Message != editor.SuccessMessage {
		t.Errorf("Toast() = %+v", final.Toast())
	}
	if u.count() != 1 {
		t.Errorf("update calls = %d, want 1", u.count())
	}
}

// TestModel_Teatest_FailedLoad shows the placeholder and quits on q.
func TestModel_Teatest_FailedLoad(t *testing.T) {
	src := fullSource()
	src.users = nil
	m := NewModel("cnt-00042", editor.NewLoader(src, src), newHandler(&fakeUpdater{}))

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte(NoDataMessage))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	final := tm.FinalModel(t).(Model)
	if final.State() != editor.StateFailed {
		t.Errorf("State() = %v, want failed", final.State())
	}
}
