package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/crmedit/internal/contact"
	"github.com/smileynet/crmedit/internal/editor"
)

// Compile-time checks: the editor types satisfy the model's ports.
var (
	_ Fetcher   = (*editor.Loader)(nil)
	_ Submitter = (*editor.Handler)(nil)
)

// stripANSI removes ANSI escape sequences from a string.
func stripANSI(s string) string {
	var out []byte
	i := 0
	for i < len(s) {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] < 'A' || s[j] > 'Z') && (s[j] < 'a' || s[j] > 'z') {
				j++
			}
			if j < len(s) {
				j++
			}
			i = j
		} else {
			out = append(out, s[i])
			i++
		}
	}
	return string(out)
}

// containsPlainText checks if s contains sub after stripping ANSI escapes.
func containsPlainText(s, sub string) bool {
	return strings.Contains(stripANSI(s), sub)
}

// execBatch executes a tea.Cmd, handling both single commands and batch
// commands. Spinner ticks are skipped.
func execBatch(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			if c != nil {
				result := c()
				if _, isTick := result.(spinner.TickMsg); !isTick {
					msgs = append(msgs, result)
				}
			}
		}
		return msgs
	}
	return []tea.Msg{msg}
}

// submitResult runs cmd and returns the SubmitDoneMsg it produced.
func submitResult(t *testing.T, cmd tea.Cmd) SubmitDoneMsg {
	t.Helper()
	for _, msg := range execBatch(t, cmd) {
		if done, ok := msg.(SubmitDoneMsg); ok {
			return done
		}
	}
	t.Fatal("command did not produce a SubmitDoneMsg")
	return SubmitDoneMsg{}
}

func step(m Model, msg tea.Msg) (Model, tea.Cmd) {
	nm, cmd := m.Update(msg)
	return nm.(Model), cmd
}

func keyPress(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func ptr[T any](v T) *T { return &v }

// --- Fakes ---

type fakeSource struct {
	accounts []contact.Account
	users    []contact.User
	record   *contact.UpdateInput
}

func (s *fakeSource) Accounts(context.Context) ([]contact.Account, error) {
	return s.accounts, nil
}

func (s *fakeSource) Users(context.Context) ([]contact.User, error) {
	return s.users, nil
}

func (s *fakeSource) Contact(_ context.Context, id string) (contact.UpdateInput, error) {
	if s.record == nil {
		return contact.UpdateInput{}, editor.ErrMissingData
	}
	return *s.record, nil
}

func fullSource() *fakeSource {
	return &fakeSource{
		accounts: []contact.Account{{ID: "acc-1", Name: "Acme"}, {ID: "acc-2", Name: "Globex"}},
		users:    []contact.User{{ID: "usr-1", Name: "Ada"}, {ID: "usr-2", Name: "Grace"}},
		record: &contact.UpdateInput{
			ID:         "cnt-00042",
			LastName:   "Doe",
			Email:      "john@domain.com",
			Status:     ptr(true),
			Type:       contact.TypeCustomer,
			AssignedTo: "usr-1",
		},
	}
}

type fakeUpdater struct {
	mu    sync.Mutex
	err   error
	calls []contact.UpdateInput
}

func (u *fakeUpdater) UpdateContact(_ context.Context, in contact.UpdateInput) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, in)
	return u.err
}

func (u *fakeUpdater) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

func (u *fakeUpdater) last() contact.UpdateInput {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[len(u.calls)-1]
}

type nopRouter struct{}

func (nopRouter) Refresh() {}
func (nopRouter) Push(string) {}

// newHandler builds a real handler over u.
func newHandler(u *fakeUpdater, opts ...editor.HandlerOption) *editor.Handler {
	return editor.NewHandler(u, &ToastRecorder{}, nopRouter{}, opts...)
}

// readyModel returns a model with all three fetches delivered.
func readyModel(t *testing.T, src *fakeSource, sub Submitter) Model {
	t.Helper()
	loader := editor.NewLoader(src, src)
	m := NewModel("cnt-00042", loader, sub)
	ctx := context.Background()
	m, _ = step(m, AccountsLoadedMsg{Fetch: loader.FetchAccounts(ctx)})
	m, _ = step(m, UsersLoadedMsg{Fetch: loader.FetchUsers(ctx)})
	m, _ = step(m, RecordLoadedMsg{Fetch: loader.FetchRecord(ctx, "cnt-00042")})
	if m.State() != editor.StateReady {
		t.Fatalf("State() = %v, want ready (err %v)", m.State(), m.Err())
	}
	return m
}

// focusField moves focus to the named field.
func focusField(t *testing.T, m Model, name contact.FieldName) Model {
	t.Helper()
	for i, fi := range m.inputs {
		if fi.field.Name == name {
			m.setFocus(i)
			return m
		}
	}
	t.Fatalf("field %s not rendered", name)
	return m
}
