package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/crmedit/internal/contact"
	"github.com/smileynet/crmedit/internal/editor"
)

// AccountsLoadedMsg carries the finished account fetch.
type AccountsLoadedMsg struct {
	Fetch editor.Fetch[[]contact.Account]
}

// UsersLoadedMsg carries the finished user fetch.
type UsersLoadedMsg struct {
	Fetch editor.Fetch[[]contact.User]
}

// RecordLoadedMsg carries the finished initial record fetch.
type RecordLoadedMsg struct {
	Fetch editor.Fetch[*contact.UpdateInput]
}

// SubmitDoneMsg carries the result of a submission.
type SubmitDoneMsg struct {
	Outcome editor.Outcome
	Err     error
}

// Fetcher runs the three reference fetches. Implemented by *editor.Loader.
type Fetcher interface {
	FetchAccounts(ctx context.Context) editor.Fetch[[]contact.Account]
	FetchUsers(ctx context.Context) editor.Fetch[[]contact.User]
	FetchRecord(ctx context.Context, id string) editor.Fetch[*contact.UpdateInput]
}

// Submitter validates and sends an update. Implemented by *editor.Handler.
type Submitter interface {
	Validate(in contact.UpdateInput) contact.FieldErrors
	Submit(ctx context.Context, in contact.UpdateInput) (editor.Outcome, error)
}

func fetchAccountsCmd(ctx context.Context, f Fetcher) tea.Cmd {
	return func() tea.Msg {
		return AccountsLoadedMsg{Fetch: f.FetchAccounts(ctx)}
	}
}

func fetchUsersCmd(ctx context.Context, f Fetcher) tea.Cmd {
	return func() tea.Msg {
		return UsersLoadedMsg{Fetch: f.FetchUsers(ctx)}
	}
}

func fetchRecordCmd(ctx context.Context, f Fetcher, id string) tea.Cmd {
	return func() tea.Msg {
		return RecordLoadedMsg{Fetch: f.FetchRecord(ctx, id)}
	}
}

func submitCmd(ctx context.Context, s Submitter, in contact.UpdateInput) tea.Cmd {
	return func() tea.Msg {
		out, err := s.Submit(ctx, in)
		return SubmitDoneMsg{Outcome: out, Err: err}
	}
}
