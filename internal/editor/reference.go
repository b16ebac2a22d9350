// Package editor is the non-UI controller of the contact update form:
// it resolves reference data into a three-state result and runs submissions
// through injected notification and navigation capabilities.
package editor

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/smileynet/crmedit/internal/contact"
)

// ErrMissingData indicates that a reference collection or the initial record
// is absent after loading.
var ErrMissingData = errors.New("something went wrong, there is no data for form")

// State is the loading state of the form's data.
type State int

const (
	StatePending State = iota // At least one fetch is in flight.
	StateReady                // All data present; the form is interactive.
	StateFailed               // Some data is missing; render the error placeholder.
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ReferenceSource fetches the reference collections.
type ReferenceSource interface {
	Accounts(ctx context.Context) ([]contact.Account, error)
	Users(ctx context.Context) ([]contact.User, error)
}

// RecordSource fetches the contact being edited.
type RecordSource interface {
	Contact(ctx context.Context, id string) (contact.UpdateInput, error)
}

// Fetch is the result of one fetch. Done is false while it is in flight.
type Fetch[T any] struct {
	Done  bool
	Value T
	Err   error
}

// Completed returns a finished fetch.
func Completed[T any](v T, err error) Fetch[T] {
	return Fetch[T]{Done: true, Value: v, Err: err}
}

// Reference is everything the form needs before it becomes interactive.
type Reference struct {
	State    State
	Accounts []contact.Account
	Users    []contact.User
	Initial  contact.UpdateInput
	// Err is set when State is StateFailed.
	Err error
}

// Resolve combines the three fetches into a Reference. Any pending fetch
// keeps the whole result pending; any failed or empty fetch fails it.
// A nil collection counts as missing; an empty one does not.
func Resolve(accounts Fetch[[]contact.Account], users Fetch[[]contact.User], initial Fetch[*contact.UpdateInput]) Reference {
	if !accounts.Done || !users.Done || !initial.Done {
		return Reference{State: StatePending}
	}
	var errs []error
	if accounts.Err != nil {
		errs = append(errs, fmt.Errorf("accounts: %w", accounts.Err))
	} else if accounts.Value == nil {
		errs = append(errs, errors.New("accounts: no data"))
	}
	if users.Err != nil {
		errs = append(errs, fmt.Errorf("users: %w", users.Err))
	} else if users.Value == nil {
		errs = append(errs, errors.New("users: no data"))
	}
	if initial.Err != nil {
		errs = append(errs, fmt.Errorf("contact: %w", initial.Err))
	} else if initial.Value == nil {
		errs = append(errs, errors.New("contact: no data"))
	}
	if len(errs) > 0 {
		return Reference{
			State: StateFailed,
			Err:   fmt.Errorf("%w: %w", ErrMissingData, errors.Join(errs...)),
		}
	}
	return Reference{
		State:    StateReady,
		Accounts: accounts.Value,
		Users:    users.Value,
		Initial:  *initial.Value,
	}
}

// Loader fetches reference data and the initial record together.
type Loader struct {
	refs    ReferenceSource
	records RecordSource
}

// NewLoader creates a Loader.
func NewLoader(refs ReferenceSource, records RecordSource) *Loader {
	return &Loader{refs: refs, records: records}
}

// FetchAccounts runs the account fetch.
func (l *Loader) FetchAccounts(ctx context.Context) Fetch[[]contact.Account] {
	return Completed(l.refs.Accounts(ctx))
}

// FetchUsers runs the user fetch.
func (l *Loader) FetchUsers(ctx context.Context) Fetch[[]contact.User] {
	return Completed(l.refs.Users(ctx))
}

// FetchRecord runs the initial record fetch.
func (l *Loader) FetchRecord(ctx context.Context, id string) Fetch[*contact.UpdateInput] {
	in, err := l.records.Contact(ctx, id)
	if err != nil {
		return Completed[*contact.UpdateInput](nil, err)
	}
	return Completed(&in, nil)
}

// Load runs the three fetches concurrently and resolves them. The result is
// never pending. No fetch is retried.
func (l *Loader) Load(ctx context.Context, contactID string) Reference {
	var (
		accounts Fetch[[]contact.Account]
		users    Fetch[[]contact.User]
		initial  Fetch[*contact.UpdateInput]
	)
	// Each fetch records its own error; the group is only used to wait.
	var g errgroup.Group
	g.Go(func() error { accounts = l.FetchAccounts(ctx); return nil })
	g.Go(func() error { users = l.FetchUsers(ctx); return nil })
	g.Go(func() error { initial = l.FetchRecord(ctx, contactID); return nil })
	_ = g.Wait()
	return Resolve(accounts, users, initial)
}
