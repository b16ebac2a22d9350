package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/smileynet/crmedit/internal/contact"
	"github.com/smileynet/crmedit/internal/crm"
)

// ContactsRoute is where the form navigates after a submission.
const ContactsRoute = "/crm/contacts"

// Toast text shown after a submission.
const (
	SuccessTitle   = "Success"
	SuccessMessage = "Contact updated successfully"
	ErrorTitle     = "Error"
)

var (
	// ErrInvalid indicates the input failed schema validation.
	ErrInvalid = errors.New("editor: invalid contact input")
	// ErrBusy indicates a submission is already in flight.
	ErrBusy = errors.New("editor: submission in progress")
)

// ToastKind is the severity of a notification.
type ToastKind int

const (
	ToastSuccess ToastKind = iota
	ToastError
)

func (k ToastKind) String() string {
	if k == ToastError {
		return "error"
	}
	return "success"
}

// Toast is a transient notification.
type Toast struct {
	Kind    ToastKind
	Title   string
	Message string
}

// Notifier displays toasts.
type Notifier interface {
	Notify(Toast)
}

// Router refreshes the current view's data and navigates.
type Router interface {
	Refresh()
	Push(route string)
}

// Updater sends a contact update.
type Updater interface {
	UpdateContact(ctx context.Context, in contact.UpdateInput) error
}

// FailurePolicy decides whether a failed submission navigates away.
type FailurePolicy int

const (
	// NavigateAlways pushes the contacts route after every submission.
	NavigateAlways FailurePolicy = iota
	// NavigateOnSuccess keeps the form open after a failed submission.
	NavigateOnSuccess
)

// ParseFailurePolicy maps a config value ("navigate", "stay") to a policy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "navigate":
		return NavigateAlways, nil
	case "stay":
		return NavigateOnSuccess, nil
	default:
		return NavigateAlways, fmt.Errorf("editor: unknown failure policy %q (want navigate or stay)", s)
	}
}

func (p FailurePolicy) String() string {
	if p == NavigateOnSuccess {
		return "stay"
	}
	return "navigate"
}

// SubmitError wraps a failed update.
type SubmitError struct {
	ContactID string
	Err       error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("editor: updating contact %s: %v", e.ContactID, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// Outcome reports what a submission did.
type Outcome struct {
	// FieldErrors is set when validation blocked the submission.
	FieldErrors contact.FieldErrors
	Updated     bool
	Toast       *Toast
	Navigated   bool
}

// Handler runs form submissions.
type Handler struct {
	updater  Updater
	notifier Notifier
	router   Router
	schema   *contact.Schema
	policy   FailurePolicy
	log      *logrus.Logger

	busy atomic.Bool
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithFailurePolicy sets the navigation policy for failed submissions.
func WithFailurePolicy(p FailurePolicy) HandlerOption {
	return func(h *Handler) { h.policy = p }
}

// WithSchema overrides the default validation schema.
func WithSchema(s *contact.Schema) HandlerOption {
	return func(h *Handler) {
		if s != nil {
			h.schema = s
		}
	}
}

// WithLogger sets the submission logger.
func WithLogger(l *logrus.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// NewHandler creates a Handler. The notifier and router must be non-nil.
func NewHandler(u Updater, n Notifier, r Router, opts ...HandlerOption) *Handler {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	h := &Handler{
		updater:  u,
		notifier: n,
		router:   r,
		schema:   contact.NewSchema(),
		log:      discard,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Busy reports whether a submission is in flight.
func (h *Handler) Busy() bool { return h.busy.Load() }

// Policy returns the configured failure policy.
func (h *Handler) Policy() FailurePolicy { return h.policy }

// Validate runs the schema without submitting.
func (h *Handler) Validate(in contact.UpdateInput) contact.FieldErrors {
	return h.schema.Validate(in)
}

// Submit validates in and, when valid, sends it once. A request failure is
// reported through the notifier and returned as a *SubmitError; it never
// panics the caller.
func (h *Handler) Submit(ctx context.Context, in contact.UpdateInput) (Outcome, error) {
	entry := h.log.WithField("contact_id", in.ID)

	if errs := h.schema.Validate(in); len(errs) > 0 {
		entry.WithField("fields", errs.Names()).Debug("submission blocked by validation")
		return Outcome{FieldErrors: errs}, ErrInvalid
	}
	if !h.busy.CompareAndSwap(false, true) {
		entry.Debug("submission rejected, already busy")
		return Outcome{}, ErrBusy
	}
	// Cleared again below before routing; the defer covers a panicking updater.
	defer h.busy.Store(false)

	err := h.updater.UpdateContact(ctx, in)

	var out Outcome
	var toast Toast
	if err == nil {
		out.Updated = true
		toast = Toast{Kind: ToastSuccess, Title: SuccessTitle, Message: SuccessMessage}
		entry.Info("contact updated")
	} else {
		toast = Toast{Kind: ToastError, Title: ErrorTitle, Message: ServerMessage(err)}
		entry.WithError(err).Warn("contact update failed")
	}
	out.Toast = &toast
	h.notifier.Notify(toast)

	h.busy.Store(false)
	h.router.Refresh()
	if err == nil || h.policy == NavigateAlways {
		h.router.Push(ContactsRoute)
		out.Navigated = true
	}

	if err != nil {
		return out, &SubmitError{ContactID: in.ID, Err: err}
	}
	return out, nil
}

// ServerMessage returns the message to show for a failed update: the API's
// message when the server answered, else the error text.
func ServerMessage(err error) string {
	var apiErr *crm.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
