package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/smileynet/crmedit"
	"github.com/smileynet/crmedit/internal/config"
	"github.com/smileynet/crmedit/internal/contact"
	"github.com/smileynet/crmedit/internal/crm"
	"github.com/smileynet/crmedit/internal/editor"
	"github.com/smileynet/crmedit/internal/logging"
	"github.com/smileynet/crmedit/internal/tui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// CLI is the top-level command structure for crmedit.
type CLI struct {
	Version  kong.VersionFlag `help:"Show version." short:"V"`
	Edit     EditCmd          `cmd:"" help:"Edit a contact in an interactive form."`
	Update   UpdateCmd        `cmd:"" help:"Update a contact from flags or a YAML file."`
	Accounts AccountsCmd      `cmd:"" help:"List selectable accounts."`
	Users    UsersCmd         `cmd:"" help:"List assignable users."`
}

// Exit codes.
const (
	exitSuccess = 0
	exitSubmit  = 1 // validation or submission failure
	exitSetup   = 2 // config, setup or load failure
)

// app holds the dependencies shared by every command.
type app struct {
	log     *logrus.Logger
	client  *crm.Client
	cache   *crm.Cache
	loader  *editor.Loader
	layout  contact.Layout
	schema  *contact.Schema
	policy  editor.FailurePolicy
	closeFn func()
}

func (a *app) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// handler creates a submission handler reporting through n and r.
func (a *app) handler(n editor.Notifier, r editor.Router) *editor.Handler {
	return editor.NewHandler(a.client, n, r,
		editor.WithFailurePolicy(a.policy),
		editor.WithSchema(a.schema),
		editor.WithLogger(a.log),
	)
}

// loadConfig loads .env files, layered YAML config and environment overrides.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(".env", ".crmedit/.env"); err != nil {
		return nil, err
	}
	cfg, err := config.LoadLayered(config.UserPath(), config.ProjectPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp builds real dependencies from configuration.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logFile, log, err := logging.FileLogger(level, cfg.Log.File)
	if err != nil {
		return nil, err
	}

	policy, err := editor.ParseFailurePolicy(cfg.Form.OnFailure)
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}

	layout, err := contact.LoadLayout(crmedit.OverlayFS(cfg.Form.LayoutDir, crmedit.Layouts), "contact.yaml")
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}

	client := crm.NewClient(cfg.API.BaseURL,
		crm.WithToken(cfg.API.Token),
		crm.WithTimeout(cfg.API.Timeout),
		crm.WithLogger(log),
	)
	cache := crm.NewCache(client)

	var schemaOpts []contact.SchemaOption
	if cfg.Form.PhoneRegion != "" {
		schemaOpts = append(schemaOpts, contact.WithPhoneRegion(cfg.Form.PhoneRegion))
	}

	return &app{
		log:     log,
		client:  client,
		cache:   cache,
		loader:  editor.NewLoader(cache, client),
		layout:  layout,
		schema:  contact.NewSchema(schemaOpts...),
		policy:  policy,
		closeFn: func() { _ = logFile.Close() },
	}, nil
}

// refresher drops cached reference data.
type refresher interface {
	Invalidate()
}

// cacheRouter implements editor.Router for a terminal. Refresh drops cached
// reference data; Push prints the route when w is set.
type cacheRouter struct {
	cache refresher

	mu sync.Mutex
	w  io.Writer
}

func (r *cacheRouter) Refresh() {
	if r.cache != nil {
		r.cache.Invalidate()
	}
}

func (r *cacheRouter) Push(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w != nil {
		_, _ = fmt.Fprintf(r.w, "navigate: %s\n", route)
	}
}

var _ editor.Router = (*cacheRouter)(nil)

// EditCmd opens the interactive contact form.
type EditCmd struct {
	ContactID string `arg:"" help:"Contact ID to edit."`
}

// formResult is the final state of the form program.
type formResult interface {
	State() editor.State
	Err() error
	Toast() *editor.Toast
	Route() string
}

var _ formResult = tui.Model{}

// formRunner abstracts running the form program for testing.
type formRunner interface {
	Run() (formResult, error)
}

// programRunner runs a tui.Model as a Bubble Tea program.
type programRunner struct {
	ctx   context.Context
	model tui.Model
}

func (p programRunner) Run() (formResult, error) {
	return tui.Run(p.ctx, p.model, tui.RunOptions{})
}

// Run builds real dependencies and launches the form.
func (e *EditCmd) Run() error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("edit: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var toasts tui.ToastRecorder
	h := a.handler(&toasts, &cacheRouter{cache: a.cache})
	m := tui.NewModel(e.ContactID, a.loader, h,
		tui.WithContext(ctx),
		tui.WithLayout(a.layout),
	)
	return e.run(os.Stdout, tui.IsTTY(os.Stdout), programRunner{ctx: ctx, model: m})
}

// run executes the form and reports its final state to w.
func (e *EditCmd) run(w io.Writer, isTTY bool, runner formRunner) error {
	if !isTTY {
		return fmt.Errorf("edit: requires a terminal (TTY); use \"crmedit update\" instead")
	}

	final, err := runner.Run()
	if err != nil {
		return fmt.Errorf("edit: %w", err)
	}

	if final.State() == editor.StateFailed {
		return fmt.Errorf("edit: %w", final.Err())
	}

	t := final.Toast()
	if t != nil {
		_, _ = fmt.Fprintln(w, tui.RenderToast(*t))
	}
	if route := final.Route(); route != "" {
		_, _ = fmt.Fprintf(w, "navigate: %s\n", route)
	}
	if t != nil && t.Kind == editor.ToastError {
		return &editor.SubmitError{ContactID: e.ContactID, Err: errors.New(t.Message)}
	}
	return nil
}

// UpdateCmd submits contact changes without a terminal UI.
type UpdateCmd struct {
	ContactID string   `arg:"" help:"Contact ID to update."`
	Set       []string `short:"s" sep:"none" placeholder:"FIELD=VALUE" help:"Set a field (repeatable). An empty value clears nullable fields."`
	File      string   `short:"f" type:"path" help:"YAML file of field values, applied before --set."`
}

// contactLoader loads reference data and the initial record.
type contactLoader interface {
	Load(ctx context.Context, contactID string) editor.Reference
}

// contactSubmitter validates and sends an update.
type contactSubmitter interface {
	Submit(ctx context.Context, in contact.UpdateInput) (editor.Outcome, error)
}

var (
	_ contactLoader    = (*editor.Loader)(nil)
	_ contactSubmitter = (*editor.Handler)(nil)
)

// Run builds real dependencies and submits the update.
func (u *UpdateCmd) Run() error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	h := a.handler(tui.NewPlainNotifier(os.Stdout), &cacheRouter{cache: a.cache, w: os.Stdout})
	return u.run(ctx, os.Stdout, a.loader, h)
}

// run loads the contact, applies edits and submits it.
func (u *UpdateCmd) run(ctx context.Context, w io.Writer, loader contactLoader, sub contactSubmitter) error {
	edits, err := u.edits()
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	ref := loader.Load(ctx, u.ContactID)
	if ref.State != editor.StateReady {
		return fmt.Errorf("update: %w", ref.Err)
	}
	in := ref.Initial

	for _, e := range edits {
		if err := apply(&in, e); err != nil {
			return fmt.Errorf("update: %w: %w", editor.ErrInvalid, err)
		}
	}

	out, err := sub.Submit(ctx, in)
	if errors.Is(err, editor.ErrInvalid) {
		for _, name := range out.FieldErrors.Names() {
			_, _ = fmt.Fprintf(w, "%s: %s\n", name, out.FieldErrors[name])
		}
		return fmt.Errorf("update: %w", err)
	}
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return nil
}

type edit struct {
	name contact.FieldName
	raw  string
}

func apply(in *contact.UpdateInput, e edit) error {
	v, err := contact.ParseValue(e.name, e.raw)
	if err != nil {
		return err
	}
	return in.Set(e.name, v)
}

// edits collects file values followed by --set values.
func (u *UpdateCmd) edits() ([]edit, error) {
	var edits []edit
	if u.File != "" {
		data, err := os.ReadFile(u.File)
		if err != nil {
			return nil, err
		}
		fileEdits, err := parseEditFile(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u.File, err)
		}
		edits = append(edits, fileEdits...)
	}
	for _, s := range u.Set {
		name, raw, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("--set %q: want FIELD=VALUE", s)
		}
		edits = append(edits, edit{name: contact.FieldName(strings.TrimSpace(name)), raw: raw})
	}
	return edits, nil
}

// parseEditFile reads a flat YAML mapping of field names to scalar values.
// A null value clears the field. Keys are applied in sorted order.
func parseEditFile(data []byte) ([]edit, error) {
	var fields map[string]yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing: %w", err)
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	edits := make([]edit, 0, len(names))
	for _, name := range names {
		node := fields[name]
		if node.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%s: value must be a scalar", name)
		}
		raw := node.Value
		if node.Tag == "!!null" {
			raw = ""
		}
		edits = append(edits, edit{name: contact.FieldName(name), raw: raw})
	}
	return edits, nil
}

// AccountsCmd prints the selectable accounts.
type AccountsCmd struct{}

// Run fetches and prints accounts.
func (c *AccountsCmd) Run() error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("accounts: %w", err)
	}
	defer a.Close()
	return c.run(context.Background(), os.Stdout, a.cache)
}

func (c *AccountsCmd) run(ctx context.Context, w io.Writer, src editor.ReferenceSource) error {
	accounts, err := src.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("accounts: %w", err)
	}
	for _, acc := range accounts {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", acc.ID, acc.Name)
	}
	return nil
}

// UsersCmd prints the assignable users.
type UsersCmd struct{}

// Run fetches and prints users.
func (c *UsersCmd) Run() error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("users: %w", err)
	}
	defer a.Close()
	return c.run(context.Background(), os.Stdout, a.cache)
}

func (c *UsersCmd) run(ctx context.Context, w io.Writer, src editor.ReferenceSource) error {
	users, err := src.Users(ctx)
	if err != nil {
		return fmt.Errorf("users: %w", err)
	}
	for _, u := range users {
		if u.Email != "" {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Name, u.Email)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", u.ID, u.Name)
	}
	return nil
}

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var se *editor.SubmitError
	if errors.As(err, &se) || errors.Is(err, editor.ErrInvalid) {
		return exitSubmit
	}
	return exitSetup
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("crmedit"),
		kong.Description("Edit CRM contacts from the terminal."),
		kong.Vars{"version": version + " " + commit + " " + date},
	)
	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
