package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/smileynet/crmedit/internal/editor"
)

// ErrNotTerminal is returned by Run when the output is not a terminal.
var ErrNotTerminal = errors.New("tui: output is not a terminal")

// IsTTY reports whether w is connected to a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// RunOptions configures Run.
type RunOptions struct {
	Input  io.Reader // Keyboard input (default: os.Stdin).
	Output io.Writer // Screen (default: os.Stdout).
	// SkipTTYCheck runs even when Output is not a terminal.
	SkipTTYCheck bool
}

// Run starts the Bubble Tea program for m and returns the final model.
func Run(ctx context.Context, m Model, opts RunOptions) (Model, error) {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if !opts.SkipTTYCheck && !IsTTY(opts.Output) {
		return m, ErrNotTerminal
	}

	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(opts.Input),
		tea.WithOutput(opts.Output),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return m, fmt.Errorf("tui: %w", err)
	}
	fm, ok := final.(Model)
	if !ok {
		return m, fmt.Errorf("tui: unexpected final model %T", final)
	}
	return fm, nil
}

// PlainNotifier writes toasts as text lines. It is safe for concurrent use.
type PlainNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPlainNotifier creates a PlainNotifier writing to w.
func NewPlainNotifier(w io.Writer) *PlainNotifier {
	return &PlainNotifier{w: w}
}

// Notify prints "[kind] Title: message".
func (n *PlainNotifier) Notify(t editor.Toast) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.w, "[%s] %s: %s\n", t.Kind, t.Title, t.Message)
}

// ToastRecorder keeps the last toast for rendering after the program exits.
type ToastRecorder struct {
	mu   sync.Mutex
	last *editor.Toast
}

// Notify records t.
func (r *ToastRecorder) Notify(t editor.Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = &t
}

// Last returns the most recent toast, or nil.
func (r *ToastRecorder) Last() *editor.Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
