package action

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
)

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Always answers every prompt with the same value.
type Always bool

func (a Always) Confirm(context.Context, string) (bool, error) { return bool(a), nil }

// Gate defers a destructive call until the user confirms it. Declining
// leaves all state untouched: the thunk is never invoked.
type Gate struct {
	Confirmer Confirmer
}

// Run asks prompt and, only on an affirmative answer, invokes fn. ran
// reports whether fn was called.
func (g Gate) Run(ctx context.Context, prompt string, fn func(ctx context.Context) error) (ran bool, err error) {
	if g.Confirmer == nil {
		return false, errors.New("gate has no confirmer")
	}
	ok, err := g.Confirmer.Confirm(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("confirm: %w", err)
	}
	if !ok {
		return false, nil
	}
	return true, fn(ctx)
}

// PromptConfirmer reads a y/N answer from In after writing the prompt to
// Out. Anything but "y" or "yes" declines.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

func (p *PromptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	if _, err := fmt.Fprintf(p.Out, "%s [y/N]: ", prompt); err != nil {
		return false, err
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ErrBusy is returned when an action is triggered while the same action is
// still outstanding.
var ErrBusy = errors.New("action already in progress")

// Busy is the "in progress" flag toggled around a user-triggered call so a
// second trigger is rejected instead of issuing a duplicate request.
type Busy struct {
	running atomic.Bool
}

// Do runs fn unless another Do on the same flag is still running.
func (b *Busy) Do(fn func() error) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer b.running.Store(false)
	return fn()
}

// Running reports whether a call is outstanding.
func (b *Busy) Running() bool {
	return b.running.Load()
}
