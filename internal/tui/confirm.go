package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// bridge forwards messages produced outside the update loop (search
// timers, session changes, confirm prompts) into the running program.
type bridge struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (b *bridge) set(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

// Send drops msg when no program is attached.
func (b *bridge) Send(msg tea.Msg) {
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

// confirmAskMsg opens the confirm modal. The answer goes to reply.
type confirmAskMsg struct {
	prompt string
	reply  chan<- bool
}

// modalConfirmer asks through the in-app modal and blocks the calling
// command until the user answers.
type modalConfirmer struct {
	br *bridge
}

func (c modalConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	reply := make(chan bool, 1)
	c.br.Send(confirmAskMsg{prompt: prompt, reply: reply})
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
