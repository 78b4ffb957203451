// Package confirm asks the user before destructive operations run.
package confirm

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/pmicpanel/pmicsync/shell"
)

// Settings persists "do not ask again" choices.
type Settings interface {
	Bool(key string) bool
	SetBool(key string, v bool) error
}

// Prompt describes one confirmation question.
type Prompt struct {
	Message       string
	ConfirmLabel  string
	CancelLabel   string
	OptionalLabel string // shown only when DoNotAskAgainID is set

	// DoNotAskAgainID names the persisted flag that skips this prompt.
	DoNotAskAgainID string
}

// Request is handed to the Handler. Exactly one callback should be called;
// calls after the first are ignored.
type Request struct {
	Prompt
	OnConfirm  func()
	OnCancel   func()
	OnOptional func()
}

// Handler presents a Request to the user.
type Handler func(Request)

// Gate wraps operations with a confirmation prompt.
type Gate struct {
	mu       sync.RWMutex
	settings Settings
	handler  Handler
	online   bool
	log      zerolog.Logger
}

// NewGate creates a gate. Prompts are only shown when online is true and a
// handler is set; offline simulation never asks.
func NewGate(settings Settings, online bool, log zerolog.Logger) *Gate {
	return &Gate{settings: settings, online: online, log: log}
}

// SetHandler installs the prompt handler. A nil handler disables prompting.
func (g *Gate) SetHandler(h Handler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handler = h
}

// Wrap runs op behind the prompt p and returns a future that settles with
// op's result, or with shell.ErrConfirmationDeclined if the user cancels.
func (g *Gate) Wrap(p Prompt, op func() *shell.Future) *shell.Future {
	if g == nil {
		return op()
	}
	g.mu.RLock()
	handler := g.handler
	g.mu.RUnlock()

	if handler == nil || !g.online {
		return op()
	}
	if p.DoNotAskAgainID != "" && g.settings != nil && g.settings.Bool(p.DoNotAskAgainID) {
		g.log.Debug().Str("prompt", p.DoNotAskAgainID).Msg("confirmation skipped")
		return op()
	}

	fut := shell.NewFuture()
	var once sync.Once
	run := func() { op().Forward(fut) }

	req := Request{
		Prompt: p,
		OnConfirm: func() {
			once.Do(run)
		},
		OnOptional: func() {
			once.Do(func() {
				if p.DoNotAskAgainID != "" && g.settings != nil {
					if err := g.settings.SetBool(p.DoNotAskAgainID, true); err != nil {
						g.log.Warn().Err(err).Str("prompt", p.DoNotAskAgainID).Msg("failed to persist choice")
					}
				}
				run()
			})
		},
		OnCancel: func() {
			once.Do(func() {
				g.log.Info().Str("prompt", p.DoNotAskAgainID).Msg("operation declined")
				fut.Reject(shell.ErrConfirmationDeclined)
			})
		},
	}
	handler(req)
	return fut
}
