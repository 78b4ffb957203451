package peripheral

import (
	"errors"
	"slices"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/pmicpanel/pmicsync/shell"
)

// Write is one state-changing command issued by a module.
type Write struct {
	Command string

	// Key is the supersession key. It defaults to Command.
	Key string

	// Echo is the value the device is expected to echo on success. The
	// offline strategy feeds it to the matchers as "Success: <Echo>".
	Echo string

	// Resync lists the get commands re-issued when the write fails.
	Resync []string

	// Simulate replaces the echo dispatch in offline mode.
	Simulate func()
}

func (w Write) key() string {
	if w.Key != "" {
		return w.Key
	}
	return w.Command
}

// Strategy decides how module commands reach the device. It is chosen once
// per session.
type Strategy interface {
	Online() bool

	// Query asks for a value. The reply reaches state through the
	// registered matchers only.
	Query(command, key string)

	// Write sends w and returns a future settled after the device
	// confirmed it, or after the resync following a failure.
	Write(w Write) *shell.Future

	// Resync re-issues gets and calls done once they all completed.
	Resync(gets []string, done func())
}

// Offline simulates the device through the matcher table.
type Offline struct {
	reg *shell.Registry
}

// NewOffline creates the simulation strategy.
func NewOffline(reg *shell.Registry) *Offline {
	return &Offline{reg: reg}
}

// Online reports false.
func (o *Offline) Online() bool { return false }

// Query does nothing; there is no device to ask.
func (o *Offline) Query(string, string) {}

// Write runs the simulated echo synchronously and resolves.
func (o *Offline) Write(w Write) *shell.Future {
	if w.Simulate != nil {
		w.Simulate()
	} else {
		o.reg.DispatchCommand(w.Command, shell.SuccessPrefix+" "+w.Echo)
	}
	return shell.Resolved()
}

// Resync completes immediately.
func (o *Offline) Resync(_ []string, done func()) { done() }

// Online sends commands through the channel.
type Online struct {
	ch  *shell.Channel
	log zerolog.Logger
}

// NewOnline creates the device strategy.
func NewOnline(ch *shell.Channel, log zerolog.Logger) *Online {
	return &Online{ch: ch, log: log}
}

// Online reports true.
func (o *Online) Online() bool { return true }

// Query enqueues a unique get.
func (o *Online) Query(command, key string) {
	if key == "" {
		key = command
	}
	o.ch.Enqueue(&shell.Command{
		Text:   command,
		Stem:   key,
		Unique: true,
		OnError: func(err error) {
			o.log.Debug().Err(err).Str("cmd", command).Msg("query failed")
		},
	})
}

// Write enqueues w as a unique command.
func (o *Online) Write(w Write) *shell.Future {
	fut := shell.NewFuture()
	o.ch.Enqueue(&shell.Command{
		Text:      w.Command,
		Stem:      w.key(),
		Unique:    true,
		OnSuccess: func(string) { fut.Resolve() },
		OnError: func(err error) {
			o.Resync(w.Resync, func() { fut.Reject(resynced(err, w.Resync)) })
		},
		OnSuperseded: func() { fut.Reject(shell.ErrSuperseded) },
	})
	return fut
}

// Resync enqueues every get as a plain command and calls done when the last
// one completed, successfully or not.
func (o *Online) Resync(gets []string, done func()) {
	if len(gets) == 0 {
		done()
		return
	}
	var remaining atomic.Int32
	remaining.Store(int32(len(gets)))
	finish := func() {
		if remaining.Add(-1) == 0 {
			done()
		}
	}
	for _, g := range gets {
		o.ch.Enqueue(&shell.Command{
			Text:      g,
			OnSuccess: func(string) { finish() },
			OnError:   func(error) { finish() },
		})
	}
}

// Step is one stage of an ordered operation.
type Step func() *shell.Future

// Sequence runs steps in order, each after the previous one resolved. The
// first failure aborts the rest, resyncs every field in resync and then
// rejects with that failure. Local failures (superseded, declined, out of
// range) abort without resync.
func Sequence(s Strategy, resync []string, steps ...Step) *shell.Future {
	fut := shell.NewFuture()
	var run func(i int)
	run = func(i int) {
		if i == len(steps) {
			fut.Resolve()
			return
		}
		steps[i]().OnSettle(func(err error) {
			switch {
			case err == nil:
				run(i + 1)
			case !shell.IsRejection(err):
				fut.Reject(err)
			default:
				var re *resyncedError
				var done []string
				if errors.As(err, &re) {
					done = re.gets
				}
				rest := slices.DeleteFunc(slices.Clone(resync), func(g string) bool {
					return slices.Contains(done, g)
				})
				s.Resync(rest, func() { fut.Reject(resynced(err, rest)) })
			}
		})
	}
	run(0)
	return fut
}

// resyncedError is a write failure whose fields were already re-queried.
// Enclosing sequences skip those gets.
type resyncedError struct {
	err  error
	gets []string
}

func (e *resyncedError) Error() string { return e.err.Error() }
func (e *resyncedError) Unwrap() error { return e.err }

func resynced(err error, gets []string) error {
	if len(gets) == 0 {
		return err
	}
	var re *resyncedError
	if errors.As(err, &re) {
		all := slices.Clone(re.gets)
		for _, g := range gets {
			if !slices.Contains(all, g) {
				all = append(all, g)
			}
		}
		return &resyncedError{err: re.err, gets: all}
	}
	return &resyncedError{err: err, gets: gets}
}
