// Package session assembles the engine: the command channel, the bus, the
// state store, the connection machine and the peripheral modules of the
// identified PMIC.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pmicpanel/pmicsync/confirm"
	"github.com/pmicpanel/pmicsync/connstate"
	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/peripheral"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/state"
)

var (
	// ErrNoPmic is returned by Identify when the kit reports no PMIC.
	ErrNoPmic = errors.New("no PMIC connected to the evaluation kit")

	// ErrNotConnected is returned by Writable while the PMIC is not
	// connected.
	ErrNotConnected = errors.New("PMIC not connected")

	// ErrOffline is returned for operations that need a device.
	ErrOffline = errors.New("session is offline")

	// ErrNotIdentified is returned before a PMIC was identified.
	ErrNotIdentified = errors.New("PMIC not identified")
)

const (
	cmdConnected = "npmx connected"
	cmdModel     = "npmx model"
)

// Options configures a session.
type Options struct {
	Timeout  time.Duration // command timeout, shell.CommandTimeout when zero
	Settings confirm.Settings
	Logger   zerolog.Logger
}

// Session is one connection to an evaluation kit, or one offline simulation.
type Session struct {
	log     zerolog.Logger
	bus     *eventbus.Bus
	store   *state.Store
	machine *connstate.Machine
	reg     *shell.Registry
	ch      *shell.Channel // nil offline
	io      peripheral.Strategy
	gate    *confirm.Gate
	ctx     context.Context

	mu   sync.Mutex
	set  *peripheral.Set
	subs []*eventbus.Subscription
}

func newSession(opts Options, online bool) *Session {
	bus := eventbus.New(opts.Logger)
	store := state.NewStore()
	store.Attach(bus)
	return &Session{
		log:     opts.Logger,
		bus:     bus,
		store:   store,
		machine: connstate.New(bus, opts.Logger),
		reg:     shell.NewRegistry(),
		gate:    confirm.NewGate(opts.Settings, online, opts.Logger),
	}
}

// Open starts an online session over t. The PMIC is not identified yet;
// call Identify.
func Open(ctx context.Context, t shell.Transport, opts Options) (*Session, error) {
	if t == nil {
		return nil, errors.New("session: nil transport")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = shell.CommandTimeout
	}

	s := newSession(opts, true)
	s.ctx = ctx
	s.ch = shell.NewChannel(t, s.reg,
		shell.WithTimeout(timeout),
		shell.WithLogger(opts.Logger),
		shell.WithDisconnectHandler(func(err error) {
			s.log.Warn().Err(err).Msg("link to evaluation kit lost")
			_ = s.machine.LinkLost()
		}),
	)
	s.io = peripheral.NewOnline(s.ch, opts.Logger)
	s.subs = append(s.subs, eventbus.On(s.bus, eventbus.RebootUpdate, s.onReboot))

	if err := s.machine.LinkDetected(); err != nil {
		return nil, err
	}
	s.ch.Start(ctx)
	return s, nil
}

// Offline starts a simulated session for model. Writes are applied through
// the same matchers as device replies.
func Offline(model peripheral.Model, opts Options) (*Session, error) {
	layout, err := peripheral.LayoutFor(model)
	if err != nil {
		return nil, err
	}
	s := newSession(opts, false)
	s.io = peripheral.NewOffline(s.reg)
	s.build(layout)

	name := string(layout.Model)
	s.bus.Emit(eventbus.PmicInfoUpdate, state.PmicInfoPatch{Model: &name})
	return s, nil
}

func (s *Session) deps() peripheral.Deps {
	return peripheral.Deps{
		Strategy: s.io,
		Registry: s.reg,
		Bus:      s.bus,
		Gate:     s.gate,
		Logger:   s.log,
	}
}

// build replaces the module set with one for layout.
func (s *Session) build(layout peripheral.Layout) *peripheral.Set {
	set := peripheral.Build(s.deps(), layout)
	s.mu.Lock()
	old := s.set
	s.set = set
	s.mu.Unlock()
	if old != nil {
		old.Release()
	}
	return set
}

// Identify probes the kit for a PMIC, builds the modules for its model and
// queries every field.
func (s *Session) Identify(ctx context.Context) error {
	if s.ch == nil {
		return ErrOffline
	}
	if s.machine.State() != connstate.PmicUnknown {
		if err := s.machine.IdentifyStarted(); err != nil {
			return err
		}
	}

	reply, err := s.ch.Do(ctx, shell.FormatGet(cmdConnected, shell.NoIndex))
	if err != nil {
		return fmt.Errorf("identify: %w", err)
	}
	present, err := shell.Boolean.Decode(reply)
	if err != nil {
		return fmt.Errorf("identify: %w", err)
	}
	s.bus.Emit(eventbus.PmicInfoUpdate, state.PmicInfoPatch{Connected: &present})
	if !present {
		_ = s.machine.Identified(false)
		return ErrNoPmic
	}

	reply, err = s.ch.Do(ctx, shell.FormatGet(cmdModel, shell.NoIndex))
	if err != nil {
		return fmt.Errorf("identify: %w", err)
	}
	parts, err := shell.Colon.Decode(reply)
	if err != nil {
		return fmt.Errorf("identify: %w", err)
	}
	layout, err := peripheral.LayoutFor(peripheral.Model(parts[0]))
	if err != nil {
		return err
	}
	info := state.PmicInfoPatch{Model: &parts[0]}
	if len(parts) > 1 {
		info.Revision = &parts[1]
	}
	s.bus.Emit(eventbus.PmicInfoUpdate, info)

	set := s.build(layout)
	if err := s.machine.Identified(true); err != nil {
		return err
	}
	s.log.Info().Str("model", parts[0]).Msg("PMIC identified")
	set.GetAll()
	return nil
}

func (s *Session) onReboot(r state.Reboot) {
	switch r.Phase {
	case state.RebootRequested:
		_ = s.machine.RebootRequested()
	case state.RebootRebooting:
		_ = s.machine.Rebooting()
	case state.RebootBooted:
		_ = s.machine.Booted()
		// Boot lines arrive on the channel goroutine, which Identify
		// needs to be free.
		go func() {
			if err := s.Identify(s.ctx); err != nil {
				s.log.Warn().Err(err).Msg("identify after boot failed")
			}
		}()
	}
}

// Online reports whether the session talks to a device.
func (s *Session) Online() bool { return s.ch != nil }

// Writable reports whether the PMIC is ready for writes. Modules send
// writes in any connection state; front ends call this to decide whether
// to offer them.
func (s *Session) Writable() error {
	if s.ch == nil {
		return nil
	}
	if st := s.machine.State(); !s.machine.CanWrite() {
		return fmt.Errorf("%w (%s)", ErrNotConnected, st)
	}
	return nil
}

// Bus returns the event bus.
func (s *Session) Bus() *eventbus.Bus { return s.bus }

// Store returns the confirmed state.
func (s *Session) Store() *state.Store { return s.store }

// Machine returns the connection state machine.
func (s *Session) Machine() *connstate.Machine { return s.machine }

// Gate returns the confirmation gate.
func (s *Session) Gate() *confirm.Gate { return s.gate }

// Registry returns the matcher table.
func (s *Session) Registry() *shell.Registry { return s.reg }

// Modules returns the current module set, or nil before identification.
func (s *Session) Modules() *peripheral.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Refresh re-queries every field of every module.
func (s *Session) Refresh() error {
	set := s.Modules()
	if set == nil {
		return ErrNotIdentified
	}
	set.GetAll()
	return nil
}

// Raw sends a shell command as typed and returns the reply. The reply goes
// through the matchers, so a raw set updates the state like a module call.
func (s *Session) Raw(ctx context.Context, text string) (string, error) {
	if s.ch == nil {
		return "", ErrOffline
	}
	return s.ch.Do(ctx, text)
}

// Sync waits until every command queued before it has been answered.
// Offline it returns at once.
func (s *Session) Sync(ctx context.Context) error {
	if s.ch == nil {
		return nil
	}
	_, err := s.ch.Do(ctx, shell.FormatGet(cmdConnected, shell.NoIndex))
	return err
}

// Close releases the modules and closes the link.
func (s *Session) Close() error {
	s.mu.Lock()
	set := s.set
	s.set = nil
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	if set != nil {
		set.Release()
	}
	var err error
	if s.ch != nil {
		err = s.ch.Close()
		_ = s.machine.LinkLost()
	}
	s.store.Detach()
	s.bus.Close()
	return err
}
