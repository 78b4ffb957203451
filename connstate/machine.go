// Package connstate tracks the link to the evaluation kit and the PMIC on it.
package connstate

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/state"
)

// State is a connection state.
type State string

// Connection states.
const (
	Offline              State = "offline"
	EkDisconnected       State = "ek-disconnected"
	PmicDisconnected     State = "pmic-disconnected"
	PmicUnknown          State = "pmic-unknown"
	PmicPendingReboot    State = "pmic-pending-reboot"
	PmicPendingRebooting State = "pmic-pending-rebooting"
	Connected            State = "connected"
)

// String returns the state name.
func (s State) String() string { return string(s) }

// transitions lists the valid targets of each state, besides Offline which
// is always reachable.
var transitions = map[State][]State{
	Offline:              {EkDisconnected},
	EkDisconnected:       {PmicUnknown},
	PmicUnknown:          {PmicDisconnected, Connected},
	PmicDisconnected:     {PmicUnknown},
	Connected:            {PmicPendingReboot, PmicUnknown},
	PmicPendingReboot:    {PmicPendingRebooting, PmicUnknown},
	PmicPendingRebooting: {PmicUnknown},
}

// TransitionError is returned for a refused transition.
type TransitionError struct {
	From, To State
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid connection transition %s -> %s", e.From, e.To)
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	if to == Offline {
		return from != Offline
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Machine is the connection state machine. Changes are published on the
// bus as state.Connection.
type Machine struct {
	mu    sync.Mutex
	state State
	bus   *eventbus.Bus
	log   zerolog.Logger
}

// New creates a machine in the Offline state.
func New(bus *eventbus.Bus, log zerolog.Logger) *Machine {
	return &Machine{state: Offline, bus: bus, log: log}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CanWrite reports whether peripheral commands may be sent.
func (m *Machine) CanWrite() bool {
	return m.State() == Connected
}

// Transition moves to the given state. Invalid transitions are refused,
// logged and returned as *TransitionError.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	from := m.state
	if !CanTransition(from, to) {
		m.mu.Unlock()
		m.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("invalid state transition attempted")
		return &TransitionError{From: from, To: to}
	}
	m.state = to
	m.mu.Unlock()

	m.log.Info().Str("state", to.String()).Str("from", from.String()).Msg("connection state changed")
	if m.bus != nil {
		m.bus.Emit(eventbus.ConnectionUpdate, state.Connection{State: string(to), Previous: string(from)})
	}
	return nil
}

// LinkDetected records that the serial link to the kit is open.
func (m *Machine) LinkDetected() error { return m.Transition(EkDisconnected) }

// IdentifyStarted records that the PMIC is being probed.
func (m *Machine) IdentifyStarted() error { return m.Transition(PmicUnknown) }

// Identified records the probe result.
func (m *Machine) Identified(present bool) error {
	if present {
		return m.Transition(Connected)
	}
	return m.Transition(PmicDisconnected)
}

// RebootRequested records that a delayed reboot was accepted.
func (m *Machine) RebootRequested() error { return m.Transition(PmicPendingReboot) }

// Rebooting records that the reboot is in progress.
func (m *Machine) Rebooting() error { return m.Transition(PmicPendingRebooting) }

// Booted records that the firmware announced a fresh start. The device must
// be identified again.
func (m *Machine) Booted() error {
	if m.State() == PmicUnknown {
		return nil
	}
	return m.Transition(PmicUnknown)
}

// LinkLost moves to Offline from any state.
func (m *Machine) LinkLost() error {
	if m.State() == Offline {
		return nil
	}
	return m.Transition(Offline)
}
