package connstate

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/state"
)

func TestStateStrings(t *testing.T) {
	tests := []struct {
		got      State
		expected string
	}{
		{Offline, "offline"},
		{EkDisconnected, "ek-disconnected"},
		{PmicDisconnected, "pmic-disconnected"},
		{PmicUnknown, "pmic-unknown"},
		{PmicPendingReboot, "pmic-pending-reboot"},
		{PmicPendingRebooting, "pmic-pending-rebooting"},
		{Connected, "connected"},
	}
	for _, tt := range tests {
		if tt.got.String() != tt.expected {
			t.Errorf("got %q, want %q", tt.got, tt.expected)
		}
	}
}

func TestHappyPathAndReboot(t *testing.T) {
	bus := eventbus.New(zerolog.Nop())
	var seen []string
	eventbus.On(bus, eventbus.ConnectionUpdate, func(c state.Connection) { seen = append(seen, c.State) })

	m := New(bus, zerolog.Nop())
	steps := []func() error{
		m.LinkDetected,
		m.IdentifyStarted,
		func() error { return m.Identified(true) },
		m.RebootRequested,
		m.Rebooting,
		m.Booted,
		func() error { return m.Identified(true) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	want := []string{
		"ek-disconnected", "pmic-unknown", "connected",
		"pmic-pending-reboot", "pmic-pending-rebooting", "pmic-unknown", "connected",
	}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("got %v, want %v", seen, want)
	}
	if !m.CanWrite() {
		t.Error("connected machine refuses writes")
	}
}

func TestInvalidTransition(t *testing.T) {
	m := New(nil, zerolog.Nop())
	err := m.Identified(true)

	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("got %v, want TransitionError", err)
	}
	if te.From != Offline || te.To != Connected {
		t.Errorf("got %s -> %s", te.From, te.To)
	}
	if m.State() != Offline {
		t.Errorf("state changed to %s", m.State())
	}
}

func TestLinkLostFromAnyState(t *testing.T) {
	for _, s := range []State{EkDisconnected, PmicUnknown, PmicDisconnected, Connected, PmicPendingReboot, PmicPendingRebooting} {
		t.Run(s.String(), func(t *testing.T) {
			m := New(nil, zerolog.Nop())
			m.state = s
			if err := m.LinkLost(); err != nil {
				t.Fatal(err)
			}
			if m.State() != Offline {
				t.Errorf("got %s", m.State())
			}
		})
	}

	m := New(nil, zerolog.Nop())
	if err := m.LinkLost(); err != nil {
		t.Errorf("LinkLost while offline: %v", err)
	}
}

func TestPmicAbsent(t *testing.T) {
	m := New(nil, zerolog.Nop())
	m.LinkDetected()
	m.IdentifyStarted()
	if err := m.Identified(false); err != nil {
		t.Fatal(err)
	}
	if m.State() != PmicDisconnected || m.CanWrite() {
		t.Errorf("got %s, canWrite=%v", m.State(), m.CanWrite())
	}
}
