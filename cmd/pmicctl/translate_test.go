// =============================================================================
// translate_test.go - Tests for Command Translation (translate.go)
// =============================================================================
//
// The parsing tests are pure. The write tests run against an offline
// session, where every write is confirmed immediately and lands in the
// state store, so the store shows which module call a line turned into.
//
// =============================================================================

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pmicpanel/pmicsync/peripheral"
	"github.com/pmicpanel/pmicsync/session"
	"github.com/pmicpanel/pmicsync/settings"
	"github.com/pmicpanel/pmicsync/shell"
)

func offlineSession(t *testing.T, model peripheral.Model) *session.Session {
	t.Helper()
	sess, err := session.Offline(model, session.Options{
		Settings: settings.NewMemStore(),
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Offline(%s): %v", model, err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestParseSet(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want setCommand
	}{
		{"no index", []string{"charger", "vterm", "4.2"}, setCommand{"charger", 0, "vterm", "4.2"}},
		{"index", []string{"buck", "1", "vout", "1.8"}, setCommand{"buck", 1, "vout", "1.8"}},
		{"case folded", []string{"LDO", "0", "SoftStart", "on"}, setCommand{"ldo", 0, "softstart", "on"}},
		{"value case kept", []string{"gpio", "2", "mode", "outputLogic1"}, setCommand{"gpio", 2, "mode", "outputLogic1"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseSet(tc.args)
			if err != nil {
				t.Fatalf("parseSet(%q): %v", tc.args, err)
			}
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestParseSetErrors(t *testing.T) {
	for _, args := range [][]string{
		{"charger", "vterm"},
		{"buck", "x", "vout", "1.8"},
		{"buck", "-1", "vout", "1.8"},
		{"a", "b", "c", "d", "e"},
	} {
		if _, err := parseSet(args); !errors.Is(err, errUsage) {
			t.Errorf("parseSet(%q): got %v, want errUsage", args, err)
		}
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"on", true}, {"ON", true}, {"yes", true}, {"1", true}, {"true", true},
		{"off", false}, {"no", false}, {"0", false}, {"disabled", false},
	}
	for _, tc := range tests {
		got, err := parseBool(tc.in)
		if err != nil {
			t.Errorf("parseBool(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseBool(%q): got %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := parseBool("maybe"); !errors.Is(err, errUsage) {
		t.Errorf("got %v, want errUsage", err)
	}
}

func TestResolveSetErrors(t *testing.T) {
	sess := offlineSession(t, peripheral.NPM2100)
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"model without charger", []string{"charger", "vterm", "4.2"}, errNoModule},
		{"unknown module", []string{"dac", "level", "3"}, errNoModule},
		{"unknown field", []string{"pof", "hysteresis", "1"}, errNoField},
		{"bad number", []string{"timer", "period", "soon"}, errUsage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := parseSet(tc.args)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := resolveSet(sess.Modules(), c); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func runSet(t *testing.T, sess *session.Session, args ...string) error {
	t.Helper()
	c, err := parseSet(args)
	if err != nil {
		t.Fatal(err)
	}
	write, err := resolveSet(sess.Modules(), c)
	if err != nil {
		t.Fatal(err)
	}
	return write().Wait(context.Background())
}

func TestSetWritesThroughModules(t *testing.T) {
	sess := offlineSession(t, peripheral.NPM1300)

	if err := runSet(t, sess, "charger", "vterm", "4.2"); err != nil {
		t.Fatal(err)
	}
	if got := sess.Store().Charger().VTerm; got != 4.2 {
		t.Errorf("vTerm: got %v, want 4.2", got)
	}

	if err := runSet(t, sess, "buck", "1", "vout", "1.8"); err != nil {
		t.Fatal(err)
	}
	buck, _ := sess.Store().Buck(1)
	if buck.VOutNormal != 1.8 || buck.Mode != "software" {
		t.Errorf("buck 1: got %+v, want 1.8 V in software mode", buck)
	}

	if err := runSet(t, sess, "gpio", "2", "mode", "outputLogic1"); err != nil {
		t.Fatal(err)
	}
	if g, _ := sess.Store().Gpio(2); g.Mode != "outputLogic1" {
		t.Errorf("gpio 2 mode: got %q", g.Mode)
	}
}

func TestSetOutOfRangeIsRejected(t *testing.T) {
	sess := offlineSession(t, peripheral.NPM1300)
	err := runSet(t, sess, "charger", "vterm", "9")
	var rerr *shell.RangeError
	if !errors.As(err, &rerr) {
		t.Fatalf("got %v, want a RangeError", err)
	}
	if got := sess.Store().Charger().VTerm; got != 0 {
		t.Errorf("vTerm changed to %v", got)
	}
}
