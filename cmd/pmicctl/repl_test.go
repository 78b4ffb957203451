// =============================================================================
// repl_test.go - Tests for the REPL Loop (repl.go)
// =============================================================================
//
// Each test feeds a script through a piped LineEditor and inspects what the
// REPL printed. Offline tests use a simulated PMIC; online tests use the
// scripted evaluation kit from shelltest.
//
// =============================================================================

package main

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pmicpanel/pmicsync/peripheral"
	"github.com/pmicpanel/pmicsync/session"
	"github.com/pmicpanel/pmicsync/settings"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/shell/shelltest"
)

// runScript runs script through a REPL on sess and returns stdout and
// stderr.
func runScript(t *testing.T, sess *session.Session, script string) (string, string) {
	t.Helper()
	var out, errOut strings.Builder
	editor := newPipedEditor(strings.NewReader(script), io.Discard)
	sess.Gate().SetHandler((&dialog{in: editor, out: &out}).handle)

	done := make(chan struct{})
	go func() {
		defer close(done)
		newREPL(context.Background(), sess, editor, &out, &errOut).run()
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("REPL did not finish")
	}
	return out.String(), errOut.String()
}

func TestREPLOfflineScript(t *testing.T) {
	sess := offlineSession(t, peripheral.NPM1300)
	out, errOut := runScript(t, sess, `.set charger vterm 4.2
.state charger
.bogus
npmx model get
.quit
.state
`)

	if !strings.Contains(out, "OK") {
		t.Errorf("no OK after .set: %q", out)
	}
	if !strings.Contains(out, "vTerm: 4.2") {
		t.Errorf(".state charger: got %q", out)
	}
	if strings.Contains(out, "fuelGauge:") {
		t.Errorf("full state printed after .quit: %q", out)
	}
	if !strings.Contains(errOut, "unknown command .bogus") {
		t.Errorf("missing unknown command error: %q", errOut)
	}
	if !strings.Contains(errOut, session.ErrOffline.Error()) {
		t.Errorf("raw line offline: got %q", errOut)
	}
}

func TestREPLPrompt(t *testing.T) {
	sess := offlineSession(t, peripheral.NPM2100)
	r := newREPL(context.Background(), sess, nil, io.Discard, io.Discard)
	if got, want := r.prompt(), "[npm2100 offline] > "; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestREPLStateSections(t *testing.T) {
	sess := offlineSession(t, peripheral.NPM1300)
	out, errOut := runScript(t, sess, ".state PMIC\n.state nothing\n")
	if !strings.Contains(out, "pmic:") || !strings.Contains(out, "model: npm1300") {
		t.Errorf("got %q", out)
	}
	if !strings.Contains(errOut, `no state section "nothing"`) {
		t.Errorf("got %q", errOut)
	}
}

func TestREPLUsageErrors(t *testing.T) {
	sess := offlineSession(t, peripheral.NPM1300)
	_, errOut := runScript(t, sess, ".hibernate\n.profile begin\n.samples -1\n.reboot 70000\n")
	for _, want := range []string{".hibernate <wake-ms>", ".profile start", ".samples [count]", "delay"} {
		if !strings.Contains(errOut, want) {
			t.Errorf("missing %q in %q", want, errOut)
		}
	}
}

func TestREPLSamplesEmpty(t *testing.T) {
	sess := offlineSession(t, peripheral.NPM1300)
	out, _ := runScript(t, sess, ".samples\n")
	if !strings.Contains(out, "No samples") {
		t.Errorf("got %q", out)
	}
}

func onlineSession(t *testing.T) (*session.Session, *shelltest.Device) {
	t.Helper()
	dev := shelltest.New()
	dev.Preset("npmx connected", shell.NoIndex, "1")
	dev.Preset("npmx model", shell.NoIndex, "npm1300:2")

	sess, err := session.Open(context.Background(), dev, session.Options{
		Timeout:  500 * time.Millisecond,
		Settings: settings.NewMemStore(),
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sess.Close() })
	if err := sess.Identify(context.Background()); err != nil {
		t.Fatalf("Identify: %v", err)
	}
	return sess, dev
}

func TestREPLRawPassthrough(t *testing.T) {
	sess, _ := onlineSession(t)
	out, errOut := runScript(t, sess, "npmx model get\n")
	if errOut != "" {
		t.Fatalf("unexpected errors %q", errOut)
	}
	if !strings.Contains(out, "Value: npm1300:2") {
		t.Errorf("got %q", out)
	}
}

func TestREPLShipModeAsksFirst(t *testing.T) {
	sess, dev := onlineSession(t)

	out, errOut := runScript(t, sess, ".ship\nn\n")
	if !strings.Contains(errOut, shell.ErrConfirmationDeclined.Error()) {
		t.Errorf("declined ship: got %q", errOut)
	}
	if sent := dev.SentWith("npmx ship mode ship"); len(sent) != 0 {
		t.Fatalf("ship sent after decline: %q", sent)
	}

	out, errOut = runScript(t, sess, ".ship\ny\n")
	if errOut != "" {
		t.Fatalf("unexpected errors %q", errOut)
	}
	if !strings.Contains(out, "ship mode") || !strings.Contains(out, "OK") {
		t.Errorf("got %q", out)
	}
	if sent := dev.SentWith("npmx ship mode ship"); len(sent) != 1 {
		t.Errorf("got %q, want one ship command", sent)
	}
}

func TestREPLGetRequeriesModule(t *testing.T) {
	sess, dev := onlineSession(t)
	dev.Preset("npmx charger charging_current", shell.NoIndex, "300")

	out, errOut := runScript(t, sess, ".get charger\n.get warp\n")
	if !strings.Contains(out, "iChg: 300") {
		t.Errorf("got %q, want the new charging current", out)
	}
	if !strings.Contains(errOut, errNoModule.Error()) {
		t.Errorf("got %q", errOut)
	}
}

func TestREPLRefusesWritesWhileRebootPending(t *testing.T) {
	sess, dev := onlineSession(t)

	_, errOut := runScript(t, sess, ".reboot\ny\n.set charger recharge on\n.ship\n")
	if got := strings.Count(errOut, session.ErrNotConnected.Error()); got != 2 {
		t.Errorf("got %d refusals in %q, want 2", got, errOut)
	}
	if sent := dev.SentWith("npmx charger module recharge set"); len(sent) != 0 {
		t.Errorf("write sent while reboot pending: %q", sent)
	}
	if sent := dev.SentWith("npmx ship mode ship"); len(sent) != 0 {
		t.Errorf("ship sent while reboot pending: %q", sent)
	}
}
