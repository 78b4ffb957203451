// =============================================================================
// repl.go - REPL Loop
// =============================================================================
//
// The REPL reads a line, runs it, prints the result, and repeats until .quit
// or end of input. Lines starting with a dot are pmicctl commands handled
// through the session's peripheral modules; every other line is sent to the
// evaluation kit's shell as typed and the reply is printed.
//
// Raw shell lines still go through the session's reply matchers, so typing
// "npmx charger termination_voltage normal set 4200" updates the confirmed
// state exactly like ".set charger vterm 4.2" does.
//
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pmicpanel/pmicsync/peripheral"
	"github.com/pmicpanel/pmicsync/session"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/transport/serialport"
)

// REPL runs commands against one session.
type REPL struct {
	ctx    context.Context
	sess   *session.Session
	in     lineReader
	out    io.Writer
	errOut io.Writer
}

// newREPL creates a REPL reading from in.
func newREPL(ctx context.Context, sess *session.Session, in lineReader, out, errOut io.Writer) *REPL {
	return &REPL{ctx: ctx, sess: sess, in: in, out: out, errOut: errOut}
}

// prompt shows the PMIC model and the connection state.
func (r *REPL) prompt() string {
	model := r.sess.Store().Pmic().Model
	if model == "" {
		model = "no pmic"
	}
	st := "offline"
	if r.sess.Online() {
		st = r.sess.Machine().State().String()
	}
	return fmt.Sprintf("[%s %s] > ", model, st)
}

// run loops until .quit or end of input.
func (r *REPL) run() {
	for {
		line, err := r.in.GetLine(r.prompt())
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.printError(err)
			}
			fmt.Fprintln(r.out)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !r.execute(line) {
			return
		}
	}
}

// GO CONCEPT: Returning a Bool to Control a Loop
// ----------------------------------------------
// execute returns false when the REPL should stop. Go has no exceptions to
// unwind the loop, so the caller checks the result and returns.
//
// Compare with Python: `if not repl.execute(line): break`.

// execute runs one line and reports whether the REPL should continue.
func (r *REPL) execute(line string) bool {
	if !strings.HasPrefix(line, ".") {
		r.raw(line)
		return true
	}

	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch cmd {
	case ".quit", ".exit":
		return false
	case ".help":
		printHelp(r.out, r.errOut, strings.Join(args, " "))
	case ".state":
		err = r.printState(args)
	case ".samples":
		err = r.printSamples(args)
	case ".get":
		err = r.get(args)
	case ".refresh":
		err = r.sess.Refresh()
	case ".identify":
		err = r.sess.Identify(r.ctx)
	case ".ports":
		err = r.printPorts()
	case ".set":
		err = r.set(args)
	case ".ship", ".hibernate", ".reboot", ".profile", ".download", ".storemodel":
		err = r.action(cmd, args)
	default:
		err = fmt.Errorf("unknown command %s, type .help for a list", cmd)
	}
	if err != nil {
		r.printError(err)
	}
	return true
}

// raw sends line to the device shell and prints the reply.
func (r *REPL) raw(line string) {
	reply, err := r.sess.Raw(r.ctx, line)
	if err != nil {
		r.printError(err)
		return
	}
	if reply != "" {
		fmt.Fprintln(r.out, reply)
	}
}

// stateSections maps module names to their .state section.
var stateSections = map[string]string{
	"charger":   "charger",
	"buck":      "bucks",
	"boost":     "boost",
	"ldo":       "ldos",
	"gpio":      "gpios",
	"led":       "leds",
	"pof":       "pof",
	"ship":      "ship",
	"timer":     "timer",
	"usb":       "usbCurrentLimiter",
	"fuelgauge": "fuelGauge",
	"load":      "onBoardLoad",
	"reset":     "pmic",
	"profiling": "profiling",
}

// get re-queries one module and prints its state once the replies are in.
func (r *REPL) get(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: .get <module>", errUsage)
	}
	set := r.sess.Modules()
	if set == nil {
		return session.ErrNotIdentified
	}
	name := strings.ToLower(args[0])
	var found peripheral.Module
	for _, m := range set.Modules() {
		if strings.EqualFold(m.Name(), name) {
			found = m
			break
		}
	}
	if found == nil {
		return fmt.Errorf("%w: %s", errNoModule, args[0])
	}
	found.GetAll()
	if err := r.sess.Sync(r.ctx); err != nil {
		return err
	}
	return r.printState([]string{stateSections[name]})
}

// set translates a .set line and waits for the write to settle.
func (r *REPL) set(args []string) error {
	c, err := parseSet(args)
	if err != nil {
		return err
	}
	if err := r.sess.Writable(); err != nil {
		return err
	}
	write, err := resolveSet(r.sess.Modules(), c)
	if err != nil {
		return err
	}
	return r.wait(write())
}

// action runs one of the multi-step operations.
func (r *REPL) action(cmd string, args []string) error {
	set := r.sess.Modules()
	if set == nil {
		return session.ErrNotIdentified
	}
	if err := r.sess.Writable(); err != nil {
		return err
	}

	var fut *shell.Future
	switch cmd {
	case ".ship":
		fut = set.Ship.EnterShipMode()
	case ".hibernate":
		if len(args) != 1 {
			return fmt.Errorf("%w: .hibernate <wake-ms>", errUsage)
		}
		ms, err := parseInt(args[0])
		if err != nil {
			return err
		}
		fut = set.Ship.EnterHibernate(ms)
	case ".reboot":
		delay := 0
		if len(args) > 0 {
			ms, err := parseInt(args[0])
			if err != nil {
				return err
			}
			delay = ms
		}
		fut = set.Reset.Reboot(delay)
	case ".profile":
		f, err := r.profile(set, args)
		if err != nil {
			return err
		}
		fut = f
	case ".download":
		if len(args) != 1 {
			return fmt.Errorf("%w: .download <profile-file>", errUsage)
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		fut = set.FuelGauge.Download(string(data))
	case ".storemodel":
		fut = set.FuelGauge.StoreModel()
	}
	return r.wait(fut)
}

func (r *REPL) profile(set *peripheral.Set, args []string) (*shell.Future, error) {
	if len(args) == 1 && strings.EqualFold(args[0], "stop") {
		return set.Profiling.Stop(), nil
	}
	if len(args) != 3 || !strings.EqualFold(args[0], "start") {
		return nil, fmt.Errorf("%w: .profile start <load-mA> <period-ms> | .profile stop", errUsage)
	}
	mA, err := parseFloat(args[1])
	if err != nil {
		return nil, err
	}
	ms, err := parseInt(args[2])
	if err != nil {
		return nil, err
	}
	return set.Profiling.Start(mA, ms), nil
}

// wait blocks until fut settles and prints OK on success.
func (r *REPL) wait(fut *shell.Future) error {
	if err := fut.Wait(r.ctx); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "OK")
	return nil
}

// printState dumps the confirmed state as YAML, or one section of it.
func (r *REPL) printState(args []string) error {
	data, err := yaml.Marshal(r.sess.Store().Snapshot())
	if err != nil {
		return err
	}
	if len(args) == 0 {
		_, err = r.out.Write(data)
		return err
	}

	var sections map[string]yaml.Node
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return err
	}
	key := args[0]
	node, ok := sections[key]
	if !ok {
		for k, n := range sections {
			if strings.EqualFold(k, key) {
				key, node, ok = k, n, true
				break
			}
		}
	}
	if !ok {
		return fmt.Errorf("no state section %q", args[0])
	}
	out, err := yaml.Marshal(map[string]*yaml.Node{key: &node})
	if err != nil {
		return err
	}
	_, err = r.out.Write(out)
	return err
}

// printSamples prints the newest profiling samples, ten by default.
func (r *REPL) printSamples(args []string) error {
	n := 10
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return fmt.Errorf("%w: .samples [count]", errUsage)
		}
		n = v
	}
	samples := r.sess.Store().Samples()
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	if len(samples) == 0 {
		fmt.Fprintln(r.out, "No samples")
		return nil
	}
	fmt.Fprintf(r.out, "%12s %8s %8s %8s\n", "time", "vBat", "iBat", "tBat")
	for _, s := range samples {
		fmt.Fprintf(r.out, "%12d %8.3f %8.3f %8.1f\n", s.Timestamp, s.Voltage, s.Current, s.Temperature)
	}
	return nil
}

func (r *REPL) printPorts() error {
	ports, err := serialport.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(r.out, "No serial ports")
	}
	for _, p := range ports {
		fmt.Fprintln(r.out, p)
	}
	return nil
}

func (r *REPL) printError(err error) {
	fmt.Fprintf(r.errOut, "Error: %v\n", err)
}
