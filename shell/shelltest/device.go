// Package shelltest provides a scripted in-memory evaluation kit for tests.
//
// A Device implements shell.Transport. By default it behaves like firmware
// with a flat register file: "<stem> set [i] <v>" stores v and answers
// "Success: v", "<stem> get [i]" answers "Value: v" (0 when never set) and
// any other command answers "Success:". Tests override individual commands
// with Handle, Fail and Drop.
package shelltest

import (
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pmicpanel/pmicsync/shell"
)

// Reply computes the lines sent back for a command. A nil result means the
// device stays silent.
type Reply func(cmd string) []string

type handler struct {
	prefix string
	fn     Reply
}

// Device is a fake firmware shell.
type Device struct {
	mu       sync.Mutex
	lines    chan string
	closed   bool
	regs     map[string]string
	handlers []handler
	sent     []string
	echo     bool
	prompt   bool
	sendErr  error
}

// New creates a device with an empty register file.
func New() *Device {
	return &Device{
		lines: make(chan string, 4096),
		regs:  make(map[string]string),
	}
}

// SetEcho makes the device echo every command before its reply.
func (d *Device) SetEcho(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.echo = on
}

// SetPrompt makes the device print the shell prompt in front of replies.
func (d *Device) SetPrompt(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prompt = on
}

// FailWrites makes SendLine return err. A nil err restores writes.
func (d *Device) FailWrites(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sendErr = err
}

// Handle overrides the reply for commands starting with prefix. The most
// recent matching handler wins.
func (d *Device) Handle(prefix string, fn Reply) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, handler{prefix: prefix, fn: fn})
}

// Fail rejects commands starting with prefix with "Error: msg".
func (d *Device) Fail(prefix, msg string) {
	d.Handle(prefix, func(string) []string { return []string{shell.ErrorPrefix + " " + msg} })
}

// Drop makes the device ignore commands starting with prefix.
func (d *Device) Drop(prefix string) {
	d.Handle(prefix, func(string) []string { return nil })
}

// Preset stores a register value without a command.
func (d *Device) Preset(stem string, index int, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regs[regKey(stem, index)] = value
}

// Value returns a register value.
func (d *Device) Value(stem string, index int) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.regs[regKey(stem, index)]
	return v, ok
}

// Emit pushes an unsolicited line.
func (d *Device) Emit(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.push(line)
}

// Disconnect closes the line stream as a lost link would.
func (d *Device) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.lines)
	}
}

// Sent returns a copy of every command received, in order.
func (d *Device) Sent() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.sent))
	copy(out, d.sent)
	return out
}

// SentWith returns the received commands starting with prefix.
func (d *Device) SentWith(prefix string) []string {
	var out []string
	for _, s := range d.Sent() {
		if strings.HasPrefix(s, prefix) {
			out = append(out, s)
		}
	}
	return out
}

// WaitSent waits until at least n commands were received.
func (d *Device) WaitSent(t testing.TB, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		got := len(d.sent)
		d.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("device received %d commands, want %d", len(d.Sent()), n)
}

// SendLine implements shell.Transport.
func (d *Device) SendLine(line string) error {
	d.mu.Lock()
	if d.sendErr != nil {
		err := d.sendErr
		d.mu.Unlock()
		return err
	}
	d.sent = append(d.sent, line)
	var fn Reply
	for i := len(d.handlers) - 1; i >= 0; i-- {
		if strings.HasPrefix(line, d.handlers[i].prefix) {
			fn = d.handlers[i].fn
			break
		}
	}
	d.mu.Unlock()

	var reply []string
	if fn != nil {
		reply = fn(line)
	} else {
		reply = d.respond(line)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if reply == nil {
		return nil
	}
	if d.echo {
		d.push(line)
	}
	for i, r := range reply {
		if i == 0 && d.prompt {
			r = shell.Prompt + r
		}
		d.push(r)
	}
	return nil
}

// Lines implements shell.Transport.
func (d *Device) Lines() <-chan string { return d.lines }

// Close implements shell.Transport.
func (d *Device) Close() error {
	d.Disconnect()
	return nil
}

func (d *Device) push(line string) {
	if !d.closed {
		d.lines <- line
	}
}

// respond is the default register-file behaviour.
func (d *Device) respond(line string) []string {
	stem, verb, rest := splitCommand(line)
	d.mu.Lock()
	defer d.mu.Unlock()

	switch verb {
	case shell.VerbGet:
		v, ok := d.regs[stem+"|"+rest]
		if !ok {
			v = "0"
		}
		return []string{shell.ValuePrefix + " " + v}
	case shell.VerbSet:
		index, value := "", rest
		if first, remainder, ok := strings.Cut(rest, " "); ok && isDigits(first) {
			index, value = first, remainder
		}
		d.regs[stem+"|"+index] = value
		return []string{shell.SuccessPrefix + " " + value}
	default:
		return []string{shell.SuccessPrefix}
	}
}

func splitCommand(line string) (stem, verb, rest string) {
	fields := strings.Fields(line)
	for i, f := range fields {
		if f == shell.VerbGet || f == shell.VerbSet {
			return strings.Join(fields[:i], " "), f, strings.Join(fields[i+1:], " ")
		}
	}
	return line, "", ""
}

func regKey(stem string, index int) string {
	if index == shell.NoIndex {
		return stem + "|"
	}
	return stem + "|" + strconv.Itoa(index)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
