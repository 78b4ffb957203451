package shell_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/shell/shelltest"
)

func startChannel(t *testing.T, dev *shelltest.Device, opts ...shell.Option) *shell.Channel {
	t.Helper()
	ch := shell.NewChannel(dev, shell.NewRegistry(), opts...)
	ch.Start(context.Background())
	t.Cleanup(func() { ch.Close() })
	return ch
}

// result collects the outcome of one command.
type result struct {
	reply string
	err   error
	done  chan struct{}
}

func track(cmd *shell.Command) (*shell.Command, *result) {
	r := &result{done: make(chan struct{})}
	cmd.OnSuccess = func(reply string) { r.reply = reply; close(r.done) }
	cmd.OnError = func(err error) { r.err = err; close(r.done) }
	return cmd, r
}

func (r *result) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("command never settled")
	}
}

func TestChannelRoundTrip(t *testing.T) {
	dev := shelltest.New()
	dev.SetEcho(true)
	dev.SetPrompt(true)
	ch := startChannel(t, dev)

	cmd, r := track(shell.NewWrite("npmx charger charging_current", shell.NoIndex, "400"))
	ch.Enqueue(cmd)
	r.wait(t)

	if r.err != nil {
		t.Fatalf("unexpected error: %v", r.err)
	}
	if r.reply != "Success: 400" {
		t.Errorf("got %q, want %q", r.reply, "Success: 400")
	}

	reply, err := ch.Do(context.Background(), "npmx charger charging_current get")
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if reply != "Value: 400" {
		t.Errorf("got %q, want %q", reply, "Value: 400")
	}
}

func TestChannelRejection(t *testing.T) {
	dev := shelltest.New()
	dev.Fail("npmx ldsw mode", "Wrong parameter value.")
	ch := startChannel(t, dev)

	cmd, r := track(shell.NewWrite("npmx ldsw mode", 0, "1"))
	ch.Enqueue(cmd)
	r.wait(t)

	var dr *shell.DeviceRejection
	if !errors.As(r.err, &dr) {
		t.Fatalf("got %v, want DeviceRejection", r.err)
	}
	if dr.Message != "Wrong parameter value." {
		t.Errorf("message: got %q", dr.Message)
	}
	if dr.Command != "npmx ldsw mode set 0 1" {
		t.Errorf("command: got %q", dr.Command)
	}
}

// TestChannelOneInFlight checks that the next line is written only after the
// previous one settled.
func TestChannelOneInFlight(t *testing.T) {
	dev := shelltest.New()
	release := make(chan struct{})
	dev.Handle("slow", func(string) []string {
		go func() {
			<-release
			dev.Emit("Success: done")
		}()
		return []string{}
	})
	ch := startChannel(t, dev)

	first, r1 := track(shell.NewRaw("slow one"))
	second, r2 := track(shell.NewRaw("fast two"))
	ch.Enqueue(first)
	ch.Enqueue(second)

	dev.WaitSent(t, 1)
	time.Sleep(20 * time.Millisecond)
	if got := dev.Sent(); len(got) != 1 {
		t.Fatalf("sent %v while first command was pending", got)
	}

	close(release)
	r1.wait(t)
	r2.wait(t)
	want := []string{"slow one", "fast two"}
	if got := dev.Sent(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestChannelUniqueSupersession(t *testing.T) {
	dev := shelltest.New()
	release := make(chan struct{})
	dev.Handle("block", func(string) []string {
		go func() {
			<-release
			dev.Emit("Success:")
		}()
		return []string{}
	})
	ch := startChannel(t, dev)

	blocker, rb := track(shell.NewRaw("block"))
	ch.Enqueue(blocker)
	dev.WaitSent(t, 1)

	var superseded []string
	var results []*result
	for _, v := range []string{"1", "2", "3"} {
		v := v
		cmd, r := track(shell.NewWrite("npmx pof threshold", shell.NoIndex, v))
		cmd.OnSuperseded = func() { superseded = append(superseded, v) }
		results = append(results, r)
		ch.Enqueue(cmd)
	}
	if ch.Pending() != 1 {
		t.Errorf("pending: got %d, want 1", ch.Pending())
	}
	if !reflect.DeepEqual(superseded, []string{"1", "2"}) {
		t.Errorf("superseded: got %v", superseded)
	}

	close(release)
	rb.wait(t)
	results[2].wait(t)

	if got := dev.SentWith("npmx pof threshold"); !reflect.DeepEqual(got, []string{"npmx pof threshold set 3"}) {
		t.Errorf("sent %v", got)
	}
	for i, r := range results[:2] {
		select {
		case <-r.done:
			t.Errorf("superseded command %d settled", i+1)
		default:
		}
	}
}

func TestChannelNonUniqueQueues(t *testing.T) {
	dev := shelltest.New()
	ch := startChannel(t, dev)

	for i := 0; i < 3; i++ {
		ch.Enqueue(shell.NewRaw("npmx pof threshold get"))
	}
	if _, err := ch.Do(context.Background(), "sync"); err != nil {
		t.Fatal(err)
	}
	if got := len(dev.SentWith("npmx pof threshold get")); got != 3 {
		t.Errorf("got %d gets, want 3", got)
	}
}

func TestChannelTimeout(t *testing.T) {
	dev := shelltest.New()
	dev.SetEcho(true)
	dev.Drop("npmx timer")
	ch := startChannel(t, dev, shell.WithTimeout(20*time.Millisecond))

	cmd, r := track(shell.NewQuery("npmx timer config mode", shell.NoIndex))
	ch.Enqueue(cmd)
	r.wait(t)

	if !errors.Is(r.err, shell.ErrTimeout) {
		t.Fatalf("got %v, want ErrTimeout", r.err)
	}
	var te *shell.TransportError
	if !errors.As(r.err, &te) {
		t.Errorf("timeout is not a TransportError: %T", r.err)
	}

	// The channel keeps working after a timeout.
	if _, err := ch.Do(context.Background(), "npmx pof status get"); err != nil {
		t.Errorf("after timeout: %v", err)
	}
}

// A reply that arrives after its command timed out must not settle the
// next command or reach that command's matchers.
func TestChannelLateReplyAfterTimeout(t *testing.T) {
	const stem = "npmx buck voltage normal"
	for _, echo := range []bool{false, true} {
		t.Run(fmt.Sprintf("echo=%v", echo), func(t *testing.T) {
			dev := shelltest.New()
			dev.SetEcho(echo)
			dev.Drop(stem + " get")
			dev.Handle(stem+" set", func(string) []string {
				dev.Emit("Value: 1800 mV")
				return []string{"Success: 3000 mV"}
			})
			ch := startChannel(t, dev, shell.WithTimeout(50*time.Millisecond))

			var matches []shell.Match
			ch.Registry().OnCommand(shell.CommandPattern(stem, true), func(m shell.Match) {
				matches = append(matches, m)
			})

			get, r1 := track(shell.NewQuery(stem, 0))
			ch.Enqueue(get)
			r1.wait(t)
			if !errors.Is(r1.err, shell.ErrTimeout) {
				t.Fatalf("get: got %v, want ErrTimeout", r1.err)
			}

			set, r2 := track(shell.NewWrite(stem, 1, "3000"))
			ch.Enqueue(set)
			r2.wait(t)
			if r2.err != nil {
				t.Fatalf("set: %v", r2.err)
			}
			if r2.reply != "Success: 3000 mV" {
				t.Errorf("got %q, want %q", r2.reply, "Success: 3000 mV")
			}
			if len(matches) != 1 || matches[0].Response != "Success: 3000 mV" || matches[0].Index != 1 {
				t.Errorf("matcher saw %+v", matches)
			}
		})
	}
}

// Without an echo a device that never answers the timed-out command costs
// one more command, then the channel is back in step.
func TestChannelTimeoutWithoutEchoRecovers(t *testing.T) {
	dev := shelltest.New()
	dev.Drop("npmx timer")
	ch := startChannel(t, dev, shell.WithTimeout(20*time.Millisecond))

	if _, err := ch.Do(context.Background(), "npmx timer config mode get"); !errors.Is(err, shell.ErrTimeout) {
		t.Fatalf("got %v, want ErrTimeout", err)
	}
	if _, err := ch.Do(context.Background(), "npmx pof status get"); !errors.Is(err, shell.ErrTimeout) {
		t.Fatalf("reply taken as the late one: got %v, want ErrTimeout", err)
	}
	reply, err := ch.Do(context.Background(), "npmx pof status get")
	if err != nil {
		t.Fatalf("after recovery: %v", err)
	}
	if reply != "Value: 0" {
		t.Errorf("got %q, want %q", reply, "Value: 0")
	}
}

func TestChannelDisconnect(t *testing.T) {
	dev := shelltest.New()
	dev.Drop("hang")
	disconnected := make(chan error, 1)
	ch := startChannel(t, dev, shell.WithDisconnectHandler(func(err error) { disconnected <- err }))

	pending, r1 := track(shell.NewRaw("hang"))
	queued, r2 := track(shell.NewRaw("npmx pof status get"))
	ch.Enqueue(pending)
	dev.WaitSent(t, 1)
	ch.Enqueue(queued)
	dev.Disconnect()

	r1.wait(t)
	r2.wait(t)
	for _, err := range []error{r1.err, r2.err} {
		if !errors.Is(err, shell.ErrDisconnected) {
			t.Errorf("got %v, want ErrDisconnected", err)
		}
	}
	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Error("disconnect handler not called")
	}

	late, r3 := track(shell.NewRaw("npmx pof status get"))
	ch.Enqueue(late)
	r3.wait(t)
	if !errors.Is(r3.err, shell.ErrDisconnected) {
		t.Errorf("enqueue after disconnect: got %v", r3.err)
	}
}

func TestChannelClose(t *testing.T) {
	dev := shelltest.New()
	dev.Drop("hang")
	ch := shell.NewChannel(dev, nil)
	ch.Start(context.Background())

	pending, r := track(shell.NewRaw("hang"))
	ch.Enqueue(pending)
	dev.WaitSent(t, 1)

	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	r.wait(t)
	if !errors.Is(r.err, shell.ErrClosed) {
		t.Errorf("got %v, want ErrClosed", r.err)
	}
	if err := ch.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestChannelWriteFailure(t *testing.T) {
	dev := shelltest.New()
	boom := errors.New("port gone")
	dev.FailWrites(boom)
	ch := startChannel(t, dev)

	cmd, r := track(shell.NewRaw("npmx pof status get"))
	ch.Enqueue(cmd)
	r.wait(t)
	if !errors.Is(r.err, boom) {
		t.Errorf("got %v, want %v", r.err, boom)
	}
}

// TestChannelMatchersBeforeCallback checks that persistent matchers observe
// a reply before the issuing command's own callback.
func TestChannelMatchersBeforeCallback(t *testing.T) {
	dev := shelltest.New()
	ch := startChannel(t, dev)

	var order []string
	ch.Registry().OnCommand(shell.CommandPattern("npmx pof status", false), func(m shell.Match) {
		order = append(order, "matcher "+m.Args)
	})

	cmd, r := track(shell.NewWrite("npmx pof status", shell.NoIndex, "1"))
	inner := cmd.OnSuccess
	cmd.OnSuccess = func(reply string) {
		order = append(order, "callback")
		inner(reply)
	}
	ch.Enqueue(cmd)
	r.wait(t)

	want := []string{"matcher 1", "callback"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("got %v, want %v", order, want)
	}
}

func TestChannelUnsolicitedLines(t *testing.T) {
	dev := shelltest.New()
	dev.Handle("fuel_gauge model list", func(string) []string {
		return []string{`"LP803448"`, `"LP502030"`, "Success:"}
	})
	ch := startChannel(t, dev)

	var mu sync.Mutex
	var boots int
	ch.Registry().OnLine(regexp.MustCompile(`^\*\*\* Booting`), func(string, []string) {
		mu.Lock()
		boots++
		mu.Unlock()
	})

	dev.Emit("*** Booting nRF Connect SDK v2.6.0 ***")
	reply, err := ch.Do(context.Background(), "fuel_gauge model list")
	if err != nil {
		t.Fatal(err)
	}
	if got := shell.ParseQuotedAll(reply); !reflect.DeepEqual(got, []string{"LP803448", "LP502030"}) {
		t.Errorf("listing: got %v", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if boots != 1 {
		t.Errorf("boot banners: got %d, want 1", boots)
	}
}

func TestChannelLineTooLong(t *testing.T) {
	ch := startChannel(t, shelltest.New())
	long := make([]byte, shell.MaxLineLength+1)
	for i := range long {
		long[i] = 'x'
	}
	cmd, r := track(shell.NewRaw(string(long)))
	ch.Enqueue(cmd)
	r.wait(t)
	if !errors.Is(r.err, shell.ErrLineTooLong) {
		t.Errorf("got %v, want ErrLineTooLong", r.err)
	}
}
