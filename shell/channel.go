package shell

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DisconnectHandler is called once when the transport closes its line
// stream.
type DisconnectHandler func(err error)

// Option configures a Channel.
type Option func(*Channel)

// WithTimeout sets how long a command may stay unanswered.
func WithTimeout(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the channel logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Channel) { c.log = log }
}

// WithDisconnectHandler sets the callback for link loss.
func WithDisconnectHandler(h DisconnectHandler) Option {
	return func(c *Channel) { c.onDisconnect = h }
}

// Channel serializes commands over a Transport. Exactly one command is in
// flight at a time; the next line is written only after the previous one
// was answered, rejected or timed out.
//
// Thread Safety:
// Enqueue may be called from any goroutine. Result callbacks and registry
// matchers run on the pump goroutine. OnSuperseded runs on the goroutine
// that enqueued the replacing command.
type Channel struct {
	transport    Transport
	reg          *Registry
	log          zerolog.Logger
	timeout      time.Duration
	onDisconnect DisconnectHandler

	mu       sync.Mutex
	queue    []*Command
	closed   bool
	closeErr error
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}

	closeOnce sync.Once

	wake chan struct{}
}

// NewChannel creates a channel. Call Start to begin pumping.
func NewChannel(t Transport, reg *Registry, opts ...Option) *Channel {
	if reg == nil {
		reg = NewRegistry()
	}
	c := &Channel{
		transport: t,
		reg:       reg,
		log:       zerolog.Nop(),
		timeout:   CommandTimeout,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the matcher registry the channel dispatches to.
func (c *Channel) Registry() *Registry { return c.reg }

// Start launches the pump goroutine. It stops when ctx is done, Close is
// called, or the transport disconnects.
func (c *Channel) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	go c.run(ctx)
}

// Enqueue queues cmd. It never blocks. A unique command replaces an unsent
// unique command with the same stem.
func (c *Channel) Enqueue(cmd *Command) {
	if len(cmd.Text) > MaxLineLength {
		cmd.fail(NewTransportError("write", ErrLineTooLong))
		return
	}

	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		cmd.fail(err)
		return
	}

	var superseded *Command
	if cmd.Unique {
		key := cmd.key()
		for i, q := range c.queue {
			if q.Unique && q.key() == key {
				superseded = q
				c.queue = append(c.queue[:i:i], c.queue[i+1:]...)
				break
			}
		}
	}
	c.queue = append(c.queue, cmd)
	c.mu.Unlock()

	if superseded != nil {
		c.log.Debug().Str("cmd", superseded.Text).Str("stem", superseded.key()).Msg("command superseded")
		superseded.supersede()
	}

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Do enqueues a plain command and waits for its reply.
func (c *Channel) Do(ctx context.Context, text string) (string, error) {
	type result struct {
		reply string
		err   error
	}
	res := make(chan result, 1)
	c.Enqueue(&Command{
		Text:      text,
		OnSuccess: func(reply string) { res <- result{reply: reply} },
		OnError:   func(err error) { res <- result{err: err} },
	})
	select {
	case r := <-res:
		return r.reply, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Pending returns the number of queued, unsent commands.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Close stops the pump, fails every outstanding command with ErrClosed and
// closes the transport.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		started, cancel := c.started, c.cancel
		c.started = true
		c.mu.Unlock()

		if started {
			cancel()
			<-c.done
		} else {
			c.failQueued(nil, NewTransportError("close", ErrClosed))
			close(c.done)
		}
		err = c.transport.Close()
	})
	return err
}

// Done is closed when the pump goroutine exits.
func (c *Channel) Done() <-chan struct{} { return c.done }

func (c *Channel) next() *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil
	}
	cmd := c.queue[0]
	c.queue = c.queue[1:]
	return cmd
}

// failQueued marks the channel closed and fails pending and every queued
// command with err.
func (c *Channel) failQueued(pending *Command, err error) {
	c.mu.Lock()
	c.closed = true
	c.closeErr = err
	queued := c.queue
	c.queue = nil
	c.mu.Unlock()

	if pending != nil {
		pending.fail(err)
	}
	for _, q := range queued {
		q.fail(err)
	}
}

// run is the pump. It owns the pending command.
func (c *Channel) run(ctx context.Context) {
	defer close(c.done)

	// owed counts timed-out commands whose reply may still arrive. Their
	// terminal lines are dropped until the pending command's echo shows up.
	// dropped records that the pending command already paid off that debt,
	// so its own timeout does not start a new one.
	var (
		pending   *Command
		collected []string
		timer     *time.Timer
		timeout   <-chan time.Time
		owed      int
		echoed    bool
		dropped   bool
	)
	settle := func() *Command {
		cmd := pending
		pending = nil
		collected = nil
		echoed = false
		dropped = false
		if timer != nil {
			timer.Stop()
			timer = nil
		}
		timeout = nil
		return cmd
	}
	lines := c.transport.Lines()

	for {
		for pending == nil {
			cmd := c.next()
			if cmd == nil {
				break
			}
			if err := c.transport.SendLine(cmd.Text); err != nil {
				c.log.Error().Err(err).Str("cmd", cmd.Text).Msg("write failed")
				cmd.fail(NewTransportError("write", err))
				continue
			}
			pending = cmd
			timer = time.NewTimer(c.timeout)
			timeout = timer.C
		}

		select {
		case <-ctx.Done():
			c.failQueued(settle(), NewTransportError("close", ErrClosed))
			return

		case <-c.wake:

		case <-timeout:
			if dropped {
				owed = 0
			} else {
				owed++
			}
			cmd := settle()
			c.log.Warn().Str("cmd", cmd.Text).Dur("timeout", c.timeout).Msg("command timed out")
			cmd.fail(NewTransportError("read", ErrTimeout))

		case raw, ok := <-lines:
			if !ok {
				err := NewTransportError("read", ErrDisconnected)
				c.log.Error().Msg("transport disconnected")
				c.failQueued(settle(), err)
				if c.onDisconnect != nil {
					c.onDisconnect(err)
				}
				return
			}
			line := ClassifyLine(raw)
			switch {
			case line.Type == LineEmpty:
			case pending != nil && IsEcho(line, pending.Text):
				echoed = true
				owed = 0
			case pending != nil && line.IsTerminal() && owed > 0 && !echoed:
				owed--
				dropped = true
				collected = nil
				c.log.Debug().Str("line", line.Text).Str("cmd", pending.Text).Msg("late reply to a timed-out command dropped")
			case pending != nil && line.IsTerminal():
				reply := strings.Join(append(collected, line.Text), "\n")
				cmd := settle()
				if line.Type == LineError {
					c.log.Warn().Str("cmd", cmd.Text).Str("reply", line.Data).Msg("command rejected")
					cmd.fail(&DeviceRejection{Command: cmd.Text, Message: line.Data})
					continue
				}
				c.reg.DispatchCommand(cmd.Text, reply)
				cmd.succeed(reply)
			case line.IsTerminal():
				if owed > 0 {
					owed--
				}
				c.log.Debug().Str("line", line.Text).Msg("reply without pending command")
			default:
				if pending != nil {
					collected = append(collected, line.Text)
				}
				c.reg.DispatchLine(line.Text)
			}
		}
	}
}
