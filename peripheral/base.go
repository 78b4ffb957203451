// Package peripheral implements one module per PMIC peripheral. Each module
// registers persistent matchers that turn confirmed replies into bus
// events, and exposes Get methods (fire and forget queries) and Set methods
// returning a *shell.Future.
package peripheral

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pmicpanel/pmicsync/confirm"
	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/shell"
)

// Module is the lifecycle shared by every peripheral module.
type Module interface {
	Name() string
	// GetAll queries every field of every instance.
	GetAll()
	// Release unregisters matchers and bus subscriptions.
	Release()
}

// Deps are the collaborators handed to every module.
type Deps struct {
	Strategy Strategy
	Registry *shell.Registry
	Bus      *eventbus.Bus
	Gate     *confirm.Gate
	Logger   zerolog.Logger
}

// Base carries the module plumbing.
type Base struct {
	name string
	io   Strategy
	reg  *shell.Registry
	bus  *eventbus.Bus
	gate *confirm.Gate
	log  zerolog.Logger

	mu      sync.Mutex
	handles []shell.Handle
	subs    []*eventbus.Subscription
}

func newBase(name string, d Deps) *Base {
	return &Base{
		name: name,
		io:   d.Strategy,
		reg:  d.Registry,
		bus:  d.Bus,
		gate: d.Gate,
		log:  d.Logger.With().Str("module", name).Logger(),
	}
}

// Name returns the module name.
func (b *Base) Name() string { return b.name }

// Release unregisters matchers and subscriptions.
func (b *Base) Release() {
	b.mu.Lock()
	handles, subs := b.handles, b.subs
	b.handles, b.subs = nil, nil
	b.mu.Unlock()

	for _, h := range handles {
		h.Remove()
	}
	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (b *Base) onCommand(p shell.Pattern, fn func(shell.Match)) {
	h := b.reg.OnCommand(p, fn)
	b.mu.Lock()
	b.handles = append(b.handles, h)
	b.mu.Unlock()
}

func (b *Base) onLine(re *regexp.Regexp, fn func(line string, groups []string)) {
	h := b.reg.OnLine(re, fn)
	b.mu.Lock()
	b.handles = append(b.handles, h)
	b.mu.Unlock()
}

func (b *Base) track(sub *eventbus.Subscription) {
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
}

// action sends a verbless command.
func (b *Base) action(command, echo string, resync ...string) *shell.Future {
	return b.io.Write(Write{Command: command, Echo: echo, Resync: resync})
}

func (b *Base) query(command string) {
	b.io.Query(command, command)
}

// field is one get/set parameter of a peripheral.
type field[V any] struct {
	stem    string
	indexed bool
	codec   shell.Codec[V]
}

func (f field[V]) at(i int) int {
	if !f.indexed {
		return shell.NoIndex
	}
	return i
}

func (f field[V]) getCmd(i int) string {
	return shell.FormatGet(f.stem, f.at(i))
}

// bind decodes every confirmed exchange of f and hands the value to emit.
// Replies that do not decode are logged and dropped.
func bind[V any](b *Base, f field[V], emit func(index int, v V)) {
	b.onCommand(shell.CommandPattern(f.stem, f.indexed), func(m shell.Match) {
		v, err := f.codec.Decode(m.Response)
		if err != nil {
			b.log.Debug().Err(err).Str("cmd", m.Command).Msg("reply did not match field")
			return
		}
		emit(m.Index, v)
	})
}

// check validates v against the codec's table, if it has one.
func (f field[V]) check(v V) error {
	if f.codec.Check == nil {
		return nil
	}
	err := f.codec.Check(v)
	var ve *shell.ValueError
	if errors.As(err, &ve) {
		ve.Field = f.stem
	}
	return err
}

func get[V any](b *Base, f field[V], i int) {
	b.io.Query(f.getCmd(i), shell.Key(f.stem, shell.VerbGet, f.at(i)))
}

// set writes v to f at index i. On failure f and the related gets are
// re-issued before the future rejects.
func set[V any](b *Base, f field[V], i int, v V, related ...string) *shell.Future {
	if err := f.check(v); err != nil {
		return shell.Rejected(err)
	}
	wire := f.codec.Encode(v)
	return b.io.Write(Write{
		Command: shell.FormatSet(f.stem, f.at(i), wire),
		Key:     shell.Key(f.stem, shell.VerbSet, f.at(i)),
		Echo:    wire,
		Resync:  append([]string{f.getCmd(i)}, related...),
	})
}

// Range is an inclusive numeric domain.
type Range struct {
	Min, Max float64
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

func checkRange(name string, v float64, r Range) error {
	if !r.Contains(v) {
		return &shell.RangeError{Field: name, Value: v, Min: r.Min, Max: r.Max}
	}
	return nil
}

func checkIndex(module string, i, count int) error {
	if i < 0 || i >= count {
		return fmt.Errorf("%s %d: %w", module, i, ErrNoSuchInstance)
	}
	return nil
}
