package peripheral_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pmicpanel/pmicsync/confirm"
	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/peripheral"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/shell/shelltest"
	"github.com/pmicpanel/pmicsync/state"
)

// rig wires a module set to a fake kit through a live channel.
type rig struct {
	dev   *shelltest.Device
	ch    *shell.Channel
	bus   *eventbus.Bus
	store *state.Store
	set   *peripheral.Set
}

func layout(t *testing.T, m peripheral.Model) peripheral.Layout {
	t.Helper()
	l, err := peripheral.LayoutFor(m)
	if err != nil {
		t.Fatalf("LayoutFor(%q): %v", m, err)
	}
	return l
}

func newOnline(t *testing.T, m peripheral.Model, gate *confirm.Gate) *rig {
	t.Helper()
	dev := shelltest.New()
	reg := shell.NewRegistry()
	ch := shell.NewChannel(dev, reg, shell.WithTimeout(500*time.Millisecond))
	ch.Start(context.Background())
	t.Cleanup(func() { ch.Close() })

	bus := eventbus.New(zerolog.Nop())
	store := state.NewStore()
	store.Attach(bus)

	set := peripheral.Build(peripheral.Deps{
		Strategy: peripheral.NewOnline(ch, zerolog.Nop()),
		Registry: reg,
		Bus:      bus,
		Gate:     gate,
		Logger:   zerolog.Nop(),
	}, layout(t, m))
	t.Cleanup(set.Release)
	return &rig{dev: dev, ch: ch, bus: bus, store: store, set: set}
}

func newOffline(t *testing.T, m peripheral.Model) *rig {
	t.Helper()
	reg := shell.NewRegistry()
	bus := eventbus.New(zerolog.Nop())
	store := state.NewStore()
	store.Attach(bus)

	set := peripheral.Build(peripheral.Deps{
		Strategy: peripheral.NewOffline(reg),
		Registry: reg,
		Bus:      bus,
		Logger:   zerolog.Nop(),
	}, layout(t, m))
	t.Cleanup(set.Release)
	return &rig{bus: bus, store: store, set: set}
}

// barrier waits until every command queued so far has settled.
func (r *rig) barrier(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := r.ch.Do(ctx, "barrier"); err != nil {
		t.Fatalf("barrier: %v", err)
	}
}

// sentSince returns the commands the kit received after the first n,
// without barrier commands.
func (r *rig) sentSince(n int) []string {
	var out []string
	for _, s := range r.dev.Sent()[n:] {
		if s != "barrier" {
			out = append(out, s)
		}
	}
	return out
}

func wait(t *testing.T, f *shell.Future) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	select {
	case <-f.Done():
		return f.Err()
	case <-ctx.Done():
		t.Fatal("future never settled")
		return nil
	}
}
