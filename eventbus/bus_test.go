package eventbus

import (
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func TestEmitOrder(t *testing.T) {
	b := New(zerolog.Nop())
	var got []string
	b.Subscribe(PofUpdate, func(p any) { got = append(got, "a:"+p.(string)) })
	b.Subscribe(PofUpdate, func(p any) { got = append(got, "b:"+p.(string)) })
	b.Subscribe(ShipUpdate, func(p any) { got = append(got, "ship") })

	b.Emit(PofUpdate, "x")

	want := []string{"a:x", "b:x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNoReplay(t *testing.T) {
	b := New(zerolog.Nop())
	b.Emit(ChargerUpdate, 1)

	calls := 0
	b.Subscribe(ChargerUpdate, func(any) { calls++ })
	if calls != 0 {
		t.Errorf("late subscriber received %d events", calls)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New(zerolog.Nop())
	calls := 0
	sub := b.Subscribe(LedUpdate, func(any) { calls++ })
	b.Emit(LedUpdate, nil)
	sub.Unsubscribe()
	sub.Unsubscribe()
	b.Emit(LedUpdate, nil)

	if calls != 1 {
		t.Errorf("got %d calls, want 1", calls)
	}
	if n := b.Subscribers(LedUpdate); n != 0 {
		t.Errorf("got %d subscribers, want 0", n)
	}
}

func TestPanickingSubscriber(t *testing.T) {
	b := New(zerolog.Nop())
	reached := false
	b.Subscribe(TimerUpdate, func(any) { panic("boom") })
	b.Subscribe(TimerUpdate, func(any) { reached = true })

	b.Emit(TimerUpdate, nil)
	if !reached {
		t.Error("panic stopped delivery to later subscribers")
	}
}

func TestTypedHelpers(t *testing.T) {
	type patch struct{ V int }
	b := New(zerolog.Nop())

	var whole []int
	On(b, BoostUpdate, func(v int) { whole = append(whole, v) })
	b.Emit(BoostUpdate, 3)
	b.Emit(BoostUpdate, "wrong type")

	var idx []int
	OnPartial(b, BuckUpdate, func(i int, p patch) { idx = append(idx, i*10+p.V) })
	b.EmitPartial(BuckUpdate, patch{V: 2}, 1)
	b.Emit(BuckUpdate, patch{V: 9})

	if !reflect.DeepEqual(whole, []int{3}) {
		t.Errorf("On: got %v", whole)
	}
	if !reflect.DeepEqual(idx, []int{12}) {
		t.Errorf("OnPartial: got %v", idx)
	}
}

func TestClose(t *testing.T) {
	b := New(zerolog.Nop())
	calls := 0
	b.Subscribe(GpioUpdate, func(any) { calls++ })
	b.Close()
	b.Emit(GpioUpdate, nil)
	b.Subscribe(GpioUpdate, func(any) { calls++ })
	b.Emit(GpioUpdate, nil)
	if calls != 0 {
		t.Errorf("got %d calls after close", calls)
	}
}
