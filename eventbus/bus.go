// Package eventbus is the typed publish/subscribe hub between peripheral
// modules and state consumers. Delivery is synchronous, in subscription
// order, on the emitting goroutine. Late subscribers get no replay.
package eventbus

import (
	"sync"

	"github.com/rs/zerolog"
)

// Name identifies an event.
type Name string

// Event names. Each carries a whole state record, or a Partial of the
// record's patch type for indexed peripherals.
const (
	ChargerUpdate           Name = "onChargerUpdate"
	BuckUpdate              Name = "onBuckUpdate"
	BoostUpdate             Name = "onBoostUpdate"
	LdoUpdate               Name = "onLdoUpdate"
	GpioUpdate              Name = "onGpioUpdate"
	LedUpdate               Name = "onLEDUpdate"
	PofUpdate               Name = "onPOFUpdate"
	ShipUpdate              Name = "onShipUpdate"
	TimerUpdate             Name = "onTimerConfigUpdate"
	UsbCurrentLimiterUpdate Name = "onUsbCurrentLimiterUpdate"
	FuelGaugeUpdate         Name = "onFuelGaugeUpdate"
	OnBoardLoadUpdate       Name = "onOnBoardLoadUpdate"
	ProfileDownloadUpdate   Name = "onProfileDownloadUpdate"
	ProfilingUpdate         Name = "onProfilingUpdate"
	ProfilingSample         Name = "onProfilingSample"
	PmicInfoUpdate          Name = "onPmicInfoUpdate"
	RebootUpdate            Name = "onReboot"
	ConnectionUpdate        Name = "onPmicStateChange"
)

// All lists every event name, in declaration order.
var All = []Name{
	ChargerUpdate, BuckUpdate, BoostUpdate, LdoUpdate, GpioUpdate,
	LedUpdate, PofUpdate, ShipUpdate, TimerUpdate, UsbCurrentLimiterUpdate,
	FuelGaugeUpdate, OnBoardLoadUpdate, ProfileDownloadUpdate,
	ProfilingUpdate, ProfilingSample, PmicInfoUpdate, RebootUpdate,
	ConnectionUpdate,
}

// Partial is the payload of an indexed update. Data is a patch whose nil
// fields leave the stored record untouched.
type Partial struct {
	Index int
	Data  any
}

// Handler receives an event payload.
type Handler func(payload any)

// Subscription is one registered handler.
type Subscription struct {
	name Name
	id   uint64
	fn   Handler
	bus  *Bus
}

// Name returns the subscribed event name.
func (s *Subscription) Name() Name { return s.name }

// Unsubscribe removes the handler. It is safe to call more than once.
func (s *Subscription) Unsubscribe() { s.bus.Unsubscribe(s) }

// Bus dispatches events to subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Name][]*Subscription
	nextID uint64
	closed bool
	log    zerolog.Logger
}

// New creates a bus. One bus is created per device session.
func New(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[Name][]*Subscription),
		log:  log,
	}
}

// Subscribe registers fn for name.
func (b *Bus) Subscribe(name Name, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{name: name, id: b.nextID, fn: fn, bus: b}
	if !b.closed {
		b.subs[name] = append(b.subs[name], sub)
	}
	return sub
}

// Unsubscribe removes sub.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[sub.name]
	for i, s := range list {
		if s.id == sub.id {
			b.subs[sub.name] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Emit delivers a whole-object update.
func (b *Bus) Emit(name Name, payload any) {
	b.mu.RLock()
	list := make([]*Subscription, len(b.subs[name]))
	copy(list, b.subs[name])
	b.mu.RUnlock()

	for _, s := range list {
		b.deliver(s, payload)
	}
}

// EmitPartial delivers a patch for one instance of an indexed peripheral.
func (b *Bus) EmitPartial(name Name, data any, index int) {
	b.Emit(name, Partial{Index: index, Data: data})
}

func (b *Bus) deliver(s *Subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Str("event", string(s.name)).Interface("panic", r).Msg("subscriber panicked")
		}
	}()
	s.fn(payload)
}

// Subscribers returns how many handlers are registered for name.
func (b *Bus) Subscribers(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

// Close drops every subscription. Later emits are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[Name][]*Subscription)
}

// On subscribes a handler typed on the payload. Payloads of another type
// are ignored.
func On[T any](b *Bus, name Name, fn func(T)) *Subscription {
	return b.Subscribe(name, func(payload any) {
		if v, ok := payload.(T); ok {
			fn(v)
		}
	})
}

// OnPartial subscribes a handler for indexed patches of type T.
func OnPartial[T any](b *Bus, name Name, fn func(index int, patch T)) *Subscription {
	return b.Subscribe(name, func(payload any) {
		p, ok := payload.(Partial)
		if !ok {
			return
		}
		if v, ok := p.Data.(T); ok {
			fn(p.Index, v)
		}
	})
}
