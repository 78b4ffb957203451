package state

import (
	"maps"
	"sync"

	"github.com/pmicpanel/pmicsync/eventbus"
)

// MaxSamples bounds the profiling samples kept in memory.
const MaxSamples = 1024

// Indexed holds the records of a multi-instance peripheral by index.
type Indexed[T any] map[int]T

// Merge applies fn to the record at index, creating it if absent.
func (m Indexed[T]) Merge(index int, fn func(*T)) {
	rec := m[index]
	fn(&rec)
	m[index] = rec
}

// Patch is a partial update of T.
type Patch[T any] interface {
	Apply(*T)
}

// Snapshot is a copy of the whole store.
type Snapshot struct {
	Connection        string            `json:"connection" yaml:"connection"`
	Pmic              PmicInfo          `json:"pmic" yaml:"pmic"`
	Charger           Charger           `json:"charger" yaml:"charger"`
	Bucks             Indexed[Buck]     `json:"bucks,omitempty" yaml:"bucks,omitempty"`
	Boost             Boost             `json:"boost" yaml:"boost"`
	Ldos              Indexed[Ldo]      `json:"ldos,omitempty" yaml:"ldos,omitempty"`
	Gpios             Indexed[Gpio]     `json:"gpios,omitempty" yaml:"gpios,omitempty"`
	Leds              Indexed[Led]      `json:"leds,omitempty" yaml:"leds,omitempty"`
	Pof               Pof               `json:"pof" yaml:"pof"`
	Ship              Ship              `json:"ship" yaml:"ship"`
	Timer             Timer             `json:"timer" yaml:"timer"`
	UsbCurrentLimiter UsbCurrentLimiter `json:"usbCurrentLimiter" yaml:"usbCurrentLimiter"`
	FuelGauge         FuelGauge         `json:"fuelGauge" yaml:"fuelGauge"`
	OnBoardLoad       OnBoardLoad       `json:"onBoardLoad" yaml:"onBoardLoad"`
	ProfileDownload   ProfileDownload   `json:"profileDownload" yaml:"profileDownload"`
	Profiling         Profiling         `json:"profiling" yaml:"profiling"`
	Reboot            Reboot            `json:"reboot" yaml:"reboot"`
	Samples           int               `json:"samples" yaml:"samples"`
}

// Store is the confirmed device state. It is only written by bus events.
type Store struct {
	mu      sync.RWMutex
	snap    Snapshot
	samples []ProfilingSample
	subs    []*eventbus.Subscription
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		snap: Snapshot{
			Bucks: make(Indexed[Buck]),
			Ldos:  make(Indexed[Ldo]),
			Gpios: make(Indexed[Gpio]),
			Leds:  make(Indexed[Led]),
			ProfileDownload: ProfileDownload{
				State: DownloadIdle,
			},
		},
	}
}

func single[T any, P Patch[T]](s *Store, b *eventbus.Bus, name eventbus.Name, rec *T) *eventbus.Subscription {
	return b.Subscribe(name, func(payload any) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch v := payload.(type) {
		case T:
			*rec = v
		case P:
			v.Apply(rec)
		}
	})
}

func indexed[T any, P Patch[T]](s *Store, b *eventbus.Bus, name eventbus.Name, m Indexed[T]) *eventbus.Subscription {
	return b.Subscribe(name, func(payload any) {
		p, ok := payload.(eventbus.Partial)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		switch v := p.Data.(type) {
		case T:
			m[p.Index] = v
		case P:
			m.Merge(p.Index, v.Apply)
		}
	})
}

func whole[T any](s *Store, b *eventbus.Bus, name eventbus.Name, fn func(T)) *eventbus.Subscription {
	return b.Subscribe(name, func(payload any) {
		v, ok := payload.(T)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		fn(v)
	})
}

// Attach subscribes the store to every state event on b.
func (s *Store) Attach(b *eventbus.Bus) {
	sn := &s.snap
	subs := []*eventbus.Subscription{
		single[Charger, ChargerPatch](s, b, eventbus.ChargerUpdate, &sn.Charger),
		indexed[Buck, BuckPatch](s, b, eventbus.BuckUpdate, sn.Bucks),
		single[Boost, BoostPatch](s, b, eventbus.BoostUpdate, &sn.Boost),
		indexed[Ldo, LdoPatch](s, b, eventbus.LdoUpdate, sn.Ldos),
		indexed[Gpio, GpioPatch](s, b, eventbus.GpioUpdate, sn.Gpios),
		indexed[Led, LedPatch](s, b, eventbus.LedUpdate, sn.Leds),
		single[Pof, PofPatch](s, b, eventbus.PofUpdate, &sn.Pof),
		single[Ship, ShipPatch](s, b, eventbus.ShipUpdate, &sn.Ship),
		single[Timer, TimerPatch](s, b, eventbus.TimerUpdate, &sn.Timer),
		single[UsbCurrentLimiter, UsbCurrentLimiterPatch](s, b, eventbus.UsbCurrentLimiterUpdate, &sn.UsbCurrentLimiter),
		single[FuelGauge, FuelGaugePatch](s, b, eventbus.FuelGaugeUpdate, &sn.FuelGauge),
		single[OnBoardLoad, OnBoardLoadPatch](s, b, eventbus.OnBoardLoadUpdate, &sn.OnBoardLoad),
		single[Profiling, ProfilingPatch](s, b, eventbus.ProfilingUpdate, &sn.Profiling),
		single[PmicInfo, PmicInfoPatch](s, b, eventbus.PmicInfoUpdate, &sn.Pmic),
		whole(s, b, eventbus.ProfileDownloadUpdate, func(v ProfileDownload) { sn.ProfileDownload = v }),
		whole(s, b, eventbus.RebootUpdate, func(v Reboot) { sn.Reboot = v }),
		whole(s, b, eventbus.ConnectionUpdate, func(v Connection) { sn.Connection = v.State }),
		whole(s, b, eventbus.ProfilingSample, func(v ProfilingSample) {
			s.samples = append(s.samples, v)
			if len(s.samples) > MaxSamples {
				s.samples = s.samples[len(s.samples)-MaxSamples:]
			}
		}),
	}

	s.mu.Lock()
	s.subs = append(s.subs, subs...)
	s.mu.Unlock()
}

// Detach drops every subscription made by Attach.
func (s *Store) Detach() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// Charger returns the charger record.
func (s *Store) Charger() Charger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Charger
}

// Buck returns the buck at index.
func (s *Store) Buck(index int) (Buck, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.snap.Bucks[index]
	return b, ok
}

// Ldo returns the LDO at index.
func (s *Store) Ldo(index int) (Ldo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.snap.Ldos[index]
	return l, ok
}

// Gpio returns the GPIO at index.
func (s *Store) Gpio(index int) (Gpio, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.snap.Gpios[index]
	return g, ok
}

// Led returns the LED at index.
func (s *Store) Led(index int) (Led, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.snap.Leds[index]
	return l, ok
}

// Pof returns the power-fail comparator record.
func (s *Store) Pof() Pof {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Pof
}

// Ship returns the ship mode record.
func (s *Store) Ship() Ship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Ship
}

// FuelGauge returns the fuel gauge record.
func (s *Store) FuelGauge() FuelGauge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fg := s.snap.FuelGauge
	fg.StoredBatteryModels = append([]string(nil), fg.StoredBatteryModels...)
	return fg
}

// Pmic returns the identification record.
func (s *Store) Pmic() PmicInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Pmic
}

// Samples returns a copy of the retained profiling samples.
func (s *Store) Samples() []ProfilingSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ProfilingSample(nil), s.samples...)
}

// Snapshot returns a deep copy of the store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.Bucks = maps.Clone(s.snap.Bucks)
	out.Ldos = maps.Clone(s.snap.Ldos)
	out.Gpios = maps.Clone(s.snap.Gpios)
	out.Leds = maps.Clone(s.snap.Leds)
	out.FuelGauge.StoredBatteryModels = append([]string(nil), s.snap.FuelGauge.StoredBatteryModels...)
	out.Samples = len(s.samples)
	return out
}
