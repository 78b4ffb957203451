package state

import (
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pmicpanel/pmicsync/eventbus"
)

func newAttached(t *testing.T) (*Store, *eventbus.Bus) {
	t.Helper()
	b := eventbus.New(zerolog.Nop())
	s := NewStore()
	s.Attach(b)
	t.Cleanup(s.Detach)
	return s, b
}

func TestPatchLeavesAbsentFields(t *testing.T) {
	s, b := newAttached(t)
	b.Emit(eventbus.ChargerUpdate, Charger{VTerm: 4.2, IChg: 400, Enabled: true})
	b.Emit(eventbus.ChargerUpdate, ChargerPatch{VTerm: Ptr(4.0)})

	got := s.Charger()
	want := Charger{VTerm: 4.0, IChg: 400, Enabled: true}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestIndexedMerge(t *testing.T) {
	s, b := newAttached(t)
	b.EmitPartial(eventbus.BuckUpdate, BuckPatch{VOutNormal: Ptr(1.8)}, 0)
	b.EmitPartial(eventbus.BuckUpdate, BuckPatch{Enabled: Ptr(true)}, 0)
	b.EmitPartial(eventbus.BuckUpdate, BuckPatch{VOutNormal: Ptr(3.3)}, 1)

	b0, ok := s.Buck(0)
	if !ok {
		t.Fatal("buck 0 missing")
	}
	if b0.VOutNormal != 1.8 || !b0.Enabled {
		t.Errorf("buck 0: got %+v", b0)
	}
	b1, _ := s.Buck(1)
	if b1.VOutNormal != 3.3 || b1.Enabled {
		t.Errorf("buck 1: got %+v", b1)
	}
	if _, ok := s.Buck(2); ok {
		t.Error("buck 2 should not exist")
	}
}

func TestWholeIndexedRecord(t *testing.T) {
	s, b := newAttached(t)
	b.EmitPartial(eventbus.LdoUpdate, Ldo{Mode: "LDO", Voltage: 1.2}, 1)
	l, _ := s.Ldo(1)
	if l.Mode != "LDO" || l.Voltage != 1.2 {
		t.Errorf("got %+v", l)
	}
}

func TestStoredModelsCopied(t *testing.T) {
	s, b := newAttached(t)
	models := []string{"A", "B"}
	b.Emit(eventbus.FuelGaugeUpdate, FuelGaugePatch{StoredBatteryModels: &models})
	models[0] = "mutated"

	if got := s.FuelGauge().StoredBatteryModels; !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("got %v", got)
	}
}

func TestSamplesBounded(t *testing.T) {
	s, b := newAttached(t)
	for i := 0; i < MaxSamples+10; i++ {
		b.Emit(eventbus.ProfilingSample, ProfilingSample{Timestamp: int64(i)})
	}
	samples := s.Samples()
	if len(samples) != MaxSamples {
		t.Fatalf("got %d samples, want %d", len(samples), MaxSamples)
	}
	if samples[0].Timestamp != 10 {
		t.Errorf("oldest sample: got %d, want 10", samples[0].Timestamp)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s, b := newAttached(t)
	b.EmitPartial(eventbus.GpioUpdate, GpioPatch{Mode: Ptr("input")}, 0)
	b.Emit(eventbus.ConnectionUpdate, Connection{State: "connected", Previous: "pmic-unknown"})

	snap := s.Snapshot()
	snap.Gpios[0] = Gpio{Mode: "changed"}

	if g, _ := s.Gpio(0); g.Mode != "input" {
		t.Errorf("store mutated through snapshot: %+v", g)
	}
	if snap.Connection != "connected" {
		t.Errorf("connection: got %q", snap.Connection)
	}
}

func TestDetach(t *testing.T) {
	b := eventbus.New(zerolog.Nop())
	s := NewStore()
	s.Attach(b)
	s.Detach()
	b.Emit(eventbus.PofUpdate, Pof{Enabled: true})
	if s.Pof().Enabled {
		t.Error("detached store still updated")
	}
}
