package peripheral

import (
	"math"
	"slices"
	"sync/atomic"

	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/state"
)

// Charger termination current choices.
var ITermValues = []shell.EnumValue{{Name: "10%", Wire: "10"}, {Name: "20%", Wire: "20"}}

// NTC thermistor choices.
var NTCValues = []shell.EnumValue{
	{Name: "Ignore NTC", Wire: "0"},
	{Name: "10 kΩ", Wire: "10000"},
	{Name: "47 kΩ", Wire: "47000"},
	{Name: "100 kΩ", Wire: "100000"},
}

var (
	chargerEnabled  = field[bool]{stem: "npmx charger module charger", codec: shell.Boolean}
	chargerRecharge = field[bool]{stem: "npmx charger module recharge", codec: shell.Boolean}
	chargerVTerm    = field[float64]{stem: "npmx charger termination_voltage normal", codec: shell.Millivolts(2)}
	chargerVTermR   = field[float64]{stem: "npmx charger termination_voltage warm", codec: shell.Millivolts(2)}
	chargerIChg     = field[float64]{stem: "npmx charger charging_current", codec: shell.Number(0)}
	chargerVTrickle = field[float64]{stem: "npmx charger trickle_voltage", codec: shell.Millivolts(1)}
	chargerITerm    = field[string]{stem: "npmx charger termination_current", codec: shell.Enum(ITermValues...)}
	chargerNTC      = field[string]{stem: "npmx charger ntc_thermistor", codec: shell.Enum(NTCValues...)}
)

// Charger controls the battery charger.
//
// Parameters that shape the charge profile may only change while charging
// is off, so their setters first disable the charger when it is on.
type Charger struct {
	*Base
	limits  ChargerLimits
	enabled atomic.Bool
}

// NewCharger creates the charger module.
func NewCharger(d Deps, limits ChargerLimits) *Charger {
	c := &Charger{Base: newBase("charger", d), limits: limits}

	emit := func(p state.ChargerPatch) { c.bus.Emit(eventbus.ChargerUpdate, p) }
	bind(c.Base, chargerEnabled, func(_ int, v bool) { emit(state.ChargerPatch{Enabled: &v}) })
	bind(c.Base, chargerRecharge, func(_ int, v bool) { emit(state.ChargerPatch{Recharge: &v}) })
	bind(c.Base, chargerVTerm, func(_ int, v float64) { emit(state.ChargerPatch{VTerm: &v}) })
	bind(c.Base, chargerVTermR, func(_ int, v float64) { emit(state.ChargerPatch{VTermR: &v}) })
	bind(c.Base, chargerIChg, func(_ int, v float64) { emit(state.ChargerPatch{IChg: &v}) })
	bind(c.Base, chargerVTrickle, func(_ int, v float64) { emit(state.ChargerPatch{VTrickleFast: &v}) })
	bind(c.Base, chargerITerm, func(_ int, v string) { emit(state.ChargerPatch{ITerm: &v}) })
	bind(c.Base, chargerNTC, func(_ int, v string) { emit(state.ChargerPatch{NTCThermistor: &v}) })

	c.track(c.bus.Subscribe(eventbus.ChargerUpdate, func(payload any) {
		switch v := payload.(type) {
		case state.Charger:
			c.enabled.Store(v.Enabled)
		case state.ChargerPatch:
			if v.Enabled != nil {
				c.enabled.Store(*v.Enabled)
			}
		}
	}))
	return c
}

// Limits returns the model's charger domains.
func (c *Charger) Limits() ChargerLimits { return c.limits }

// GetAll queries every charger field.
func (c *Charger) GetAll() {
	c.GetEnabled()
	c.GetRecharge()
	c.GetVTerm()
	c.GetVTermR()
	c.GetIChg()
	c.GetVTrickleFast()
	c.GetITerm()
	c.GetNTCThermistor()
}

func (c *Charger) GetEnabled()       { get(c.Base, chargerEnabled, 0) }
func (c *Charger) GetRecharge()      { get(c.Base, chargerRecharge, 0) }
func (c *Charger) GetVTerm()         { get(c.Base, chargerVTerm, 0) }
func (c *Charger) GetVTermR()        { get(c.Base, chargerVTermR, 0) }
func (c *Charger) GetIChg()          { get(c.Base, chargerIChg, 0) }
func (c *Charger) GetVTrickleFast()  { get(c.Base, chargerVTrickle, 0) }
func (c *Charger) GetITerm()         { get(c.Base, chargerITerm, 0) }
func (c *Charger) GetNTCThermistor() { get(c.Base, chargerNTC, 0) }

// SetEnabled starts or stops charging.
func (c *Charger) SetEnabled(on bool) *shell.Future {
	return set(c.Base, chargerEnabled, 0, on)
}

// SetRecharge enables automatic recharging.
func (c *Charger) SetRecharge(on bool) *shell.Future {
	return set(c.Base, chargerRecharge, 0, on)
}

// whileStopped runs write after disabling the charger if it is enabled.
func (c *Charger) whileStopped(f string, write Step) *shell.Future {
	if !c.enabled.Load() {
		return write()
	}
	return Sequence(c.io, []string{chargerEnabled.getCmd(0), f},
		func() *shell.Future { return c.SetEnabled(false) },
		write,
	)
}

// SetVTerm sets the termination voltage in volts.
func (c *Charger) SetVTerm(v float64) *shell.Future {
	if err := checkRange("vTerm", v, c.limits.VTerm); err != nil {
		return shell.Rejected(err)
	}
	return c.whileStopped(chargerVTerm.getCmd(0), func() *shell.Future {
		return set(c.Base, chargerVTerm, 0, v)
	})
}

// SetVTermR sets the warm-temperature termination voltage in volts.
func (c *Charger) SetVTermR(v float64) *shell.Future {
	if err := checkRange("vTermR", v, c.limits.VTerm); err != nil {
		return shell.Rejected(err)
	}
	return c.whileStopped(chargerVTermR.getCmd(0), func() *shell.Future {
		return set(c.Base, chargerVTermR, 0, v)
	})
}

// SetIChg sets the charging current in mA. The value is rounded down to
// the model's step.
func (c *Charger) SetIChg(mA float64) *shell.Future {
	if err := checkRange("iChg", mA, c.limits.IChg); err != nil {
		return shell.Rejected(err)
	}
	if c.limits.IChgStep > 0 {
		mA = math.Floor(mA/c.limits.IChgStep) * c.limits.IChgStep
	}
	return c.whileStopped(chargerIChg.getCmd(0), func() *shell.Future {
		return set(c.Base, chargerIChg, 0, mA)
	})
}

// SetVTrickleFast sets the trickle/fast charge threshold in volts.
func (c *Charger) SetVTrickleFast(v float64) *shell.Future {
	if !slices.Contains(c.limits.VTrickleFast, v) {
		lo, hi := slices.Min(c.limits.VTrickleFast), slices.Max(c.limits.VTrickleFast)
		return shell.Rejected(&shell.RangeError{Field: "vTrickleFast", Value: v, Min: lo, Max: hi})
	}
	return c.whileStopped(chargerVTrickle.getCmd(0), func() *shell.Future {
		return set(c.Base, chargerVTrickle, 0, v)
	})
}

// SetITerm sets the termination current, "10%" or "20%".
func (c *Charger) SetITerm(name string) *shell.Future {
	if err := chargerITerm.check(name); err != nil {
		return shell.Rejected(err)
	}
	return c.whileStopped(chargerITerm.getCmd(0), func() *shell.Future {
		return set(c.Base, chargerITerm, 0, name)
	})
}

// SetNTCThermistor selects the battery thermistor.
func (c *Charger) SetNTCThermistor(name string) *shell.Future {
	return set(c.Base, chargerNTC, 0, name)
}
