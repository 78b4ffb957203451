package peripheral

import (
	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/state"
)

// Boost operating modes.
var BoostModes = []shell.EnumValue{
	{Name: "auto", Wire: "0"},
	{Name: "hp", Wire: "1"},
	{Name: "lp", Wire: "2"},
	{Name: "pass", Wire: "3"},
	{Name: "noHp", Wire: "4"},
}

var (
	boostVOut = field[float64]{stem: "npmx boost vout", codec: shell.Millivolts(2)}
	boostMode = field[string]{stem: "npmx boost mode", codec: shell.Enum(BoostModes...)}
)

// Boost controls the boost regulator.
type Boost struct {
	*Base
	layout Layout
}

// NewBoost creates the boost module.
func NewBoost(d Deps, layout Layout) *Boost {
	b := &Boost{Base: newBase("boost", d), layout: layout}
	bind(b.Base, boostVOut, func(_ int, v float64) {
		b.bus.Emit(eventbus.BoostUpdate, state.BoostPatch{VOut: &v})
	})
	bind(b.Base, boostMode, func(_ int, v string) {
		b.bus.Emit(eventbus.BoostUpdate, state.BoostPatch{Mode: &v})
	})
	return b
}

// GetAll queries every boost field.
func (b *Boost) GetAll() {
	b.GetVOut()
	b.GetMode()
}

func (b *Boost) GetVOut() { get(b.Base, boostVOut, 0) }
func (b *Boost) GetMode() { get(b.Base, boostMode, 0) }

// SetVOut sets the output voltage in volts.
func (b *Boost) SetVOut(v float64) *shell.Future {
	if err := checkRange("vOut", v, b.layout.BoostVoltage); err != nil {
		return shell.Rejected(err)
	}
	return set(b.Base, boostVOut, 0, v)
}

// SetMode selects the operating mode.
func (b *Boost) SetMode(mode string) *shell.Future {
	return set(b.Base, boostMode, 0, mode)
}
