package peripheral

import (
	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/state"
)

// POF warning polarities.
var PofPolarities = []shell.EnumValue{{Name: "activeLow", Wire: "0"}, {Name: "activeHigh", Wire: "1"}}

var (
	pofEnabled   = field[bool]{stem: "npmx pof status", codec: shell.Boolean}
	pofPolarity  = field[string]{stem: "npmx pof polarity", codec: shell.Enum(PofPolarities...)}
	pofThreshold = field[float64]{stem: "npmx pof threshold", codec: shell.Millivolts(1)}
)

// Pof controls the power-fail comparator.
type Pof struct {
	*Base
	threshold Range
}

// NewPof creates the POF module.
func NewPof(d Deps, threshold Range) *Pof {
	p := &Pof{Base: newBase("pof", d), threshold: threshold}
	emit := func(patch state.PofPatch) { p.bus.Emit(eventbus.PofUpdate, patch) }
	bind(p.Base, pofEnabled, func(_ int, v bool) { emit(state.PofPatch{Enabled: &v}) })
	bind(p.Base, pofPolarity, func(_ int, v string) { emit(state.PofPatch{Polarity: &v}) })
	bind(p.Base, pofThreshold, func(_ int, v float64) { emit(state.PofPatch{Threshold: &v}) })
	return p
}

// GetAll queries every POF field.
func (p *Pof) GetAll() {
	p.GetEnabled()
	p.GetPolarity()
	p.GetThreshold()
}

func (p *Pof) GetEnabled()   { get(p.Base, pofEnabled, 0) }
func (p *Pof) GetPolarity()  { get(p.Base, pofPolarity, 0) }
func (p *Pof) GetThreshold() { get(p.Base, pofThreshold, 0) }

// SetEnabled turns the comparator on or off.
func (p *Pof) SetEnabled(on bool) *shell.Future { return set(p.Base, pofEnabled, 0, on) }

// SetPolarity sets the warning polarity.
func (p *Pof) SetPolarity(name string) *shell.Future { return set(p.Base, pofPolarity, 0, name) }

// SetThreshold sets the warning threshold in volts.
func (p *Pof) SetThreshold(v float64) *shell.Future {
	if err := checkRange("threshold", v, p.threshold); err != nil {
		return shell.Rejected(err)
	}
	return set(p.Base, pofThreshold, 0, v)
}
